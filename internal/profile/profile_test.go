package profile

import (
	"strings"
	"testing"

	"classlens/internal/aggregate"
	"classlens/internal/config"
	"classlens/internal/metrics"
	"classlens/internal/model"
)

func testProfiler() *Profiler {
	return New(config.DefaultConfig().Thresholds)
}

func TestCombinationLadder(t *testing.T) {
	tests := []struct {
		name  string
		bands []Band
		want  OverallRisk
	}{
		{"two high is critical", []Band{BandHigh, BandHigh, BandLow}, OverallCritical},
		{"one high is high", []Band{BandHigh, BandLow, BandLow}, OverallHigh},
		{"two medium is high", []Band{BandMedium, BandMedium, BandLow}, OverallHigh},
		{"one high beats mediums", []Band{BandHigh, BandMedium, BandMedium}, OverallHigh},
		{"one medium is medium", []Band{BandMedium, BandLow, BandLow}, OverallMedium},
		{"all low is low", []Band{BandLow, BandLow, BandLow}, OverallLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := combineBands(tt.bands...); got != tt.want {
				t.Errorf("combineBands(%v) = %s, want %s", tt.bands, got, tt.want)
			}
		})
	}
}

func TestProfileBands(t *testing.T) {
	p := testProfiler()

	t.Run("struggling student across all dimensions", func(t *testing.T) {
		result := &aggregate.Result{
			Attendance: []aggregate.AttendanceSummary{
				{StudentID: "s1", Rate: 72.0, ChronicallyAbsent: true},
			},
			Grades: []aggregate.GradesSummary{
				{StudentID: "s1", OverallAverage: 52, GPA: 0.0, LetterGrade: "F"},
			},
			Discipline: []aggregate.DisciplineSummary{
				{StudentID: "s1", TotalIncidents: 4, Trend: metrics.Worsening},
			},
		}

		profile := p.Profile("s1", result)
		if profile.AttendanceBand != BandHigh || profile.AcademicBand != BandHigh || profile.BehaviorBand != BandHigh {
			t.Errorf("bands = %s/%s/%s, want high/high/high",
				profile.AttendanceBand, profile.AcademicBand, profile.BehaviorBand)
		}
		if profile.Overall != OverallCritical {
			t.Errorf("overall = %s, want Critical", profile.Overall)
		}
		if len(profile.RiskFactors) == 0 || len(profile.Interventions) == 0 {
			t.Errorf("high bands should append factors and interventions: %+v", profile)
		}
	})

	t.Run("thriving student", func(t *testing.T) {
		result := &aggregate.Result{
			Attendance: []aggregate.AttendanceSummary{
				{StudentID: "s1", Rate: 98.5},
			},
			Grades: []aggregate.GradesSummary{
				{StudentID: "s1", OverallAverage: 94, GPA: 3.7, LetterGrade: "A", Trend: metrics.Improving},
			},
		}

		profile := p.Profile("s1", result)
		if profile.Overall != OverallLow {
			t.Errorf("overall = %s, want Low", profile.Overall)
		}
		if len(profile.RiskFactors) != 0 {
			t.Errorf("risk factors = %v, want none", profile.RiskFactors)
		}
		if len(profile.ProtectiveFactors) < 2 {
			t.Errorf("protective factors = %v, want attendance and academics", profile.ProtectiveFactors)
		}
	})

	t.Run("single medium dimension", func(t *testing.T) {
		result := &aggregate.Result{
			Attendance: []aggregate.AttendanceSummary{
				{StudentID: "s1", Rate: 87.0, ChronicallyAbsent: true},
			},
		}

		profile := p.Profile("s1", result)
		if profile.AttendanceBand != BandMedium {
			t.Errorf("attendance band = %s, want medium", profile.AttendanceBand)
		}
		if profile.Overall != OverallMedium {
			t.Errorf("overall = %s, want Medium", profile.Overall)
		}
	})

	t.Run("no records in any source is low", func(t *testing.T) {
		profile := p.Profile("s1", &aggregate.Result{})
		if profile.Overall != OverallLow {
			t.Errorf("overall = %s, want Low", profile.Overall)
		}
		if len(profile.RiskFactors) != 0 || len(profile.Interventions) != 0 {
			t.Errorf("no data should not fabricate factors: %+v", profile)
		}
	})
}

func TestProfileFactorsFollowThresholds(t *testing.T) {
	p := testProfiler()

	result := &aggregate.Result{
		Attendance: []aggregate.AttendanceSummary{
			{StudentID: "s1", Rate: 85.0, Trend: metrics.Declining},
		},
		Grades: []aggregate.GradesSummary{
			{StudentID: "s1", GPA: 1.7, LetterGrade: "C", Subjects: []aggregate.SubjectSummary{
				{Subject: "Math", PassCount: 1, FailCount: 3},
			}},
		},
		Flags: []aggregate.StudentFlag{
			{StudentID: "s1", Rule: "chronic-absence", Severity: model.SeverityRed},
			{StudentID: "s1", Rule: "minor", Severity: model.SeverityYellow},
		},
	}

	profile := p.Profile("s1", result)

	joined := strings.Join(profile.RiskFactors, "\n")
	for _, want := range []string{
		"Chronic absenteeism",
		"Attendance trending downward",
		"Below-target academic average",
		"Failing more periods than passing in Math",
		`Flagged by rule "chronic-absence"`,
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("risk factors missing %q:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "minor") {
		t.Errorf("yellow flags should not become risk factors: %s", joined)
	}
	if len(profile.Interventions) != 2 {
		t.Errorf("interventions = %v, want one per flagged dimension", profile.Interventions)
	}
}
