// Package profile builds deep per-student risk profiles for small,
// explicitly named candidate sets. It reuses the aggregated summaries and
// never re-reads the record store. Broad and ranking queries stay on the
// coarse composite risk bucketing instead.
package profile

import (
	"fmt"

	"classlens/internal/aggregate"
	"classlens/internal/config"
	"classlens/internal/metrics"
	"classlens/internal/model"
)

// Band is a per-dimension risk band
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// OverallRisk is the combined profile level
type OverallRisk string

const (
	OverallLow      OverallRisk = "Low"
	OverallMedium   OverallRisk = "Medium"
	OverallHigh     OverallRisk = "High"
	OverallCritical OverallRisk = "Critical"
)

// RiskProfile is the deep-mode view of one student. The three factor lists
// are driven by the same threshold checks that set the bands; no free text
// is generated beyond these templates.
type RiskProfile struct {
	StudentID         string      `json:"studentId"`
	AttendanceBand    Band        `json:"attendanceBand"`
	AcademicBand      Band        `json:"academicBand"`
	BehaviorBand      Band        `json:"behaviorBand"`
	Overall           OverallRisk `json:"overall"`
	RiskFactors       []string    `json:"riskFactors,omitempty"`
	ProtectiveFactors []string    `json:"protectiveFactors,omitempty"`
	Interventions     []string    `json:"interventions,omitempty"`
}

// Profiler derives risk profiles from aggregated summaries
type Profiler struct {
	th config.ThresholdsConfig
}

// New creates a Profiler using the configured thresholds
func New(th config.ThresholdsConfig) *Profiler {
	return &Profiler{th: th}
}

// ProfileAll builds one profile per candidate student, in candidate order
func (p *Profiler) ProfileAll(students []model.Student, result *aggregate.Result) []RiskProfile {
	profiles := make([]RiskProfile, 0, len(students))
	for _, s := range students {
		profiles = append(profiles, p.Profile(s.ID, result))
	}
	return profiles
}

// Profile builds the risk profile for one student from the joined summaries
func (p *Profiler) Profile(studentID string, result *aggregate.Result) RiskProfile {
	profile := RiskProfile{
		StudentID:      studentID,
		AttendanceBand: BandLow,
		AcademicBand:   BandLow,
		BehaviorBand:   BandLow,
	}

	if att, ok := result.AttendanceFor(studentID); ok {
		p.profileAttendance(&profile, att)
	}
	if grd, ok := result.GradesFor(studentID); ok {
		p.profileAcademics(&profile, grd)
	}
	if dis, ok := result.DisciplineFor(studentID); ok {
		p.profileBehavior(&profile, dis)
	}
	for _, flag := range result.FlagsFor(studentID) {
		if flag.Severity == model.SeverityRed || flag.Severity == model.SeverityOrange {
			profile.RiskFactors = append(profile.RiskFactors,
				fmt.Sprintf("Flagged by rule %q (%s)", flag.Rule, flag.Severity))
		}
	}

	profile.Overall = combineBands(profile.AttendanceBand, profile.AcademicBand, profile.BehaviorBand)
	return profile
}

// severeAttendanceRate marks the high-band attendance cutoff, well below the
// chronic-absenteeism line
const severeAttendanceRate = 80.0

func (p *Profiler) profileAttendance(profile *RiskProfile, att aggregate.AttendanceSummary) {
	switch {
	case att.Rate < severeAttendanceRate:
		profile.AttendanceBand = BandHigh
		profile.RiskFactors = append(profile.RiskFactors,
			fmt.Sprintf("Severe absenteeism: attendance rate %.1f%%", att.Rate))
		profile.Interventions = append(profile.Interventions,
			"Attendance contract with family outreach and daily check-in")
	case att.Rate < p.th.ChronicAbsenteeismRate:
		profile.AttendanceBand = BandMedium
		profile.RiskFactors = append(profile.RiskFactors,
			fmt.Sprintf("Chronic absenteeism: attendance rate %.1f%%", att.Rate))
		profile.Interventions = append(profile.Interventions,
			"Weekly attendance monitoring and family contact")
	case att.Rate >= 95:
		profile.ProtectiveFactors = append(profile.ProtectiveFactors,
			fmt.Sprintf("Strong attendance (%.1f%%)", att.Rate))
	}

	if att.Trend == metrics.Declining {
		profile.RiskFactors = append(profile.RiskFactors, "Attendance trending downward")
	}
}

// severeGPA marks the high-band academic cutoff on the 4.0 scale
const severeGPA = 1.0

func (p *Profiler) profileAcademics(profile *RiskProfile, grd aggregate.GradesSummary) {
	switch {
	case grd.GPA < severeGPA:
		profile.AcademicBand = BandHigh
		profile.RiskFactors = append(profile.RiskFactors,
			fmt.Sprintf("Failing academic average (GPA %.1f, %s)", grd.GPA, grd.LetterGrade))
		profile.Interventions = append(profile.Interventions,
			"Academic intervention plan with tutoring referral")
	case grd.GPA < p.th.LowGPA:
		profile.AcademicBand = BandMedium
		profile.RiskFactors = append(profile.RiskFactors,
			fmt.Sprintf("Below-target academic average (GPA %.1f, %s)", grd.GPA, grd.LetterGrade))
		profile.Interventions = append(profile.Interventions,
			"Targeted small-group instruction in weakest subjects")
	case grd.GPA >= 3.0:
		profile.ProtectiveFactors = append(profile.ProtectiveFactors,
			fmt.Sprintf("Solid academic standing (GPA %.1f, %s)", grd.GPA, grd.LetterGrade))
	}

	switch grd.Trend {
	case metrics.Declining:
		profile.RiskFactors = append(profile.RiskFactors, "Grades trending downward")
	case metrics.Improving:
		profile.ProtectiveFactors = append(profile.ProtectiveFactors, "Grades trending upward")
	}

	for _, sub := range grd.Subjects {
		if sub.FailCount > sub.PassCount && sub.FailCount > 0 {
			profile.RiskFactors = append(profile.RiskFactors,
				fmt.Sprintf("Failing more periods than passing in %s", sub.Subject))
		}
	}
}

// frequentIncidentCount marks the high-band behavior cutoff
const frequentIncidentCount = 3

func (p *Profiler) profileBehavior(profile *RiskProfile, dis aggregate.DisciplineSummary) {
	switch {
	case dis.TotalIncidents >= frequentIncidentCount:
		profile.BehaviorBand = BandHigh
		profile.RiskFactors = append(profile.RiskFactors,
			fmt.Sprintf("%d discipline incidents on record", dis.TotalIncidents))
		profile.Interventions = append(profile.Interventions,
			"Behavior support plan with counselor referral")
	case dis.TotalIncidents >= 1:
		profile.BehaviorBand = BandMedium
		profile.RiskFactors = append(profile.RiskFactors,
			fmt.Sprintf("%d discipline incident(s) on record", dis.TotalIncidents))
		profile.Interventions = append(profile.Interventions,
			"Check-in/check-out behavior monitoring")
	}

	switch dis.Trend {
	case metrics.Worsening:
		profile.RiskFactors = append(profile.RiskFactors, "Behavior incidents increasing over the last two windows")
	case metrics.Improving:
		profile.ProtectiveFactors = append(profile.ProtectiveFactors, "Behavior incidents decreasing over the last two windows")
	}
}

// combineBands applies the fixed combination ladder over the three dimensions
func combineBands(bands ...Band) OverallRisk {
	var high, medium int
	for _, b := range bands {
		switch b {
		case BandHigh:
			high++
		case BandMedium:
			medium++
		}
	}

	switch {
	case high >= 2:
		return OverallCritical
	case high == 1:
		return OverallHigh
	case medium >= 2:
		return OverallHigh
	case medium == 1:
		return OverallMedium
	default:
		return OverallLow
	}
}
