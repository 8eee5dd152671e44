package aggregate

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"classlens/internal/config"
	"classlens/internal/logging"
	"classlens/internal/metrics"
	"classlens/internal/model"
)

// fakeSource serves canned records and can fail per source
type fakeSource struct {
	attendance  []model.AttendanceRecord
	grades      []model.GradeRecord
	assessments []model.AssessmentRecord
	discipline  []model.DisciplineIncident
	notes       []model.ObservationNote
	fail        map[string]bool
}

func (f *fakeSource) AttendanceForStudents(_ context.Context, _ []string) ([]model.AttendanceRecord, error) {
	if f.fail["attendance"] {
		return nil, errors.New("attendance down")
	}
	return f.attendance, nil
}

func (f *fakeSource) GradesForStudents(_ context.Context, _ []string) ([]model.GradeRecord, error) {
	if f.fail["grades"] {
		return nil, errors.New("grades down")
	}
	return f.grades, nil
}

func (f *fakeSource) AssessmentsForStudents(_ context.Context, _ []string) ([]model.AssessmentRecord, error) {
	if f.fail["assessments"] {
		return nil, errors.New("assessments down")
	}
	return f.assessments, nil
}

func (f *fakeSource) DisciplineForStudents(_ context.Context, _ []string) ([]model.DisciplineIncident, error) {
	if f.fail["discipline"] {
		return nil, errors.New("discipline down")
	}
	return f.discipline, nil
}

func (f *fakeSource) ObservationsFor(_ context.Context, _, _ []string) ([]model.ObservationNote, error) {
	if f.fail["observations"] {
		return nil, errors.New("observations down")
	}
	return f.notes, nil
}

var testDay = time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)

func testAggregator(t *testing.T, source Source) *Aggregator {
	t.Helper()
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: io.Discard})
	cfg := config.DefaultConfig()
	clock := clockwork.NewFakeClockAt(testDay)
	return New(source, logger, cfg.Thresholds, cfg.Aggregator, clock)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func students(ids ...string) []model.Student {
	out := make([]model.Student, len(ids))
	for i, id := range ids {
		out[i] = model.Student{ID: id, FirstName: "S", LastName: id, Grade: "3", ClassLabel: "3A"}
	}
	return out
}

func TestAggregateAttendance(t *testing.T) {
	source := &fakeSource{
		attendance: []model.AttendanceRecord{
			{StudentID: "s1", Date: day(2026, 1, 12), Status: model.Present},
			{StudentID: "s1", Date: day(2026, 1, 13), Status: model.Absent},
			{StudentID: "s1", Date: day(2026, 1, 14), Status: model.Tardy},
			{StudentID: "s1", Date: day(2026, 2, 2), Status: model.Present},
		},
	}
	agg := testAggregator(t, source)

	result := agg.Aggregate(context.Background(), students("s1", "s2"), nil)

	if len(result.Attendance) != 1 {
		t.Fatalf("attendance summaries = %d, want 1 (s2 has no records)", len(result.Attendance))
	}
	s := result.Attendance[0]
	if s.StudentID != "s1" || s.TotalDays != 4 || s.PresentDays != 2 || s.AbsentDays != 1 || s.TardyDays != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.PresentDays+s.AbsentDays+s.TardyDays != s.TotalDays {
		t.Errorf("counts do not reconcile: %+v", s)
	}
	if s.Rate != 50.0 {
		t.Errorf("rate = %v, want 50.0", s.Rate)
	}
	if !s.ChronicallyAbsent {
		t.Errorf("50%% attendance should be chronically absent")
	}
	if len(s.Monthly) != 2 || s.Monthly[0].Month != "January 2026" || s.Monthly[1].Month != "February 2026" {
		t.Errorf("monthly = %+v", s.Monthly)
	}
	if len(s.Records) != 4 || s.Records[0].Weekday != "Monday" {
		t.Errorf("records = %+v", s.Records)
	}
}

func TestAggregateGrades(t *testing.T) {
	source := &fakeSource{
		grades: []model.GradeRecord{
			{StudentID: "s1", Subject: "Math", Period: "Q1", Raw: "85"},
			{StudentID: "s1", Subject: "Math", Period: "Q2", Raw: "95 S"},
			{StudentID: "s1", Subject: "Math", Period: "Q3", Raw: "Incomplete"},
			{StudentID: "s1", Subject: "Reading", Period: "Q1", Raw: "55"},
		},
	}
	agg := testAggregator(t, source)

	result := agg.Aggregate(context.Background(), students("s1"), nil)

	if len(result.Grades) != 1 {
		t.Fatalf("grades summaries = %d, want 1", len(result.Grades))
	}
	s := result.Grades[0]

	// (85 + 95 + 55) / 3, the "Incomplete" entry never counts as zero
	if s.OverallAverage != 78.3 {
		t.Errorf("overall average = %v, want 78.3", s.OverallAverage)
	}
	if s.GPA != 2.0 || s.LetterGrade != "C+" {
		t.Errorf("gpa = %v %s, want 2.0 C+", s.GPA, s.LetterGrade)
	}

	if len(s.Subjects) != 2 || s.Subjects[0].Subject != "Math" {
		t.Fatalf("subjects = %+v", s.Subjects)
	}
	math := s.Subjects[0]
	if math.Average != 90.0 || math.Min != 85 || math.Max != 95 {
		t.Errorf("math = %+v", math)
	}
	if math.PassCount != 2 || math.FailCount != 0 {
		t.Errorf("math pass/fail = %d/%d", math.PassCount, math.FailCount)
	}
	if len(math.History) != 3 || math.History[2].Numeric {
		t.Errorf("non-numeric entry should stay in history as non-numeric: %+v", math.History)
	}

	reading := s.Subjects[1]
	if reading.PassCount != 0 || reading.FailCount != 1 {
		t.Errorf("reading pass/fail = %d/%d", reading.PassCount, reading.FailCount)
	}
}

func TestAggregateAssessments(t *testing.T) {
	source := &fakeSource{
		assessments: []model.AssessmentRecord{
			{StudentID: "s1", Family: "iReady Math", Date: day(2025, 9, 1), ScaleScore: 450},
			{StudentID: "s1", Family: "iReady Math", Date: day(2026, 1, 10), ScaleScore: 470, Domains: map[string]float64{"Numbers and Operations": 465}},
			{StudentID: "s1", Family: "FAST ELA", Date: day(2025, 10, 5), ScaleScore: 210},
			{StudentID: "s1", Family: "STAR Early Literacy", Date: day(2025, 10, 5), ScaleScore: 700},
		},
	}
	agg := testAggregator(t, source)

	result := agg.Aggregate(context.Background(), students("s1"), nil)

	if len(result.Assessments) != 1 {
		t.Fatalf("assessment summaries = %d, want 1", len(result.Assessments))
	}
	s := result.Assessments[0]
	if len(s.IReadyMath) != 2 {
		t.Fatalf("iReady Math bucket = %+v", s.IReadyMath)
	}
	if !s.IReadyMath[0].Date.After(s.IReadyMath[1].Date) {
		t.Errorf("bucket should be newest first")
	}
	if s.IReadyMath[0].Domains["Numbers and Operations"] != 465 {
		t.Errorf("domain scores should pass through verbatim")
	}
	if len(s.FASTELA) != 1 {
		t.Errorf("FAST ELA bucket = %+v", s.FASTELA)
	}
}

func TestAggregateDiscipline(t *testing.T) {
	source := &fakeSource{
		discipline: []model.DisciplineIncident{
			{StudentID: "s1", Date: testDay.AddDate(0, 0, -5), Type: "disruption"},
			{StudentID: "s1", Date: testDay.AddDate(0, 0, -10), Type: "disruption"},
			{StudentID: "s1", Date: testDay.AddDate(0, 0, -45), Type: "disruption"},
			{StudentID: "s1", Date: testDay.AddDate(0, 0, -100), Type: "disruption"},
		},
	}
	agg := testAggregator(t, source)

	result := agg.Aggregate(context.Background(), students("s1"), nil)

	if len(result.Discipline) != 1 {
		t.Fatalf("discipline summaries = %d, want 1", len(result.Discipline))
	}
	s := result.Discipline[0]
	if s.TotalIncidents != 4 || s.RecentWindowCount != 2 || s.PriorWindowCount != 1 {
		t.Errorf("windows = %+v", s)
	}
	if s.Trend != metrics.Worsening {
		t.Errorf("trend = %s, want worsening", s.Trend)
	}
	if !s.Incidents[0].Date.After(s.Incidents[1].Date) {
		t.Errorf("incidents should be newest first")
	}
}

func TestAggregateObservations(t *testing.T) {
	source := &fakeSource{
		notes: []model.ObservationNote{
			{ID: "n1", ClassLabel: "3A", Category: "climate", Text: "calm morning", Date: day(2026, 2, 1)},
			{ID: "n2", StudentID: "s1", ClassLabel: "3A", Category: "behavior", Text: "off task", Date: day(2026, 2, 2)},
		},
	}
	agg := testAggregator(t, source)

	result := agg.Aggregate(context.Background(), students("s1"), nil)

	if len(result.Sessions) != 1 || result.Sessions[0].ID != "n1" {
		t.Errorf("sessions = %+v", result.Sessions)
	}
	if len(result.Notes) != 1 || result.Notes[0].StudentID != "s1" {
		t.Errorf("notes = %+v", result.Notes)
	}
}

func TestAggregateSourceFailureIsolation(t *testing.T) {
	source := &fakeSource{
		fail: map[string]bool{"grades": true, "discipline": true},
		attendance: []model.AttendanceRecord{
			{StudentID: "s1", Date: day(2026, 1, 12), Status: model.Present},
		},
	}
	agg := testAggregator(t, source)

	result := agg.Aggregate(context.Background(), students("s1"), nil)

	if len(result.Attendance) != 1 {
		t.Errorf("healthy source should still produce results")
	}
	if len(result.Grades) != 0 || len(result.Discipline) != 0 {
		t.Errorf("failed sources should degrade to empty")
	}
	if len(result.SourceErrors) != 2 || result.SourceErrors[0] != "discipline" || result.SourceErrors[1] != "grades" {
		t.Errorf("sourceErrors = %v", result.SourceErrors)
	}
}

func TestAggregateFlags(t *testing.T) {
	rules := []model.FlagRule{
		{Name: "chronic-absence", Category: model.FlagAttendance, Threshold: 90, Direction: model.Below, Severity: model.SeverityRed, Active: true},
		{Name: "failing-average", Category: model.FlagGrades, Threshold: 60, Direction: model.Below, Severity: model.SeverityRed, Active: true},
	}
	source := &fakeSource{
		attendance: []model.AttendanceRecord{
			{StudentID: "s1", Date: day(2026, 1, 12), Status: model.Present},
			{StudentID: "s1", Date: day(2026, 1, 13), Status: model.Absent},
			{StudentID: "s2", Date: day(2026, 1, 12), Status: model.Present},
		},
		grades: []model.GradeRecord{
			{StudentID: "s2", Subject: "Math", Period: "Q1", Raw: "55"},
		},
	}
	agg := testAggregator(t, source)

	result := agg.Aggregate(context.Background(), students("s1", "s2"), rules)

	if len(result.Flags) != 2 {
		t.Fatalf("flags = %+v, want 2", result.Flags)
	}
	if result.Flags[0].StudentID != "s1" || result.Flags[0].Rule != "chronic-absence" || result.Flags[0].Value != 50.0 {
		t.Errorf("flag 0 = %+v", result.Flags[0])
	}
	if result.Flags[1].StudentID != "s2" || result.Flags[1].Rule != "failing-average" || result.Flags[1].Value != 55.0 {
		t.Errorf("flag 1 = %+v", result.Flags[1])
	}
}

func TestAggregateNoFabrication(t *testing.T) {
	// An empty store yields an empty result, never placeholder summaries
	agg := testAggregator(t, &fakeSource{})

	result := agg.Aggregate(context.Background(), students("s1", "s2", "s3"), nil)

	if len(result.Attendance) != 0 || len(result.Grades) != 0 || len(result.Assessments) != 0 ||
		len(result.Discipline) != 0 || len(result.Flags) != 0 {
		t.Errorf("empty store should produce empty result: %+v", result)
	}
	if len(result.SourceErrors) != 0 {
		t.Errorf("no source failed: %v", result.SourceErrors)
	}
}
