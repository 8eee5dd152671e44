package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"classlens/internal/budget"
	"classlens/internal/config"
	"classlens/internal/interpreter"
	"classlens/internal/logging"
	"classlens/internal/model"
	"classlens/internal/output"
)

// fakeStore is an in-memory Store with call counting for cache tests
type fakeStore struct {
	students    []model.Student
	attendance  []model.AttendanceRecord
	grades      []model.GradeRecord
	assessments []model.AssessmentRecord
	discipline  []model.DisciplineIncident
	notes       []model.ObservationNote

	generation    int64
	rosterLoads   int
	panicOnRoster bool
}

func (f *fakeStore) AllStudents(_ context.Context) ([]model.Student, error) {
	if f.panicOnRoster {
		panic("roster table corrupted")
	}
	f.rosterLoads++
	return f.students, nil
}

func (f *fakeStore) Generation() (int64, error) { return f.generation, nil }

func (f *fakeStore) AttendanceForStudents(_ context.Context, ids []string) ([]model.AttendanceRecord, error) {
	return filterRecords(f.attendance, ids, func(r model.AttendanceRecord) string { return r.StudentID }), nil
}

func (f *fakeStore) GradesForStudents(_ context.Context, ids []string) ([]model.GradeRecord, error) {
	return filterRecords(f.grades, ids, func(r model.GradeRecord) string { return r.StudentID }), nil
}

func (f *fakeStore) AssessmentsForStudents(_ context.Context, ids []string) ([]model.AssessmentRecord, error) {
	return filterRecords(f.assessments, ids, func(r model.AssessmentRecord) string { return r.StudentID }), nil
}

func (f *fakeStore) DisciplineForStudents(_ context.Context, ids []string) ([]model.DisciplineIncident, error) {
	return filterRecords(f.discipline, ids, func(r model.DisciplineIncident) string { return r.StudentID }), nil
}

func (f *fakeStore) ObservationsFor(_ context.Context, _, ids []string) ([]model.ObservationNote, error) {
	return filterRecords(f.notes, ids, func(r model.ObservationNote) string { return r.StudentID }), nil
}

func filterRecords[T any](records []T, ids []string, key func(T) string) []T {
	allowed := make(map[string]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}
	var out []T
	for _, r := range records {
		if allowed[key(r)] {
			out = append(out, r)
		}
	}
	return out
}

var testNow = time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)

func testEngine(store *fakeStore) *Engine {
	return New(Options{
		Store:  store,
		Config: config.DefaultConfig(),
		Logger: logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: io.Discard}),
		Clock:  clockwork.NewFakeClockAt(testNow),
	})
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func janeDoeStore() *fakeStore {
	return &fakeStore{
		generation: 1,
		students: []model.Student{
			{ID: "id-jane", StudentNumber: "1234567", FirstName: "Jane", LastName: "Doe", Grade: "3", ClassLabel: "Smith"},
			{ID: "id-john", StudentNumber: "7654321", FirstName: "John", LastName: "Roe", Grade: "3", ClassLabel: "Smith"},
		},
		grades: []model.GradeRecord{
			{StudentID: "id-jane", Subject: "Math", Period: "Q1", Raw: "88"},
			{StudentID: "id-jane", Subject: "Math", Period: "Q2", Raw: "91"},
			{StudentID: "id-jane", Subject: "Math", Period: "Q3", Raw: "85"},
			{StudentID: "id-jane", Subject: "Reading", Period: "Q1", Raw: "79"},
		},
		assessments: []model.AssessmentRecord{
			{StudentID: "id-jane", Family: "iReady Math", Date: day(2025, 9, 10), ScaleScore: 450},
			{StudentID: "id-jane", Family: "iReady Math", Date: day(2026, 1, 15), ScaleScore: 468},
		},
		attendance: []model.AttendanceRecord{
			{StudentID: "id-jane", Date: day(2026, 2, 2), Status: model.Present},
		},
	}
}

func TestIndividualQueryScenario(t *testing.T) {
	e := testEngine(janeDoeStore())

	result := e.Retrieve(context.Background(), `How is 'Jane Doe' doing in math?`, false)

	if result.Query.Intent != interpreter.IntentIndividual {
		t.Errorf("intent = %s, want individual", result.Query.Intent)
	}
	if len(result.Students) != 1 || result.Students[0].ID != "id-jane" {
		t.Fatalf("candidates = %+v, want just Jane", result.Students)
	}
	if result.Budgeting != nil {
		t.Errorf("budgeting should not trigger for one student")
	}

	grd, ok := result.Data.GradesFor("id-jane")
	if !ok {
		t.Fatalf("grades summary missing")
	}
	if grd.Subjects[0].Subject != "Math" || len(grd.Subjects[0].History) != 3 {
		t.Errorf("math history should be full: %+v", grd.Subjects[0])
	}

	if len(result.Data.Assessments) != 1 || len(result.Data.Assessments[0].IReadyMath) != 2 {
		t.Errorf("math assessment bucket should hold full history: %+v", result.Data.Assessments)
	}
}

func TestGradeLevelQueryScenario(t *testing.T) {
	store := &fakeStore{generation: 1}
	for i := 0; i < 20; i++ {
		store.students = append(store.students, model.Student{
			ID: fmt.Sprintf("id-%02d", i), FirstName: "S", LastName: fmt.Sprintf("L%02d", i), Grade: "3",
		})
	}
	store.students = append(store.students, model.Student{ID: "id-g4", FirstName: "S", LastName: "Other", Grade: "4"})
	e := testEngine(store)

	result := e.Retrieve(context.Background(), "Tell me about 3rd grade reading", false)

	if result.Query.Grade != "3" {
		t.Errorf("grade filter = %q, want 3", result.Query.Grade)
	}
	// Grade-filtered analysis is never downsampled, even above the
	// budgeting trigger threshold.
	if len(result.Students) != 20 {
		t.Errorf("candidates = %d, want all 20 third graders", len(result.Students))
	}
	for _, s := range result.Students {
		if s.Grade != "3" {
			t.Errorf("non-third-grader %s in candidate set", s.ID)
		}
	}
	if result.Budgeting == nil {
		t.Errorf("20 candidates should trigger budgeting")
	}
}

func TestZeroMatchRankingScenario(t *testing.T) {
	store := janeDoeStore()
	e := testEngine(store)

	result := e.Retrieve(context.Background(), "Who has the highest attendance?", false)

	if len(result.Students) != len(store.students) {
		t.Errorf("ranking query with no identifiers should cover the whole roster, got %d", len(result.Students))
	}
	if result.Budgeting == nil || result.Budgeting.Policy != budget.PolicyAttendanceFocused {
		t.Fatalf("budgeting = %+v, want attendance-focused", result.Budgeting)
	}
	if len(result.Data.Attendance) == 0 {
		t.Errorf("attendance summaries should survive")
	}
	if result.Data.Grades != nil || result.Data.Discipline != nil || result.Data.Assessments != nil {
		t.Errorf("other sources should be dropped by the attendance policy")
	}
}

func TestRetrieveIdempotence(t *testing.T) {
	e := testEngine(janeDoeStore())
	question := `How is 'Jane Doe' doing in math?`

	first := e.Retrieve(context.Background(), question, true)
	second := e.Retrieve(context.Background(), question, true)

	// fetchedAt is wall-clock metadata, excluded from the comparison
	first.FetchedAt = time.Time{}
	second.FetchedAt = time.Time{}

	a, err := output.DeterministicEncode(first)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := output.DeterministicEncode(second)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("re-running retrieval produced different bytes:\n%s\n%s", a, b)
	}
}

func TestDeepModeProfiles(t *testing.T) {
	e := testEngine(janeDoeStore())

	t.Run("deep mode with a named student builds profiles", func(t *testing.T) {
		result := e.Retrieve(context.Background(), `How is 'Jane Doe' doing in math?`, true)
		if len(result.Profiles) != 1 || result.Profiles[0].StudentID != "id-jane" {
			t.Errorf("profiles = %+v", result.Profiles)
		}
	})

	t.Run("ranking queries never get profiles", func(t *testing.T) {
		result := e.Retrieve(context.Background(), "Who has the highest attendance?", true)
		if len(result.Profiles) != 0 {
			t.Errorf("broad ranking query should skip the profiler: %+v", result.Profiles)
		}
	})

	t.Run("shallow mode never gets profiles", func(t *testing.T) {
		result := e.Retrieve(context.Background(), `How is 'Jane Doe' doing in math?`, false)
		if len(result.Profiles) != 0 {
			t.Errorf("profiles = %+v", result.Profiles)
		}
	})
}

func TestRosterCache(t *testing.T) {
	store := janeDoeStore()
	e := testEngine(store)

	e.Retrieve(context.Background(), "Who has the highest attendance?", false)
	e.Retrieve(context.Background(), "Who has the lowest attendance?", false)

	if store.rosterLoads != 1 {
		t.Errorf("roster loads = %d, want 1 (second request served from cache)", store.rosterLoads)
	}

	// An import bumps the generation, so the cached snapshot is stale
	store.generation = 2
	e.Retrieve(context.Background(), "Who has the highest attendance?", false)

	if store.rosterLoads != 2 {
		t.Errorf("roster loads = %d, want 2 after generation bump", store.rosterLoads)
	}
}

func TestRetrieveRecoversToEmptyContext(t *testing.T) {
	store := janeDoeStore()
	store.panicOnRoster = true
	e := testEngine(store)

	result := e.Retrieve(context.Background(), "How is everyone doing?", false)

	if result == nil {
		t.Fatalf("recovery must still return a context")
	}
	if len(result.Students) != 0 || result.Data == nil {
		t.Errorf("recovered context should be empty but well-formed: %+v", result)
	}
	if result.Question != "How is everyone doing?" {
		t.Errorf("question should be preserved: %q", result.Question)
	}
}

func TestEmptyRoster(t *testing.T) {
	e := testEngine(&fakeStore{generation: 1})

	result := e.Retrieve(context.Background(), "Who is at risk?", false)

	if result.Summary.RosterCount != 0 || result.Summary.CandidateCount != 0 {
		t.Errorf("summary = %+v, want zeros", result.Summary)
	}
	if len(result.Data.Attendance) != 0 || len(result.Data.Grades) != 0 {
		t.Errorf("empty roster should produce empty arrays")
	}
}
