package storage

import (
	"context"
	"testing"
	"time"

	"classlens/internal/logging"
	"classlens/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
	db, err := Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRosterImport(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	students := []model.Student{
		{StudentNumber: "1000001", FirstName: "Jane", LastName: "Doe", Grade: "3", ClassLabel: "Ms. Rivera - 3B"},
		{StudentNumber: "1000002", FirstName: "Omar", LastName: "Khan", Grade: "3", ClassLabel: "Ms. Rivera - 3B"},
	}
	if err := db.UpsertStudents(ctx, students); err != nil {
		t.Fatalf("UpsertStudents: %v", err)
	}

	roster, err := db.AllStudents(ctx)
	if err != nil {
		t.Fatalf("AllStudents: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("roster size = %d, want 2", len(roster))
	}
	if roster[0].ID == "" {
		t.Error("imported student has no stable id")
	}

	t.Run("re-import preserves stable id", func(t *testing.T) {
		originalID := roster[0].ID

		updated := []model.Student{
			{StudentNumber: roster[0].StudentNumber, FirstName: roster[0].FirstName, LastName: roster[0].LastName, Grade: "4", ClassLabel: "Mr. Ellis - 4A"},
		}
		if err := db.UpsertStudents(ctx, updated); err != nil {
			t.Fatalf("re-import: %v", err)
		}

		after, err := db.AllStudents(ctx)
		if err != nil {
			t.Fatal(err)
		}
		for _, s := range after {
			if s.StudentNumber == roster[0].StudentNumber {
				if s.ID != originalID {
					t.Errorf("stable id changed on re-import: %s -> %s", originalID, s.ID)
				}
				if s.Grade != "4" {
					t.Errorf("grade not updated: %s", s.Grade)
				}
			}
		}
	})

	t.Run("generation bumps on import", func(t *testing.T) {
		before, err := db.Generation()
		if err != nil {
			t.Fatal(err)
		}
		if err := db.UpsertStudents(ctx, students[:1]); err != nil {
			t.Fatal(err)
		}
		after, err := db.Generation()
		if err != nil {
			t.Fatal(err)
		}
		if after != before+1 {
			t.Errorf("generation = %d, want %d", after, before+1)
		}
	})
}

func TestAttendanceUniqueness(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.UpsertStudents(ctx, []model.Student{
		{StudentNumber: "1000001", FirstName: "Jane", LastName: "Doe", Grade: "3"},
	}); err != nil {
		t.Fatal(err)
	}
	roster, _ := db.AllStudents(ctx)
	id := roster[0].ID

	records := []model.AttendanceRecord{
		{StudentID: id, Date: day("2025-09-02"), Status: model.Present},
		{StudentID: id, Date: day("2025-09-03"), Status: model.Absent, Code: "U"},
		{StudentID: id, Date: day("2025-09-03"), Status: model.Tardy}, // same date, replaces
	}
	if err := db.InsertAttendance(ctx, records); err != nil {
		t.Fatalf("InsertAttendance: %v", err)
	}

	got, err := db.AttendanceForStudents(ctx, []string{id})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2 (one per date)", len(got))
	}
	if got[1].Status != model.Tardy {
		t.Errorf("conflicting record should replace: status = %s", got[1].Status)
	}
}

func TestRecordRoundTrips(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.UpsertStudents(ctx, []model.Student{
		{StudentNumber: "1000001", FirstName: "Jane", LastName: "Doe", Grade: "3", ClassLabel: "Ms. Rivera - 3B"},
	}); err != nil {
		t.Fatal(err)
	}
	roster, _ := db.AllStudents(ctx)
	id := roster[0].ID

	t.Run("grades keep import order", func(t *testing.T) {
		if err := db.InsertGrades(ctx, []model.GradeRecord{
			{StudentID: id, Subject: "Math", Period: "Q1", Raw: "80 S"},
			{StudentID: id, Subject: "Math", Period: "Q2", Raw: "85"},
			{StudentID: id, Subject: "Reading", Period: "Q1", Raw: "Incomplete"},
		}); err != nil {
			t.Fatal(err)
		}

		grades, err := db.GradesForStudents(ctx, []string{id})
		if err != nil {
			t.Fatal(err)
		}
		if len(grades) != 3 {
			t.Fatalf("got %d grades, want 3", len(grades))
		}
		if grades[0].Period != "Q1" || grades[1].Period != "Q2" {
			t.Errorf("grading-period order not preserved: %+v", grades)
		}
	})

	t.Run("assessment domains survive", func(t *testing.T) {
		if err := db.InsertAssessments(ctx, []model.AssessmentRecord{
			{StudentID: id, Family: "iReady Reading", Date: day("2025-09-10"), ScaleScore: 512, Percentile: 44,
				Domains: map[string]float64{"Phonics": 498, "Vocabulary": 520}},
		}); err != nil {
			t.Fatal(err)
		}

		assessments, err := db.AssessmentsForStudents(ctx, []string{id})
		if err != nil {
			t.Fatal(err)
		}
		if len(assessments) != 1 {
			t.Fatalf("got %d assessments, want 1", len(assessments))
		}
		if assessments[0].Domains["Phonics"] != 498 {
			t.Errorf("domain scores lost: %v", assessments[0].Domains)
		}
	})

	t.Run("observations match by class and by student", func(t *testing.T) {
		if err := db.InsertObservations(ctx, []model.ObservationNote{
			{ID: "obs-1", ClassLabel: "Ms. Rivera - 3B", Category: "engagement", Text: "whole-class session", Date: day("2025-09-12")},
			{ID: "obs-2", StudentID: id, ClassLabel: "Ms. Rivera - 3B", Category: "behavior", Text: "individual note", Date: day("2025-09-13")},
			{ID: "obs-3", ClassLabel: "Mr. Ellis - 4A", Category: "engagement", Text: "other class", Date: day("2025-09-12")},
		}); err != nil {
			t.Fatal(err)
		}

		notes, err := db.ObservationsFor(ctx, []string{"Ms. Rivera - 3B"}, []string{id})
		if err != nil {
			t.Fatal(err)
		}
		if len(notes) != 2 {
			t.Fatalf("got %d notes, want 2 (session by class + individual by id)", len(notes))
		}
	})

	t.Run("empty id set matches nothing", func(t *testing.T) {
		grades, err := db.GradesForStudents(ctx, nil)
		if err != nil {
			t.Fatalf("empty id set should not error: %v", err)
		}
		if len(grades) != 0 {
			t.Errorf("got %d grades for empty id set", len(grades))
		}
	})
}

func TestDeleteStudent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.UpsertStudents(ctx, []model.Student{
		{StudentNumber: "1000001", FirstName: "Jane", LastName: "Doe", Grade: "3"},
	}); err != nil {
		t.Fatal(err)
	}
	roster, _ := db.AllStudents(ctx)
	id := roster[0].ID

	if err := db.InsertAttendance(ctx, []model.AttendanceRecord{
		{StudentID: id, Date: day("2025-09-02"), Status: model.Present},
	}); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteStudent(ctx, id); err != nil {
		t.Fatalf("DeleteStudent: %v", err)
	}

	n, err := db.CountStudents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("roster size after delete = %d, want 0", n)
	}

	records, err := db.AttendanceForStudents(ctx, []string{id})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("owned records should cascade on delete, got %d", len(records))
	}
}
