package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"classlens/internal/model"
)

// placeholders builds "?, ?, ?" for an IN clause
func placeholders(n int) string {
	if n == 0 {
		return "''" // matches nothing
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// InsertAttendance stores attendance records; one record per (student, date)
// is enforced by replacing on conflict so re-imports stay idempotent.
func (db *DB) InsertAttendance(ctx context.Context, records []model.AttendanceRecord) error {
	return db.WithTx(func(tx *sql.Tx) error {
		for _, r := range records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO attendance (student_id, date, status, code) VALUES (?, ?, ?, ?)
				 ON CONFLICT (student_id, date) DO UPDATE SET status = excluded.status, code = excluded.code`,
				r.StudentID, r.Date.Format(dateOnly), string(r.Status), r.Code,
			); err != nil {
				return fmt.Errorf("failed to insert attendance record: %w", err)
			}
		}
		return bumpGeneration(tx)
	})
}

// AttendanceForStudents returns all attendance records for the id set,
// ordered chronologically
func (db *DB) AttendanceForStudents(ctx context.Context, ids []string) ([]model.AttendanceRecord, error) {
	query := fmt.Sprintf(
		`SELECT student_id, date, status, code FROM attendance
		 WHERE student_id IN (%s) ORDER BY date, student_id`, placeholders(len(ids)))

	rows, err := db.conn.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		var r model.AttendanceRecord
		var date, status string
		if err := rows.Scan(&r.StudentID, &date, &status, &r.Code); err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		t, err := time.Parse(dateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("malformed attendance date %q: %w", date, err)
		}
		r.Date = t
		r.Status = model.AttendanceStatus(status)
		records = append(records, r)
	}

	return records, rows.Err()
}

// InsertGrades stores raw grade entries
func (db *DB) InsertGrades(ctx context.Context, records []model.GradeRecord) error {
	return db.WithTx(func(tx *sql.Tx) error {
		for _, r := range records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO grades (student_id, subject, period, raw) VALUES (?, ?, ?, ?)`,
				r.StudentID, r.Subject, r.Period, r.Raw,
			); err != nil {
				return fmt.Errorf("failed to insert grade record: %w", err)
			}
		}
		return bumpGeneration(tx)
	})
}

// GradesForStudents returns all grade entries for the id set in rowid order,
// which preserves the grading-period ordering of the import
func (db *DB) GradesForStudents(ctx context.Context, ids []string) ([]model.GradeRecord, error) {
	query := fmt.Sprintf(
		`SELECT student_id, subject, period, raw FROM grades
		 WHERE student_id IN (%s) ORDER BY rowid`, placeholders(len(ids)))

	rows, err := db.conn.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grades: %w", err)
	}
	defer rows.Close()

	var records []model.GradeRecord
	for rows.Next() {
		var r model.GradeRecord
		if err := rows.Scan(&r.StudentID, &r.Subject, &r.Period, &r.Raw); err != nil {
			return nil, fmt.Errorf("failed to scan grade record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// InsertAssessments stores standardized-assessment administrations
func (db *DB) InsertAssessments(ctx context.Context, records []model.AssessmentRecord) error {
	return db.WithTx(func(tx *sql.Tx) error {
		for _, r := range records {
			domains, err := json.Marshal(r.Domains)
			if err != nil {
				return fmt.Errorf("failed to encode domain scores: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO assessments (student_id, family, date, scale_score, percentile, domains)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				r.StudentID, r.Family, r.Date.Format(dateOnly), r.ScaleScore, r.Percentile, string(domains),
			); err != nil {
				return fmt.Errorf("failed to insert assessment record: %w", err)
			}
		}
		return bumpGeneration(tx)
	})
}

// AssessmentsForStudents returns all assessment administrations for the id set
func (db *DB) AssessmentsForStudents(ctx context.Context, ids []string) ([]model.AssessmentRecord, error) {
	query := fmt.Sprintf(
		`SELECT student_id, family, date, scale_score, percentile, domains FROM assessments
		 WHERE student_id IN (%s) ORDER BY date, student_id`, placeholders(len(ids)))

	rows, err := db.conn.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	var records []model.AssessmentRecord
	for rows.Next() {
		var r model.AssessmentRecord
		var date, domains string
		if err := rows.Scan(&r.StudentID, &r.Family, &date, &r.ScaleScore, &r.Percentile, &domains); err != nil {
			return nil, fmt.Errorf("failed to scan assessment record: %w", err)
		}
		t, err := time.Parse(dateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("malformed assessment date %q: %w", date, err)
		}
		r.Date = t
		if domains != "" && domains != "{}" {
			if err := json.Unmarshal([]byte(domains), &r.Domains); err != nil {
				return nil, fmt.Errorf("malformed domain scores: %w", err)
			}
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// InsertDiscipline stores discipline incidents
func (db *DB) InsertDiscipline(ctx context.Context, records []model.DisciplineIncident) error {
	return db.WithTx(func(tx *sql.Tx) error {
		for _, r := range records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO discipline (student_id, date, type, severity, location, narrative, action_taken)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				r.StudentID, r.Date.Format(dateOnly), r.Type, r.Severity, r.Location, r.Narrative, r.ActionTaken,
			); err != nil {
				return fmt.Errorf("failed to insert discipline incident: %w", err)
			}
		}
		return bumpGeneration(tx)
	})
}

// DisciplineForStudents returns all incidents for the id set
func (db *DB) DisciplineForStudents(ctx context.Context, ids []string) ([]model.DisciplineIncident, error) {
	query := fmt.Sprintf(
		`SELECT student_id, date, type, severity, location, narrative, action_taken FROM discipline
		 WHERE student_id IN (%s) ORDER BY date, student_id`, placeholders(len(ids)))

	rows, err := db.conn.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query discipline incidents: %w", err)
	}
	defer rows.Close()

	var records []model.DisciplineIncident
	for rows.Next() {
		var r model.DisciplineIncident
		var date string
		if err := rows.Scan(&r.StudentID, &date, &r.Type, &r.Severity, &r.Location, &r.Narrative, &r.ActionTaken); err != nil {
			return nil, fmt.Errorf("failed to scan discipline incident: %w", err)
		}
		t, err := time.Parse(dateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("malformed incident date %q: %w", date, err)
		}
		r.Date = t
		records = append(records, r)
	}

	return records, rows.Err()
}

// InsertObservations stores classroom-observation notes
func (db *DB) InsertObservations(ctx context.Context, notes []model.ObservationNote) error {
	return db.WithTx(func(tx *sql.Tx) error {
		for _, n := range notes {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO observations (id, student_id, class_label, category, text, date)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				n.ID, n.StudentID, n.ClassLabel, n.Category, n.Text, n.Date.Format(dateOnly),
			); err != nil {
				return fmt.Errorf("failed to insert observation note: %w", err)
			}
		}
		return bumpGeneration(tx)
	})
}

// ObservationsFor returns session notes for any of the class labels plus
// individual notes for any of the student ids. Session notes are matched by
// class because one observation session covers a whole classroom.
func (db *DB) ObservationsFor(ctx context.Context, classLabels, studentIDs []string) ([]model.ObservationNote, error) {
	query := fmt.Sprintf(
		`SELECT id, student_id, class_label, category, text, date FROM observations
		 WHERE (student_id = '' AND class_label IN (%s)) OR student_id IN (%s)
		 ORDER BY date, id`,
		placeholders(len(classLabels)), placeholders(len(studentIDs)))

	args := append(idArgs(classLabels), idArgs(studentIDs)...)
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query observation notes: %w", err)
	}
	defer rows.Close()

	var notes []model.ObservationNote
	for rows.Next() {
		var n model.ObservationNote
		var date string
		if err := rows.Scan(&n.ID, &n.StudentID, &n.ClassLabel, &n.Category, &n.Text, &date); err != nil {
			return nil, fmt.Errorf("failed to scan observation note: %w", err)
		}
		t, err := time.Parse(dateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("malformed observation date %q: %w", date, err)
		}
		n.Date = t
		notes = append(notes, n)
	}

	return notes, rows.Err()
}

// SourceCounts returns per-source record counts for the status command
func (db *DB) SourceCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"students", "attendance", "grades", "assessments", "discipline", "observations"} {
		var n int
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
