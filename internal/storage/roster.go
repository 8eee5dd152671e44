package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"classlens/internal/model"
)

const dateOnly = "2006-01-02"

// UpsertStudents imports or re-imports roster entries. Matching is by district
// student number; an existing student keeps its stable ID across re-imports.
// The roster generation counter is bumped once per call.
func (db *DB) UpsertStudents(ctx context.Context, students []model.Student) error {
	return db.WithTx(func(tx *sql.Tx) error {
		for _, s := range students {
			var existingID string
			err := tx.QueryRowContext(ctx,
				`SELECT id FROM students WHERE student_number = ?`, s.StudentNumber,
			).Scan(&existingID)

			switch {
			case err == sql.ErrNoRows:
				id := s.ID
				if id == "" {
					id = uuid.NewString()
				}
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO students (id, student_number, first_name, last_name, grade, class_label, gender, birth_date)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
					id, s.StudentNumber, s.FirstName, s.LastName, s.Grade, s.ClassLabel, s.Gender, formatBirthDate(s.BirthDate),
				); err != nil {
					return fmt.Errorf("failed to insert student %s: %w", s.StudentNumber, err)
				}
			case err != nil:
				return fmt.Errorf("failed to look up student %s: %w", s.StudentNumber, err)
			default:
				if _, err := tx.ExecContext(ctx,
					`UPDATE students SET first_name = ?, last_name = ?, grade = ?, class_label = ?, gender = ?, birth_date = ?
					 WHERE id = ?`,
					s.FirstName, s.LastName, s.Grade, s.ClassLabel, s.Gender, formatBirthDate(s.BirthDate), existingID,
				); err != nil {
					return fmt.Errorf("failed to update student %s: %w", s.StudentNumber, err)
				}
			}
		}

		return bumpGeneration(tx)
	})
}

// DeleteStudent removes a student and all owned records (privacy-erasure request)
func (db *DB) DeleteStudent(ctx context.Context, id string) error {
	return db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete student: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM observations WHERE student_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete observation notes: %w", err)
		}
		return bumpGeneration(tx)
	})
}

// AllStudents returns the full roster (full-table scan for resolver fallback)
func (db *DB) AllStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, student_number, first_name, last_name, grade, class_label, gender, birth_date
		 FROM students ORDER BY last_name, first_name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		var birth string
		if err := rows.Scan(&s.ID, &s.StudentNumber, &s.FirstName, &s.LastName, &s.Grade, &s.ClassLabel, &s.Gender, &birth); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		if birth != "" {
			if t, err := time.Parse(dateOnly, birth); err == nil {
				s.BirthDate = t
			}
		}
		students = append(students, s)
	}

	return students, rows.Err()
}

// CountStudents returns the roster size
func (db *DB) CountStudents(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n)
	return n, err
}

func formatBirthDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateOnly)
}
