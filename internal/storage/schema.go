package storage

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// initializeSchema creates all tables if they do not exist
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		statements := []string{
			`CREATE TABLE IF NOT EXISTS meta (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS students (
				id             TEXT PRIMARY KEY,
				student_number TEXT NOT NULL UNIQUE,
				first_name     TEXT NOT NULL,
				last_name      TEXT NOT NULL,
				grade          TEXT NOT NULL,
				class_label    TEXT NOT NULL DEFAULT '',
				gender         TEXT NOT NULL DEFAULT '',
				birth_date     TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS attendance (
				student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
				date       TEXT NOT NULL,
				status     TEXT NOT NULL,
				code       TEXT NOT NULL DEFAULT '',
				UNIQUE (student_id, date)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(student_id)`,
			`CREATE TABLE IF NOT EXISTS grades (
				student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
				subject    TEXT NOT NULL,
				period     TEXT NOT NULL,
				raw        TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_grades_student ON grades(student_id)`,
			`CREATE TABLE IF NOT EXISTS assessments (
				student_id  TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
				family      TEXT NOT NULL,
				date        TEXT NOT NULL,
				scale_score REAL NOT NULL,
				percentile  REAL NOT NULL,
				domains     TEXT NOT NULL DEFAULT '{}'
			)`,
			`CREATE INDEX IF NOT EXISTS idx_assessments_student ON assessments(student_id)`,
			`CREATE TABLE IF NOT EXISTS discipline (
				student_id   TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
				date         TEXT NOT NULL,
				type         TEXT NOT NULL,
				severity     TEXT NOT NULL,
				location     TEXT NOT NULL DEFAULT '',
				narrative    TEXT NOT NULL DEFAULT '',
				action_taken TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_discipline_student ON discipline(student_id)`,
			`CREATE TABLE IF NOT EXISTS observations (
				id          TEXT PRIMARY KEY,
				student_id  TEXT NOT NULL DEFAULT '',
				class_label TEXT NOT NULL,
				category    TEXT NOT NULL,
				text        TEXT NOT NULL,
				date        TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_observations_class ON observations(class_label)`,
		}

		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("schema statement failed: %w", err)
			}
		}

		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
			fmt.Sprintf("%d", currentSchemaVersion),
		); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO meta (key, value) VALUES ('roster_generation', '0')`,
		); err != nil {
			return err
		}

		return nil
	})
}

// Generation returns the roster generation counter. It is bumped on every
// import and serves as the invalidation key for cached roster snapshots.
func (db *DB) Generation() (int64, error) {
	var gen int64
	err := db.conn.QueryRow(
		`SELECT CAST(value AS INTEGER) FROM meta WHERE key = 'roster_generation'`,
	).Scan(&gen)
	if err != nil {
		return 0, fmt.Errorf("failed to read roster generation: %w", err)
	}
	return gen, nil
}

// bumpGeneration increments the roster generation counter inside a transaction
func bumpGeneration(tx *sql.Tx) error {
	_, err := tx.Exec(
		`UPDATE meta SET value = CAST(CAST(value AS INTEGER) + 1 AS TEXT) WHERE key = 'roster_generation'`,
	)
	return err
}
