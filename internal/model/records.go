package model

import (
	"strconv"
	"strings"
	"time"
)

// AttendanceStatus is one of the three daily attendance outcomes
type AttendanceStatus string

const (
	// Present indicates the student attended
	Present AttendanceStatus = "present"
	// Absent indicates the student did not attend
	Absent AttendanceStatus = "absent"
	// Tardy indicates the student arrived late
	Tardy AttendanceStatus = "tardy"
)

// AttendanceRecord is one (student, calendar date) attendance outcome.
// Uniqueness is enforced by the store: one record per (StudentID, Date).
type AttendanceRecord struct {
	StudentID string           `json:"studentId"`
	Date      time.Time        `json:"date"`
	Status    AttendanceStatus `json:"status"`
	Code      string           `json:"code,omitempty"`
}

// GradeRecord is one raw grade entry for a (student, subject, grading period).
// Raw holds the district's grade string, e.g. "80 S" or "Incomplete".
type GradeRecord struct {
	StudentID string `json:"studentId"`
	Subject   string `json:"subject"`
	Period    string `json:"period"`
	Raw       string `json:"raw"`
}

// NumericGrade extracts the leading numeric token from the raw grade string.
// Strings with no leading digit ("Incomplete", "N/A") return ok=false and are
// dropped from arithmetic, never coerced to zero.
func (g GradeRecord) NumericGrade() (float64, bool) {
	raw := strings.TrimSpace(g.Raw)
	if raw == "" {
		return 0, false
	}

	end := 0
	for end < len(raw) && (raw[end] >= '0' && raw[end] <= '9' || raw[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, false
	}

	val, err := strconv.ParseFloat(raw[:end], 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// AssessmentRecord is one dated administration of a standardized test.
// Domains carries the test-family-specific sub-scores verbatim; no
// cross-family normalization is attempted.
type AssessmentRecord struct {
	StudentID  string             `json:"studentId"`
	Family     string             `json:"family"` // e.g. "iReady Reading", "FAST Math"
	Date       time.Time          `json:"date"`
	ScaleScore float64            `json:"scaleScore"`
	Percentile float64            `json:"percentile"`
	Domains    map[string]float64 `json:"domains,omitempty"`
}

// DisciplineIncident is one dated discipline event
type DisciplineIncident struct {
	StudentID   string    `json:"studentId"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Location    string    `json:"location,omitempty"`
	Narrative   string    `json:"narrative,omitempty"`
	ActionTaken string    `json:"actionTaken,omitempty"`
}

// ObservationNote is a free-text classroom-observation note. Session-level
// notes cover a whole classroom and carry only ClassLabel; individual notes
// carry a StudentID as well.
type ObservationNote struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"studentId,omitempty"`
	ClassLabel string    `json:"classLabel"`
	Category   string    `json:"category"`
	Text       string    `json:"text"`
	Date       time.Time `json:"date"`
}
