package engine

import (
	"time"

	"classlens/internal/aggregate"
	"classlens/internal/budget"
	"classlens/internal/interpreter"
	"classlens/internal/metrics"
	"classlens/internal/model"
	"classlens/internal/profile"
)

// CandidateStudent is the roster view of one resolved candidate, with the
// coarse composite risk bucket attached
type CandidateStudent struct {
	ID            string            `json:"id"`
	StudentNumber string            `json:"studentNumber,omitempty"`
	FirstName     string            `json:"firstName"`
	LastName      string            `json:"lastName"`
	Grade         string            `json:"grade"`
	ClassLabel    string            `json:"classLabel,omitempty"`
	Risk          metrics.RiskLevel `json:"risk"`
}

// SummaryStats are the top-level numbers computed over the full (unbudgeted)
// aggregation
type SummaryStats struct {
	RosterCount           int            `json:"rosterCount"`
	CandidateCount        int            `json:"candidateCount"`
	AverageAttendanceRate float64        `json:"averageAttendanceRate"`
	AverageGPA            float64        `json:"averageGpa"`
	ChronicallyAbsent     int            `json:"chronicallyAbsent"`
	FlaggedStudents       int            `json:"flaggedStudents"`
	RiskCounts            map[string]int `json:"riskCounts,omitempty"`
}

// BudgetingInfo records the truncation pass, when one ran
type BudgetingInfo struct {
	Policy      budget.Policy           `json:"policy"`
	Truncations []budget.TruncationInfo `json:"truncations,omitempty"`
}

// StudentDataContext is the full aggregated, derived, and budgeted payload.
// It is the contract boundary with the downstream LLM client, which owns
// serialization format and token accounting beyond the budgeting pass here.
type StudentDataContext struct {
	Question string                 `json:"question"`
	Query    interpreter.ParsedQuery `json:"query"`

	Students []CandidateStudent `json:"students,omitempty"`
	Data     *aggregate.Result  `json:"data"`
	Profiles []profile.RiskProfile `json:"profiles,omitempty"`

	Summary   SummaryStats   `json:"summary"`
	Budgeting *BudgetingInfo `json:"budgeting,omitempty"`

	// FetchedAt is wall-clock metadata only and is excluded from
	// idempotence comparisons
	FetchedAt time.Time `json:"fetchedAt"`
}

// EmptyContext returns a fully-formed context with every array empty. It is
// what the outer recovery boundary hands back when the pipeline fails.
func EmptyContext(question string, fetchedAt time.Time) *StudentDataContext {
	return &StudentDataContext{
		Question:  question,
		Query:     interpreter.ParsedQuery{Intent: interpreter.IntentAnalysis},
		Data:      &aggregate.Result{},
		Summary:   SummaryStats{},
		FetchedAt: fetchedAt,
	}
}

func candidateStudents(students []model.Student, riskFor func(id string) metrics.RiskLevel) []CandidateStudent {
	out := make([]CandidateStudent, 0, len(students))
	for _, s := range students {
		out = append(out, CandidateStudent{
			ID:            s.ID,
			StudentNumber: s.StudentNumber,
			FirstName:     s.FirstName,
			LastName:      s.LastName,
			Grade:         s.Grade,
			ClassLabel:    s.ClassLabel,
			Risk:          riskFor(s.ID),
		})
	}
	return out
}
