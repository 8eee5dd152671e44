// Package budget applies category-specific truncation policies so the
// assembled context fits the downstream consumer's size budget. Policies are
// selected by keyword-sniffing the original question text, not the parsed
// query, and are applied only when the candidate set is large or the
// question is a ranking query.
package budget

import (
	"regexp"

	"classlens/internal/aggregate"
	"classlens/internal/config"
)

// Policy is the truncation policy selected for a question
type Policy string

const (
	// PolicyGradeFocused keeps grade detail and strips the rest
	PolicyGradeFocused Policy = "grade-focused"

	// PolicyAttendanceFocused keeps attendance untouched and drops the other sources
	PolicyAttendanceFocused Policy = "attendance-focused"

	// PolicyDisciplineFocused keeps discipline and shrinks attendance to its totals
	PolicyDisciplineFocused Policy = "discipline-focused"

	// PolicyDefault keeps a small recent slice of everything
	PolicyDefault Policy = "default"
)

// TruncationInfo records what one source lost to budgeting
type TruncationInfo struct {
	// Source names the record category that was truncated
	Source string `json:"source"`

	// Detail names what was dropped within the source
	Detail string `json:"detail"`

	// OriginalCount is the total number of items before truncation
	OriginalCount int `json:"originalCount"`

	// ReturnedCount is the number of items actually returned
	ReturnedCount int `json:"returnedCount"`

	// DroppedCount is the number of items that were dropped
	DroppedCount int `json:"droppedCount"`
}

// WasTruncated returns true if any data was dropped
func (t *TruncationInfo) WasTruncated() bool {
	return t != nil && t.DroppedCount > 0
}

var (
	gradeFocusRe      = regexp.MustCompile(`(?i)\b(gpa|grades?|academ\w*|report card)\b`)
	attendanceFocusRe = regexp.MustCompile(`(?i)\b(attendance|absen\w*|tard\w*|present)\b`)
	disciplineFocusRe = regexp.MustCompile(`(?i)\b(discipline|behavior\w*|incidents?|referrals?|suspen\w*)\b`)
)

// ClassifyQuestion sniffs the original question for a category focus.
// Grade keywords win over attendance, attendance over discipline; a question
// matching none gets the default mixed policy.
func ClassifyQuestion(question string) Policy {
	switch {
	case gradeFocusRe.MatchString(question):
		return PolicyGradeFocused
	case attendanceFocusRe.MatchString(question):
		return PolicyAttendanceFocused
	case disciplineFocusRe.MatchString(question):
		return PolicyDisciplineFocused
	default:
		return PolicyDefault
	}
}

// Budgeter applies truncation policies to aggregated results
type Budgeter struct {
	cfg config.BudgetConfig
}

// New creates a Budgeter with the configured caps
func New(cfg config.BudgetConfig) *Budgeter {
	return &Budgeter{cfg: cfg}
}

// ShouldBudget reports whether budgeting must run for this request. A large
// candidate set and a ranking question each force it independently.
func (b *Budgeter) ShouldBudget(candidateCount int, rankingQuery bool) bool {
	return candidateCount > b.cfg.TriggerCandidateCount || rankingQuery
}

// Apply returns a budgeted copy of the result under the given policy,
// together with truncation records for everything that was dropped. The
// input result is never mutated.
func (b *Budgeter) Apply(result *aggregate.Result, policy Policy) (*aggregate.Result, []TruncationInfo) {
	out := *result
	var truncations []TruncationInfo

	record := func(source, detail string, original, returned int) {
		if original > returned {
			truncations = append(truncations, TruncationInfo{
				Source:        source,
				Detail:        detail,
				OriginalCount: original,
				ReturnedCount: returned,
				DroppedCount:  original - returned,
			})
		}
	}

	switch policy {
	case PolicyGradeFocused:
		out.Attendance = truncateAttendance(result.Attendance, 0, b.cfg.GradeFocusMonths, record)
		out.Discipline = stripIncidentDetail(result.Discipline, record)
		out.Assessments = truncateAssessments(result.Assessments, 1, record)

	case PolicyAttendanceFocused:
		record("grades", "summaries", len(result.Grades), 0)
		record("discipline", "summaries", len(result.Discipline), 0)
		record("assessments", "summaries", len(result.Assessments), 0)
		out.Grades = nil
		out.Discipline = nil
		out.Assessments = nil

	case PolicyDisciplineFocused:
		record("grades", "summaries", len(result.Grades), 0)
		record("assessments", "summaries", len(result.Assessments), 0)
		out.Grades = nil
		out.Assessments = nil
		out.Attendance = truncateAttendance(result.Attendance, 0, 0, record)

	default:
		out.Attendance = truncateAttendance(result.Attendance, b.cfg.DefaultRecentAttendance, b.cfg.DefaultMonths, record)
		out.Discipline = truncateDiscipline(result.Discipline, b.cfg.DefaultIncidents, record)
		out.Assessments = truncateAssessments(result.Assessments, b.cfg.DefaultAssessments, record)
	}

	return &out, truncations
}

type recordFunc func(source, detail string, original, returned int)

// truncateAttendance caps each summary's daily records and monthly breakdown,
// keeping the most recent entries. A zero cap drops the list entirely.
func truncateAttendance(summaries []aggregate.AttendanceSummary, recordCap, monthCap int, record recordFunc) []aggregate.AttendanceSummary {
	if len(summaries) == 0 {
		return nil
	}

	out := make([]aggregate.AttendanceSummary, len(summaries))
	var origRecords, keptRecords, origMonths, keptMonths int
	for i, s := range summaries {
		origRecords += len(s.Records)
		origMonths += len(s.Monthly)

		s.Records = tail(s.Records, recordCap)
		s.Monthly = tail(s.Monthly, monthCap)

		keptRecords += len(s.Records)
		keptMonths += len(s.Monthly)
		out[i] = s
	}

	record("attendance", "daily records", origRecords, keptRecords)
	record("attendance", "monthly breakdown", origMonths, keptMonths)
	return out
}

// stripIncidentDetail keeps discipline counts and trends but drops the
// incident narratives
func stripIncidentDetail(summaries []aggregate.DisciplineSummary, record recordFunc) []aggregate.DisciplineSummary {
	if len(summaries) == 0 {
		return nil
	}

	out := make([]aggregate.DisciplineSummary, len(summaries))
	var orig int
	for i, s := range summaries {
		orig += len(s.Incidents)
		s.Incidents = nil
		out[i] = s
	}

	record("discipline", "incident detail", orig, 0)
	return out
}

// truncateDiscipline caps each summary's incident list to the most recent n
func truncateDiscipline(summaries []aggregate.DisciplineSummary, incidentCap int, record recordFunc) []aggregate.DisciplineSummary {
	if len(summaries) == 0 {
		return nil
	}

	out := make([]aggregate.DisciplineSummary, len(summaries))
	var orig, kept int
	for i, s := range summaries {
		orig += len(s.Incidents)
		// incidents are stored newest first, so the cap keeps the head
		if len(s.Incidents) > incidentCap {
			s.Incidents = s.Incidents[:incidentCap]
		}
		kept += len(s.Incidents)
		out[i] = s
	}

	record("discipline", "incidents", orig, kept)
	return out
}

// truncateAssessments caps every family bucket to its most recent n entries
func truncateAssessments(summaries []aggregate.AssessmentSummary, bucketCap int, record recordFunc) []aggregate.AssessmentSummary {
	if len(summaries) == 0 {
		return nil
	}

	out := make([]aggregate.AssessmentSummary, len(summaries))
	var orig, kept int
	capBucket := func(bucket []aggregate.Administration) []aggregate.Administration {
		orig += len(bucket)
		// buckets are newest first
		if len(bucket) > bucketCap {
			bucket = bucket[:bucketCap]
		}
		kept += len(bucket)
		return bucket
	}

	for i, s := range summaries {
		s.IReadyReading = capBucket(s.IReadyReading)
		s.IReadyMath = capBucket(s.IReadyMath)
		s.FASTELA = capBucket(s.FASTELA)
		s.FASTMath = capBucket(s.FASTMath)
		s.FASTScience = capBucket(s.FASTScience)
		s.FASTWriting = capBucket(s.FASTWriting)
		out[i] = s
	}

	record("assessments", "administrations", orig, kept)
	return out
}

// tail keeps the last n entries of a chronological slice; a zero cap drops
// everything
func tail[T any](entries []T, n int) []T {
	if n <= 0 {
		return nil
	}
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
