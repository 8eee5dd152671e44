package aggregate

import (
	"classlens/internal/metrics"
	"classlens/internal/model"
	"classlens/internal/output"
)

// GradeEntry is one grading-period entry. Raw is preserved verbatim; Score
// is only meaningful when Numeric is true. Non-numeric entries ("Incomplete")
// stay in the history but never enter any average.
type GradeEntry struct {
	Period  string  `json:"period"`
	Raw     string  `json:"raw"`
	Score   float64 `json:"score,omitempty"`
	Numeric bool    `json:"numeric"`
	Passing bool    `json:"passing"`
}

// SubjectSummary is the per-subject grade view. History is the full entry
// list in grading-period order; Recent is the tail of that list.
type SubjectSummary struct {
	Subject   string       `json:"subject"`
	Average   float64      `json:"average"`
	Min       float64      `json:"min"`
	Max       float64      `json:"max"`
	PassCount int          `json:"passCount"`
	FailCount int          `json:"failCount"`
	Recent    []GradeEntry `json:"recent,omitempty"`
	History   []GradeEntry `json:"history,omitempty"`
}

// GradesSummary is the normalized grade view for one student
type GradesSummary struct {
	StudentID      string            `json:"studentId"`
	OverallAverage float64           `json:"overallAverage"`
	GPA            float64           `json:"gpa"`
	LetterGrade    string            `json:"letterGrade"`
	Trend          metrics.Direction `json:"trend"`
	Subjects       []SubjectSummary  `json:"subjects,omitempty"`
}

// summarizeGrades groups records by student and subject, preserving the
// store's grading-period order within each subject. Students whose entries
// are all non-numeric still appear (with zero averages) because the raw
// history itself is data.
func summarizeGrades(ids []string, records []model.GradeRecord, passingGrade float64, recentN int) []GradesSummary {
	byStudent := make(map[string][]model.GradeRecord)
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	var summaries []GradesSummary
	for _, id := range ids {
		recs := byStudent[id]
		if len(recs) == 0 {
			continue
		}
		summaries = append(summaries, summarizeStudentGrades(id, recs, passingGrade, recentN))
	}
	return summaries
}

func summarizeStudentGrades(id string, recs []model.GradeRecord, passingGrade float64, recentN int) GradesSummary {
	s := GradesSummary{StudentID: id}

	subjectIndex := make(map[string]int)
	var allScores []float64 // chronological across subjects, numeric entries only

	for _, rec := range recs {
		idx, ok := subjectIndex[rec.Subject]
		if !ok {
			idx = len(s.Subjects)
			subjectIndex[rec.Subject] = idx
			s.Subjects = append(s.Subjects, SubjectSummary{Subject: rec.Subject})
		}
		sub := &s.Subjects[idx]

		entry := GradeEntry{Period: rec.Period, Raw: rec.Raw}
		if score, numeric := rec.NumericGrade(); numeric {
			entry.Numeric = true
			entry.Score = score
			entry.Passing = score >= passingGrade
			allScores = append(allScores, score)
		}
		sub.History = append(sub.History, entry)
	}

	for i := range s.Subjects {
		sub := &s.Subjects[i]

		var sum float64
		var count int
		for _, e := range sub.History {
			if !e.Numeric {
				continue
			}
			if count == 0 || e.Score < sub.Min {
				sub.Min = e.Score
			}
			if count == 0 || e.Score > sub.Max {
				sub.Max = e.Score
			}
			if e.Passing {
				sub.PassCount++
			} else {
				sub.FailCount++
			}
			sum += e.Score
			count++
		}
		if count > 0 {
			sub.Average = output.Round1(sum / float64(count))
		}

		if n := len(sub.History); n > recentN {
			sub.Recent = sub.History[n-recentN:]
		} else {
			sub.Recent = sub.History
		}
	}

	if len(allScores) > 0 {
		var sum float64
		for _, v := range allScores {
			sum += v
		}
		s.OverallAverage = output.Round1(sum / float64(len(allScores)))
		s.GPA, s.LetterGrade = metrics.GPAFromAverage(s.OverallAverage)
	} else {
		s.LetterGrade = ""
	}
	s.Trend = metrics.GradeTrend(allScores)

	return s
}
