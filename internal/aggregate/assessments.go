package aggregate

import (
	"sort"
	"strings"
	"time"

	"classlens/internal/model"
)

// Administration is one dated test sitting. Domains carries the family's
// sub-scores verbatim; families are never normalized against each other.
type Administration struct {
	Date       time.Time          `json:"date"`
	ScaleScore float64            `json:"scaleScore"`
	Percentile float64            `json:"percentile"`
	Domains    map[string]float64 `json:"domains,omitempty"`
}

// AssessmentSummary buckets one student's administrations by test family,
// newest first within each bucket
type AssessmentSummary struct {
	StudentID     string           `json:"studentId"`
	IReadyReading []Administration `json:"iReadyReading,omitempty"`
	IReadyMath    []Administration `json:"iReadyMath,omitempty"`
	FASTELA       []Administration `json:"fastEla,omitempty"`
	FASTMath      []Administration `json:"fastMath,omitempty"`
	FASTScience   []Administration `json:"fastScience,omitempty"`
	FASTWriting   []Administration `json:"fastWriting,omitempty"`
}

// summarizeAssessments groups administrations by student and family.
// Records from unrecognized families are dropped rather than guessed at.
func summarizeAssessments(ids []string, records []model.AssessmentRecord) []AssessmentSummary {
	byStudent := make(map[string][]model.AssessmentRecord)
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	var summaries []AssessmentSummary
	for _, id := range ids {
		recs := byStudent[id]
		if len(recs) == 0 {
			continue
		}
		s := summarizeStudentAssessments(id, recs)
		if s != nil {
			summaries = append(summaries, *s)
		}
	}
	return summaries
}

func summarizeStudentAssessments(id string, recs []model.AssessmentRecord) *AssessmentSummary {
	s := AssessmentSummary{StudentID: id}
	matched := false

	for _, rec := range recs {
		bucket := s.bucketFor(rec.Family)
		if bucket == nil {
			continue
		}
		matched = true
		*bucket = append(*bucket, Administration{
			Date:       rec.Date,
			ScaleScore: rec.ScaleScore,
			Percentile: rec.Percentile,
			Domains:    rec.Domains,
		})
	}
	if !matched {
		return nil
	}

	for _, bucket := range []*[]Administration{
		&s.IReadyReading, &s.IReadyMath, &s.FASTELA, &s.FASTMath, &s.FASTScience, &s.FASTWriting,
	} {
		admins := *bucket
		sort.SliceStable(admins, func(i, j int) bool { return admins[i].Date.After(admins[j].Date) })
	}

	return &s
}

// bucketFor maps a district family label onto one of the six typed buckets
func (s *AssessmentSummary) bucketFor(family string) *[]Administration {
	switch normalizeFamily(family) {
	case "iready reading":
		return &s.IReadyReading
	case "iready math":
		return &s.IReadyMath
	case "fast ela":
		return &s.FASTELA
	case "fast math":
		return &s.FASTMath
	case "fast science":
		return &s.FASTScience
	case "fast writing":
		return &s.FASTWriting
	}
	return nil
}

func normalizeFamily(family string) string {
	f := strings.ToLower(strings.TrimSpace(family))
	f = strings.ReplaceAll(f, "-", " ")
	return strings.Join(strings.Fields(f), " ")
}
