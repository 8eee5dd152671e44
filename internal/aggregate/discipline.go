package aggregate

import (
	"sort"
	"time"

	"classlens/internal/metrics"
	"classlens/internal/model"
)

// DisciplineSummary is the normalized discipline view for one student.
// Incidents are newest first. The trend compares the most recent window
// against the window immediately before it.
type DisciplineSummary struct {
	StudentID         string                     `json:"studentId"`
	TotalIncidents    int                        `json:"totalIncidents"`
	RecentWindowCount int                        `json:"recentWindowCount"`
	PriorWindowCount  int                        `json:"priorWindowCount"`
	Trend             metrics.Direction          `json:"trend"`
	Incidents         []model.DisciplineIncident `json:"incidents,omitempty"`
}

// summarizeDiscipline groups incidents by student. Students with a clean
// record are omitted rather than listed with zero incidents.
func summarizeDiscipline(ids []string, records []model.DisciplineIncident, windowDays int, now time.Time) []DisciplineSummary {
	byStudent := make(map[string][]model.DisciplineIncident)
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	recentStart := now.AddDate(0, 0, -windowDays)
	priorStart := now.AddDate(0, 0, -2*windowDays)

	var summaries []DisciplineSummary
	for _, id := range ids {
		incidents := byStudent[id]
		if len(incidents) == 0 {
			continue
		}

		sort.SliceStable(incidents, func(i, j int) bool { return incidents[i].Date.After(incidents[j].Date) })

		s := DisciplineSummary{
			StudentID:      id,
			TotalIncidents: len(incidents),
			Incidents:      incidents,
		}
		for _, inc := range incidents {
			switch {
			case inc.Date.After(recentStart):
				s.RecentWindowCount++
			case inc.Date.After(priorStart):
				s.PriorWindowCount++
			}
		}
		s.Trend = metrics.BehaviorTrend(s.RecentWindowCount, s.PriorWindowCount)

		summaries = append(summaries, s)
	}
	return summaries
}
