package aggregate

import (
	"sort"
	"time"

	"classlens/internal/metrics"
	"classlens/internal/model"
	"classlens/internal/output"
)

// DailyRecord is one attendance day with human-readable labels so the
// consumer never has to parse ISO dates
type DailyRecord struct {
	Date    time.Time `json:"date"`
	Weekday string    `json:"weekday"`
	Status  string    `json:"status"`
	Code    string    `json:"code,omitempty"`
}

// MonthlyRate is the attendance breakdown for one calendar month
type MonthlyRate struct {
	Month   string  `json:"month"` // e.g. "September 2025"
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Tardy   int     `json:"tardy"`
	Total   int     `json:"total"`
	Rate    float64 `json:"rate"`
}

// AttendanceSummary is the normalized attendance view for one student.
// Counts always reconcile: PresentDays + AbsentDays + TardyDays == TotalDays,
// and Rate is PresentDays / TotalDays expressed as a percentage.
type AttendanceSummary struct {
	StudentID         string            `json:"studentId"`
	TotalDays         int               `json:"totalDays"`
	PresentDays       int               `json:"presentDays"`
	AbsentDays        int               `json:"absentDays"`
	TardyDays         int               `json:"tardyDays"`
	Rate              float64           `json:"rate"`
	ChronicallyAbsent bool              `json:"chronicallyAbsent"`
	Trend             metrics.Direction `json:"trend"`
	Monthly           []MonthlyRate     `json:"monthly,omitempty"`
	Records           []DailyRecord     `json:"records,omitempty"`
}

// summarizeAttendance groups records by student and derives rates, the
// chronic-absenteeism flag, monthly breakdowns, and the attendance trend.
// Students with no attendance records are omitted.
func summarizeAttendance(ids []string, records []model.AttendanceRecord, chronicRate float64) []AttendanceSummary {
	byStudent := make(map[string][]model.AttendanceRecord)
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	var summaries []AttendanceSummary
	for _, id := range ids {
		recs := byStudent[id]
		if len(recs) == 0 {
			continue
		}
		summaries = append(summaries, summarizeStudentAttendance(id, recs, chronicRate))
	}
	return summaries
}

func summarizeStudentAttendance(id string, recs []model.AttendanceRecord, chronicRate float64) AttendanceSummary {
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })

	s := AttendanceSummary{StudentID: id, TotalDays: len(recs)}

	monthIndex := make(map[string]int)
	for _, rec := range recs {
		switch rec.Status {
		case model.Present:
			s.PresentDays++
		case model.Absent:
			s.AbsentDays++
		case model.Tardy:
			s.TardyDays++
		}

		label := rec.Date.Format("January 2006")
		idx, ok := monthIndex[label]
		if !ok {
			idx = len(s.Monthly)
			monthIndex[label] = idx
			s.Monthly = append(s.Monthly, MonthlyRate{Month: label})
		}
		m := &s.Monthly[idx]
		m.Total++
		switch rec.Status {
		case model.Present:
			m.Present++
		case model.Absent:
			m.Absent++
		case model.Tardy:
			m.Tardy++
		}

		s.Records = append(s.Records, DailyRecord{
			Date:    rec.Date,
			Weekday: rec.Date.Weekday().String(),
			Status:  string(rec.Status),
			Code:    rec.Code,
		})
	}

	s.Rate = output.Round1(float64(s.PresentDays) / float64(s.TotalDays) * 100)
	s.ChronicallyAbsent = s.Rate < chronicRate

	monthlyRates := make([]float64, len(s.Monthly))
	for i := range s.Monthly {
		m := &s.Monthly[i]
		m.Rate = output.Round1(float64(m.Present) / float64(m.Total) * 100)
		monthlyRates[i] = m.Rate
	}
	s.Trend = metrics.AttendanceTrend(monthlyRates)

	return s
}
