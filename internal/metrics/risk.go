package metrics

import (
	"classlens/internal/config"
	"classlens/internal/model"
)

// RiskLevel is the coarse per-student risk bucket for the top-level summary
type RiskLevel string

const (
	// RiskHigh indicates a red flag or compounding low attendance and low GPA
	RiskHigh RiskLevel = "high"
	// RiskMedium indicates a single warning signal
	RiskMedium RiskLevel = "medium"
	// RiskLow indicates no warning signals
	RiskLow RiskLevel = "low"
)

// CompositeRisk buckets a student for the top-level summary. This is the
// coarse classification; the deep Risk Profiler builds fuller profiles for
// explicitly requested students.
func CompositeRisk(flagSeverities []model.FlagSeverity, attendanceRate, gpa float64, hasAttendance, hasGrades bool, th config.ThresholdsConfig) RiskLevel {
	var hasRed, hasWarning bool
	for _, sev := range flagSeverities {
		switch sev {
		case model.SeverityRed:
			hasRed = true
		case model.SeverityOrange, model.SeverityYellow:
			hasWarning = true
		}
	}

	lowAttendance := hasAttendance && attendanceRate < th.LowAttendanceRate
	lowGPA := hasGrades && gpa < th.LowGPA

	if hasRed || (lowAttendance && lowGPA) {
		return RiskHigh
	}
	if hasWarning || lowAttendance || lowGPA {
		return RiskMedium
	}
	return RiskLow
}

// EvaluateFlagRules runs each active rule against one student's derived
// values. Unrecognized categories evaluate to "not flagged" rather than
// erroring. Students with no records in a category are never flagged on it.
func EvaluateFlagRules(rules []model.FlagRule, attendanceRate float64, hasAttendance bool, gradeAverage float64, hasGrades bool) []model.FlagRule {
	var triggered []model.FlagRule
	for _, rule := range rules {
		if !rule.Active {
			continue
		}

		var value float64
		switch rule.Category {
		case model.FlagAttendance:
			if !hasAttendance {
				continue
			}
			value = attendanceRate
		case model.FlagGrades:
			if !hasGrades {
				continue
			}
			value = gradeAverage
		default:
			continue
		}

		switch rule.Direction {
		case model.Below:
			if value < rule.Threshold {
				triggered = append(triggered, rule)
			}
		case model.Above:
			if value > rule.Threshold {
				triggered = append(triggered, rule)
			}
		}
	}
	return triggered
}
