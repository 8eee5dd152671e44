// Package aggregate pulls per-student records from each source in parallel
// and reshapes them into normalized summaries. A failure in one source never
// aborts the others; the failed source degrades to an empty array so a
// partial context is always returned.
package aggregate

import (
	"context"
	"fmt"
	"sort"

	"github.com/alitto/pond/v2"
	"github.com/jonboulle/clockwork"

	"classlens/internal/config"
	"classlens/internal/logging"
	"classlens/internal/metrics"
	"classlens/internal/model"
)

// Source is the record-store contract the aggregator reads from. All reads
// are keyed by membership in the candidate id set; none mutate the store.
type Source interface {
	AttendanceForStudents(ctx context.Context, ids []string) ([]model.AttendanceRecord, error)
	GradesForStudents(ctx context.Context, ids []string) ([]model.GradeRecord, error)
	AssessmentsForStudents(ctx context.Context, ids []string) ([]model.AssessmentRecord, error)
	DisciplineForStudents(ctx context.Context, ids []string) ([]model.DisciplineIncident, error)
	ObservationsFor(ctx context.Context, classLabels, studentIDs []string) ([]model.ObservationNote, error)
}

// Result holds the per-source summary arrays for a candidate set. A student
// with zero records in a source is omitted from that source's array.
type Result struct {
	Attendance  []AttendanceSummary  `json:"attendance,omitempty"`
	Grades      []GradesSummary      `json:"grades,omitempty"`
	Assessments []AssessmentSummary  `json:"assessments,omitempty"`
	Discipline  []DisciplineSummary  `json:"discipline,omitempty"`
	Sessions    []model.ObservationNote `json:"observationSessions,omitempty"`
	Notes       []model.ObservationNote `json:"observationNotes,omitempty"`
	Flags       []StudentFlag        `json:"flags,omitempty"`

	// SourceErrors names the sources that degraded to empty results
	SourceErrors []string `json:"sourceErrors,omitempty"`
}

// StudentFlag is one triggered flag rule for one student
type StudentFlag struct {
	StudentID string             `json:"studentId"`
	Rule      string             `json:"rule"`
	Category  model.FlagCategory `json:"category"`
	Severity  model.FlagSeverity `json:"severity"`
	Value     float64            `json:"value"`
	Threshold float64            `json:"threshold"`
}

// Aggregator fans out across the five sources and derives inline metrics
type Aggregator struct {
	source Source
	logger *logging.Logger
	th     config.ThresholdsConfig
	cfg    config.AggregatorConfig
	clock  clockwork.Clock
	pool   pond.ResultPool[mutation]
}

// mutation applies one source's contribution to the joined result
type mutation func(*Result)

// New creates an Aggregator reading from the given source
func New(source Source, logger *logging.Logger, th config.ThresholdsConfig, cfg config.AggregatorConfig, clock clockwork.Clock) *Aggregator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Aggregator{
		source: source,
		logger: logger,
		th:     th,
		cfg:    cfg,
		clock:  clock,
		pool:   pond.NewResultPool[mutation](cfg.PoolSize),
	}
}

// Aggregate runs all source lookups concurrently for the candidate set,
// joins them, and evaluates flag rules over the joined summaries. There is
// no ordering guarantee between sources, only that all complete before the
// result is assembled.
func (a *Aggregator) Aggregate(ctx context.Context, students []model.Student, rules []model.FlagRule) *Result {
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	classes := classLabels(students)

	group := a.pool.NewGroupContext(ctx)

	a.submit(group, "attendance", func() mutation {
		records, err := a.source.AttendanceForStudents(ctx, ids)
		if err != nil {
			return a.degrade("attendance", err)
		}
		summaries := summarizeAttendance(ids, records, a.th.ChronicAbsenteeismRate)
		return func(r *Result) { r.Attendance = summaries }
	})

	a.submit(group, "grades", func() mutation {
		records, err := a.source.GradesForStudents(ctx, ids)
		if err != nil {
			return a.degrade("grades", err)
		}
		summaries := summarizeGrades(ids, records, a.th.PassingGrade, a.cfg.RecentGrades)
		return func(r *Result) { r.Grades = summaries }
	})

	a.submit(group, "assessments", func() mutation {
		records, err := a.source.AssessmentsForStudents(ctx, ids)
		if err != nil {
			return a.degrade("assessments", err)
		}
		summaries := summarizeAssessments(ids, records)
		return func(r *Result) { r.Assessments = summaries }
	})

	a.submit(group, "discipline", func() mutation {
		records, err := a.source.DisciplineForStudents(ctx, ids)
		if err != nil {
			return a.degrade("discipline", err)
		}
		summaries := summarizeDiscipline(ids, records, a.cfg.BehaviorWindowDays, a.clock.Now())
		return func(r *Result) { r.Discipline = summaries }
	})

	a.submit(group, "observations", func() mutation {
		notes, err := a.source.ObservationsFor(ctx, classes, ids)
		if err != nil {
			return a.degrade("observations", err)
		}
		sessions, individual := splitObservations(notes)
		return func(r *Result) {
			r.Sessions = sessions
			r.Notes = individual
		}
	})

	mutations, err := group.Wait()
	if err != nil {
		// Wait only fails on context cancellation; the caller owns
		// request-level cancellation and discards the result.
		a.logger.Warn("aggregation interrupted", map[string]interface{}{
			"error": err.Error(),
		})
	}

	result := &Result{}
	for _, apply := range mutations {
		if apply != nil {
			apply(result)
		}
	}
	sort.Strings(result.SourceErrors)

	result.Flags = evaluateFlags(ids, result, rules)

	return result
}

// submit wraps a source task so that a panic inside one source degrades that
// source instead of taking down the request
func (a *Aggregator) submit(group pond.ResultTaskGroup[mutation], name string, task func() mutation) {
	group.SubmitErr(func() (m mutation, err error) {
		defer func() {
			if p := recover(); p != nil {
				m = a.degrade(name, fmt.Errorf("panic: %v", p))
				err = nil
			}
		}()
		return task(), nil
	})
}

// degrade logs a source failure and records it on the result
func (a *Aggregator) degrade(name string, err error) mutation {
	a.logger.Warn("source aggregation failed, degrading to empty result", map[string]interface{}{
		"source": name,
		"error":  err.Error(),
	})
	return func(r *Result) {
		r.SourceErrors = append(r.SourceErrors, name)
	}
}

// evaluateFlags runs every active rule against every candidate student
// independently, using the joined attendance and grade summaries
func evaluateFlags(ids []string, result *Result, rules []model.FlagRule) []StudentFlag {
	if len(rules) == 0 {
		return nil
	}

	attendance := make(map[string]AttendanceSummary, len(result.Attendance))
	for _, s := range result.Attendance {
		attendance[s.StudentID] = s
	}
	grades := make(map[string]GradesSummary, len(result.Grades))
	for _, s := range result.Grades {
		grades[s.StudentID] = s
	}

	var flags []StudentFlag
	for _, id := range ids {
		att, hasAtt := attendance[id]
		grd, hasGrd := grades[id]

		triggered := metrics.EvaluateFlagRules(rules, att.Rate, hasAtt, grd.OverallAverage, hasGrd)
		for _, rule := range triggered {
			value := att.Rate
			if rule.Category == model.FlagGrades {
				value = grd.OverallAverage
			}
			flags = append(flags, StudentFlag{
				StudentID: id,
				Rule:      rule.Name,
				Category:  rule.Category,
				Severity:  rule.Severity,
				Value:     value,
				Threshold: rule.Threshold,
			})
		}
	}
	return flags
}

// classLabels collects the distinct homeroom labels of the candidate set
func classLabels(students []model.Student) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, s := range students {
		if s.ClassLabel == "" || seen[s.ClassLabel] {
			continue
		}
		seen[s.ClassLabel] = true
		labels = append(labels, s.ClassLabel)
	}
	sort.Strings(labels)
	return labels
}

// splitObservations separates whole-classroom session notes from individual
// student notes
func splitObservations(notes []model.ObservationNote) (sessions, individual []model.ObservationNote) {
	for _, n := range notes {
		if n.StudentID == "" {
			sessions = append(sessions, n)
		} else {
			individual = append(individual, n)
		}
	}
	return sessions, individual
}
