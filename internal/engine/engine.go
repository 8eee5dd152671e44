// Package engine orchestrates the retrieval pipeline: question text is
// parsed, resolved against the roster, aggregated across sources, profiled
// when deep mode is requested, and budgeted before the context is handed to
// the caller.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/jonboulle/clockwork"

	"classlens/internal/aggregate"
	"classlens/internal/budget"
	"classlens/internal/config"
	"classlens/internal/interpreter"
	"classlens/internal/logging"
	"classlens/internal/metrics"
	"classlens/internal/model"
	"classlens/internal/output"
	"classlens/internal/profile"
	"classlens/internal/resolver"
)

// Store is the persistence contract the engine depends on. Generation is the
// roster cache invalidation key; it changes on every import.
type Store interface {
	aggregate.Source
	AllStudents(ctx context.Context) ([]model.Student, error)
	Generation() (int64, error)
}

// Options bundles the collaborators the engine is built from
type Options struct {
	Store  Store
	Rules  []model.FlagRule
	Config *config.Config
	Logger *logging.Logger

	// Clock defaults to the real clock; tests inject a fake
	Clock clockwork.Clock
}

// Engine runs the retrieval pipeline end to end
type Engine struct {
	store    Store
	rules    []model.FlagRule
	cfg      *config.Config
	logger   *logging.Logger
	clock    clockwork.Clock
	interp   *interpreter.Interpreter
	resolve  *resolver.Resolver
	agg      *aggregate.Aggregator
	profiler *profile.Profiler
	budgeter *budget.Budgeter

	rosterTTL   time.Duration
	rosterCache *ttlcache.Cache[string, []model.Student]
}

// New wires an Engine from its collaborators
func New(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	rosterTTL := time.Duration(opts.Config.Aggregator.RosterCacheTTLSeconds) * time.Second
	cache := ttlcache.New(
		ttlcache.WithTTL[string, []model.Student](rosterTTL),
	)

	return &Engine{
		store:       opts.Store,
		rules:       opts.Rules,
		cfg:         opts.Config,
		logger:      opts.Logger,
		clock:       clock,
		interp:      interpreter.New(),
		resolve:     resolver.New(opts.Config.Resolver),
		agg:         aggregate.New(opts.Store, opts.Logger, opts.Config.Thresholds, opts.Config.Aggregator, clock),
		profiler:    profile.New(opts.Config.Thresholds),
		budgeter:    budget.New(opts.Config.Budget),
		rosterTTL:   rosterTTL,
		rosterCache: cache,
	}
}

// Retrieve answers one free-text question. It never returns nil and never
// panics: any failure inside the pipeline degrades to a well-formed empty
// context so the downstream chat experience keeps working.
func (e *Engine) Retrieve(ctx context.Context, question string, deep bool) (result *StudentDataContext) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("retrieval pipeline failed, returning empty context", map[string]interface{}{
				"panic": fmt.Sprintf("%v", p),
			})
			result = EmptyContext(question, e.clock.Now())
		}
	}()

	parsed := e.interp.Parse(question)

	roster, err := e.roster(ctx)
	if err != nil {
		e.logger.Error("roster load failed", map[string]interface{}{
			"error": err.Error(),
		})
		return EmptyContext(question, e.clock.Now())
	}

	candidates := e.resolve.Resolve(parsed, question, roster)

	e.logger.Debug("candidate set resolved", map[string]interface{}{
		"intent":     string(parsed.Intent),
		"candidates": len(candidates),
		"roster":     len(roster),
	})

	full := e.agg.Aggregate(ctx, candidates, e.rules)

	riskFor := e.riskBucketer(full)
	students := candidateStudents(candidates, riskFor)
	summary := summarize(len(roster), candidates, full, riskFor)

	ranking := interpreter.HasRankingVocabulary(question)

	data := full
	var budgeting *BudgetingInfo
	if e.budgeter.ShouldBudget(len(candidates), ranking) {
		policy := budget.ClassifyQuestion(question)
		var truncations []budget.TruncationInfo
		data, truncations = e.budgeter.Apply(full, policy)
		budgeting = &BudgetingInfo{Policy: policy, Truncations: truncations}

		e.logger.Debug("budgeting applied", map[string]interface{}{
			"policy":      string(policy),
			"truncations": len(truncations),
		})
	}

	var profiles []profile.RiskProfile
	if deep && len(parsed.Identifiers) > 0 && !ranking {
		profiles = e.profiler.ProfileAll(candidates, full)
	}

	return &StudentDataContext{
		Question:  question,
		Query:     parsed,
		Students:  students,
		Data:      data,
		Profiles:  profiles,
		Summary:   summary,
		Budgeting: budgeting,
		FetchedAt: e.clock.Now(),
	}
}

// roster returns the current student population, served from the cache when
// the store generation has not moved. The generation is the explicit
// invalidation key: a new import bumps it and the stale snapshot is simply
// never looked up again.
func (e *Engine) roster(ctx context.Context) ([]model.Student, error) {
	gen, genErr := e.store.Generation()
	if genErr == nil {
		if item := e.rosterCache.Get(rosterKey(gen)); item != nil {
			return item.Value(), nil
		}
	}

	students, err := e.store.AllStudents(ctx)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		e.rosterCache.Set(rosterKey(gen), students, e.rosterTTL)
	}
	return students, nil
}

func rosterKey(generation int64) string {
	return fmt.Sprintf("roster:%d", generation)
}

// riskBucketer returns a lookup of the coarse composite risk for each
// candidate, computed from the unbudgeted aggregation
func (e *Engine) riskBucketer(result *aggregate.Result) func(id string) metrics.RiskLevel {
	return func(id string) metrics.RiskLevel {
		att, hasAtt := result.AttendanceFor(id)
		grd, hasGrd := result.GradesFor(id)

		var severities []model.FlagSeverity
		for _, f := range result.FlagsFor(id) {
			severities = append(severities, f.Severity)
		}

		return metrics.CompositeRisk(severities, att.Rate, grd.GPA, hasAtt, hasGrd, e.cfg.Thresholds)
	}
}

// summarize computes the top-level statistics over the full aggregation
func summarize(rosterCount int, candidates []model.Student, result *aggregate.Result, riskFor func(id string) metrics.RiskLevel) SummaryStats {
	stats := SummaryStats{
		RosterCount:    rosterCount,
		CandidateCount: len(candidates),
	}

	var rateSum float64
	for _, s := range result.Attendance {
		rateSum += s.Rate
		if s.ChronicallyAbsent {
			stats.ChronicallyAbsent++
		}
	}
	if len(result.Attendance) > 0 {
		stats.AverageAttendanceRate = output.Round1(rateSum / float64(len(result.Attendance)))
	}

	var gpaSum float64
	for _, s := range result.Grades {
		gpaSum += s.GPA
	}
	if len(result.Grades) > 0 {
		stats.AverageGPA = output.Round2(gpaSum / float64(len(result.Grades)))
	}

	flagged := make(map[string]bool)
	for _, f := range result.Flags {
		flagged[f.StudentID] = true
	}
	stats.FlaggedStudents = len(flagged)

	if len(candidates) > 0 {
		stats.RiskCounts = make(map[string]int)
		for _, s := range candidates {
			stats.RiskCounts[string(riskFor(s.ID))]++
		}
	}

	return stats
}
