// Package resolver narrows the full student roster down to the candidate set
// for a parsed question, with fallback strategies for ranking questions and
// for questions that match nobody.
package resolver

import (
	"strings"

	"classlens/internal/config"
	"classlens/internal/interpreter"
	"classlens/internal/model"
)

// Resolver applies successive narrowing filters over the roster
type Resolver struct {
	cfg config.ResolverConfig
}

// New creates a Resolver with the given sizing policy
func New(cfg config.ResolverConfig) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve turns a ParsedQuery plus the full roster into a concrete candidate
// set. Each filter is skipped when its ParsedQuery field is empty. The raw
// question text is consulted independently for the ranking override: ranking
// questions must never silently operate on a subset.
func (r *Resolver) Resolve(q interpreter.ParsedQuery, text string, roster []model.Student) []model.Student {
	candidates := roster

	if len(q.Identifiers) > 0 {
		candidates = filterByIdentifiers(candidates, q.Identifiers)
	}
	if q.Grade != "" {
		candidates = filterByGrade(candidates, q.Grade)
	}
	if q.Class != "" {
		candidates = filterByClass(candidates, q.Class)
	}

	ranking := interpreter.HasRankingVocabulary(text)

	if len(candidates) == 0 {
		if ranking {
			// Ranking questions fall back to the entire roster
			candidates = roster
		} else {
			// General analysis falls back to a bounded sample
			candidates = sample(roster, r.cfg.AnalysisSampleCap)
		}
	}

	if len(candidates) > r.cfg.RosterDownsampleCap &&
		q.Intent == interpreter.IntentAnalysis && q.Grade == "" {
		candidates = sample(candidates, r.cfg.RosterDownsampleCap)
	}

	// Ranking override: discard all narrowing whenever the raw text matches
	// ranking vocabulary, even if the filters produced a non-empty set.
	if ranking {
		candidates = roster
	}

	return candidates
}

// StudentIDs projects a candidate set to its stable identifiers
func StudentIDs(students []model.Student) []string {
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	return ids
}

func filterByIdentifiers(students []model.Student, identifiers []string) []model.Student {
	var out []model.Student
	for _, s := range students {
		for _, ident := range identifiers {
			if matchesIdentifier(s, ident) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// matchesIdentifier tests an extracted identifier against one student, in
// order: exact-id equality, student-number substring containment, then six
// name forms. A candidate identifier of two characters or fewer is never
// allowed to satisfy a partial-name match.
func matchesIdentifier(s model.Student, ident string) bool {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return false
	}

	if s.ID == ident {
		return true
	}
	if strings.Contains(s.StudentNumber, ident) {
		return true
	}

	name := strings.ToLower(ident)
	first := strings.ToLower(s.FirstName)
	last := strings.ToLower(s.LastName)
	full := strings.ToLower(s.FullName())
	reversed := last + ", " + first

	// Equality forms
	if name == full || name == first || name == last || name == reversed {
		return true
	}

	// Partial forms are off limits for short fragments
	if len(name) <= 2 {
		return false
	}

	if strings.Contains(full, name) ||
		strings.HasPrefix(first, name) ||
		strings.HasPrefix(last, name) {
		return true
	}

	return false
}

func filterByGrade(students []model.Student, grade string) []model.Student {
	var out []model.Student
	for _, s := range students {
		if s.Grade == grade {
			out = append(out, s)
		}
	}
	return out
}

func filterByClass(students []model.Student, class string) []model.Student {
	needle := strings.ToLower(class)
	var out []model.Student
	for _, s := range students {
		if strings.Contains(strings.ToLower(s.ClassLabel), needle) {
			out = append(out, s)
		}
	}
	return out
}

// sample takes the first n students; the roster arrives in stable order so
// repeated queries sample identically.
func sample(students []model.Student, n int) []model.Student {
	if len(students) <= n {
		return students
	}
	return students[:n]
}
