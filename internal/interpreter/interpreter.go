// Package interpreter turns a free-text question about students into a
// structured ParsedQuery. It is a deliberately simple pattern-based
// extractor, not a trained model: an empty match on every field is valid and
// signals "broad analysis over a sample".
package interpreter

import (
	"regexp"
	"strings"
)

// Intent classifies what kind of answer the question wants
type Intent string

const (
	// IntentIndividual is a question about exactly one student
	IntentIndividual Intent = "individual"
	// IntentGroup is a question about several named students
	IntentGroup Intent = "group"
	// IntentTrend asks about change over time
	IntentTrend Intent = "trend"
	// IntentComparison asks to rank or compare students
	IntentComparison Intent = "comparison"
	// IntentIntervention asks what support a student needs
	IntentIntervention Intent = "intervention"
	// IntentAnalysis is the broad default
	IntentAnalysis Intent = "analysis"
)

// Data-type tags requested by a question
const (
	DataAttendance   = "attendance"
	DataGrades       = "grades"
	DataAssessments  = "assessments"
	DataDiscipline   = "discipline"
	DataObservations = "observations"
	DataFlags        = "flags"
)

// Metric tags requested by a question
const (
	MetricAtRisk       = "at-risk"
	MetricImprovement  = "improvement"
	MetricTrend        = "trend"
	MetricCorrelation  = "correlation"
	MetricIntervention = "intervention"
)

// ParsedQuery is the structured form of a free-text question
type ParsedQuery struct {
	// Identifiers are candidate name or student-number strings
	Identifiers []string `json:"identifiers,omitempty"`

	// Grade is the normalized grade token ("K" or "1".."12"), empty if absent
	Grade string `json:"grade,omitempty"`

	// Class is the extracted teacher surname, empty if absent
	Class string `json:"class,omitempty"`

	// DataTypes are the requested record categories
	DataTypes []string `json:"dataTypes,omitempty"`

	// Metrics are the requested derived metrics
	Metrics []string `json:"metrics,omitempty"`

	// Intent is the classified question type
	Intent Intent `json:"intent"`
}

// Classifier decides the intent of a question. It is an interface so the
// keyword rule engine can later be swapped for a learned classifier without
// touching the aggregator or budgeter.
type Classifier interface {
	Classify(text string, identifierCount int) Intent
}

// Interpreter extracts a ParsedQuery from raw question text
type Interpreter struct {
	classifier Classifier
}

// New creates an Interpreter with the default keyword classifier
func New() *Interpreter {
	return &Interpreter{classifier: keywordClassifier{}}
}

// NewWithClassifier creates an Interpreter with a custom intent classifier
func NewWithClassifier(c Classifier) *Interpreter {
	return &Interpreter{classifier: c}
}

var (
	studentNumberRe = regexp.MustCompile(`\b\d{6,9}\b`)
	doubleQuotedRe  = regexp.MustCompile(`"([^"]+)"`)
	singleQuotedRe  = regexp.MustCompile(`'([^']+)'`)

	// Four capitalization patterns catch names regardless of how the model
	// or user capitalized them upstream.
	titleCaseRe = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)
	allCapsRe   = regexp.MustCompile(`\b[A-Z]{2,}\s+[A-Z]{2,}\b`)
	mixedCaseRe = regexp.MustCompile(`\b[A-Z][a-z]+[A-Z][a-zA-Z]+\s+[A-Z][a-zA-Z]+\b|\b[A-Z][a-zA-Z]+\s+[A-Z][a-z]+[A-Z][a-zA-Z]+\b`)
	lowercaseRe = regexp.MustCompile(`\b[a-z]{2,}\s+[a-z]{2,}\b`)

	gradeRe = regexp.MustCompile(`(?i)\bgrade\s*(k|kindergarten|\d{1,2})\b|\b(\d{1,2})(?:st|nd|rd|th)?[\s-]*grade\b|\b(kindergarten)\b`)

	honorificClassRe = regexp.MustCompile(`\b(?:Ms\.|Mr\.|Mrs\.|Dr\.)\s*([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)`)
	classKeywordRe   = regexp.MustCompile(`(?i)\bclass(?:room)?\b(?:\s+of)?\s+([A-Z][a-zA-Z]+)`)

	rankingRe = regexp.MustCompile(`(?i)\b(lowest|highest|top|bottom|best|worst|rank(?:ing|ed)?|compare(?:d|s)?|comparison)\b|\bwho\s+are\b`)

	trendIntentRe        = regexp.MustCompile(`(?i)\btrends?\b|over\s+time|improv|declin|progress|getting\s+(better|worse)`)
	interventionIntentRe = regexp.MustCompile(`(?i)intervention|\bsupport\b|\bhelp\b|recommend`)
)

// dataTypeRes maps category tags to their keyword regexes. Each runs over the
// whole string independently.
var dataTypeRes = []struct {
	tag string
	re  *regexp.Regexp
}{
	{DataAttendance, regexp.MustCompile(`(?i)attendance|absen|tard[iy]|chronic`)},
	{DataGrades, regexp.MustCompile(`(?i)\bgrades?\b|\bgpa\b|academ|average|report card`)},
	{DataAssessments, regexp.MustCompile(`(?i)iready|i-ready|\bfast\b|assessment|diagnostic|percentile|scale score`)},
	{DataDiscipline, regexp.MustCompile(`(?i)disciplin|behavior|behaviour|incident|referral|suspension`)},
	{DataObservations, regexp.MustCompile(`(?i)observation|classroom note`)},
	{DataFlags, regexp.MustCompile(`(?i)\bflag`)},
}

var metricRes = []struct {
	tag string
	re  *regexp.Regexp
}{
	{MetricAtRisk, regexp.MustCompile(`(?i)at[\s-]?risk|\brisk\b|struggling`)},
	{MetricImprovement, regexp.MustCompile(`(?i)improv`)},
	{MetricTrend, regexp.MustCompile(`(?i)\btrends?\b|over\s+time`)},
	{MetricCorrelation, regexp.MustCompile(`(?i)correlat|relationship between`)},
	{MetricIntervention, regexp.MustCompile(`(?i)intervention|support plan`)},
}

// identifierStopwords filters capitalization-pattern matches that are common
// question phrasing rather than names.
var identifierStopwords = map[string]bool{
	"how": true, "is": true, "are": true, "was": true, "were": true, "the": true,
	"who": true, "what": true, "which": true, "when": true, "where": true, "why": true,
	"doing": true, "going": true, "tell": true, "show": true, "give": true, "list": true,
	"me": true, "my": true, "his": true, "her": true, "their": true, "them": true,
	"about": true, "in": true, "at": true, "of": true, "on": true, "for": true,
	"with": true, "and": true, "or": true, "to": true, "this": true, "that": true,
	"these": true, "those": true, "all": true, "any": true, "has": true, "have": true,
	"had": true, "does": true, "did": true, "do": true, "a": true, "an": true,
	"student": true, "students": true, "school": true, "grade": true, "grades": true,
	"class": true, "classroom": true, "teacher": true, "attendance": true,
	"discipline": true, "behavior": true, "reading": true, "math": true,
	"science": true, "writing": true, "year": true, "month": true, "week": true,
	"lowest": true, "highest": true, "top": true, "bottom": true, "best": true,
	"worst": true, "most": true, "least": true, "risk": true, "over": true,
	"time": true, "compare": true, "versus": true, "between": true, "like": true,
	"look": true, "looks": true, "been": true, "being": true, "needs": true, "need": true,
}

// Parse extracts a ParsedQuery from a free-text question
func (p *Interpreter) Parse(text string) ParsedQuery {
	q := ParsedQuery{
		Identifiers: extractIdentifiers(text),
		Grade:       extractGrade(text),
		Class:       extractClass(text),
		DataTypes:   extractTags(text, dataTypeRes),
		Metrics:     extractTags(text, metricRes),
	}
	q.Intent = p.classifier.Classify(text, len(q.Identifiers))
	return q
}

// HasRankingVocabulary reports whether the raw text contains ranking or
// comparison vocabulary. The resolver uses this for its whole-roster
// override; the budgeter uses it as a forced-budgeting trigger.
func HasRankingVocabulary(text string) bool {
	return rankingRe.MatchString(text)
}

func extractIdentifiers(text string) []string {
	var candidates []string

	// Bare 6-9 digit runs are district student numbers
	candidates = append(candidates, studentNumberRe.FindAllString(text, -1)...)

	for _, m := range doubleQuotedRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	for _, m := range singleQuotedRe.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}

	for _, re := range []*regexp.Regexp{titleCaseRe, allCapsRe, mixedCaseRe, lowercaseRe} {
		for _, m := range re.FindAllString(text, -1) {
			if isStopPhrase(m) {
				continue
			}
			candidates = append(candidates, m)
		}
	}

	// De-duplicate by exact equality after trimming quote characters
	seen := make(map[string]bool)
	var out []string
	for _, c := range candidates {
		c = strings.Trim(strings.TrimSpace(c), `"'`)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}

	return out
}

// isStopPhrase reports whether any word of a two-word match is common
// question phrasing
func isStopPhrase(phrase string) bool {
	for _, word := range strings.Fields(phrase) {
		if identifierStopwords[strings.ToLower(word)] {
			return true
		}
	}
	return false
}

func extractGrade(text string) string {
	m := gradeRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}

	token := m[1]
	if token == "" {
		token = m[2]
	}
	if token == "" {
		token = m[3]
	}

	token = strings.ToUpper(token)
	if token == "KINDERGARTEN" || token == "K" {
		return "K"
	}
	return strings.TrimLeft(token, "0")
}

func extractClass(text string) string {
	var name string
	if m := honorificClassRe.FindStringSubmatch(text); m != nil {
		name = m[1]
	} else if m := classKeywordRe.FindStringSubmatch(text); m != nil {
		name = m[1]
	}
	if name == "" {
		return ""
	}

	// Only the final name token is kept: surname-only matching against the
	// roster's class-label field.
	fields := strings.Fields(name)
	return fields[len(fields)-1]
}

func extractTags(text string, patterns []struct {
	tag string
	re  *regexp.Regexp
}) []string {
	var tags []string
	for _, p := range patterns {
		if p.re.MatchString(text) {
			tags = append(tags, p.tag)
		}
	}
	return tags
}

// keywordClassifier is the default rule engine: a priority-ordered predicate
// list where the first matching rule wins.
type keywordClassifier struct{}

func (keywordClassifier) Classify(text string, identifierCount int) Intent {
	if identifierCount == 1 {
		return IntentIndividual
	}
	if rankingRe.MatchString(text) {
		return IntentComparison
	}
	if trendIntentRe.MatchString(text) {
		return IntentTrend
	}
	if interventionIntentRe.MatchString(text) {
		return IntentIntervention
	}
	if identifierCount > 1 {
		return IntentGroup
	}
	return IntentAnalysis
}
