package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FlagCategory identifies which derived value a rule compares against
type FlagCategory string

const (
	// FlagAttendance compares against the attendance rate (percent)
	FlagAttendance FlagCategory = "attendance"
	// FlagGrades compares against the overall grade average (0-100)
	FlagGrades FlagCategory = "grades"
)

// FlagDirection is the comparison direction of a rule
type FlagDirection string

const (
	// Below triggers when the value is under the threshold
	Below FlagDirection = "below"
	// Above triggers when the value is over the threshold
	Above FlagDirection = "above"
)

// FlagSeverity orders flags for the composite risk bucketing
type FlagSeverity string

const (
	// SeverityRed is the highest severity
	SeverityRed FlagSeverity = "red"
	// SeverityOrange is elevated severity
	SeverityOrange FlagSeverity = "orange"
	// SeverityYellow is the lowest severity
	SeverityYellow FlagSeverity = "yellow"
)

// FlagRule is an externally configured, query-time-evaluated risk rule.
// Rules are never persisted as materialized flags; they are re-evaluated per
// student on every request. Categories this engine does not recognize
// evaluate to "not flagged" rather than erroring.
type FlagRule struct {
	Name      string        `json:"name" yaml:"name"`
	Category  FlagCategory  `json:"category" yaml:"category"`
	Threshold float64       `json:"threshold" yaml:"threshold"`
	Direction FlagDirection `json:"direction" yaml:"direction"`
	Severity  FlagSeverity  `json:"severity" yaml:"severity"`
	Active    bool          `json:"active" yaml:"active"`
}

// ruleFile is the on-disk shape of the rules file
type ruleFile struct {
	Rules []FlagRule `yaml:"rules"`
}

// LoadFlagRules reads flag rules from a YAML file. A missing file is not an
// error; it yields an empty rule set.
func LoadFlagRules(path string) ([]FlagRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	for i, r := range f.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rule %d has no name", i)
		}
		if r.Direction != Below && r.Direction != Above {
			return nil, fmt.Errorf("rule %q has invalid direction %q", r.Name, r.Direction)
		}
	}

	return f.Rules, nil
}

// DefaultFlagRules returns the rules written by `classlens init`
func DefaultFlagRules() []FlagRule {
	return []FlagRule{
		{Name: "chronic-absence", Category: FlagAttendance, Threshold: 90, Direction: Below, Severity: SeverityRed, Active: true},
		{Name: "attendance-watch", Category: FlagAttendance, Threshold: 95, Direction: Below, Severity: SeverityYellow, Active: true},
		{Name: "failing-average", Category: FlagGrades, Threshold: 60, Direction: Below, Severity: SeverityRed, Active: true},
		{Name: "grades-watch", Category: FlagGrades, Threshold: 73, Direction: Below, Severity: SeverityOrange, Active: true},
	}
}

// SaveFlagRules writes rules to a YAML file
func SaveFlagRules(path string, rules []FlagRule) error {
	data, err := yaml.Marshal(ruleFile{Rules: rules})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
