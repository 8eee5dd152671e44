package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete classlens configuration (v2 schema)
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	DataDir string `json:"dataDir" mapstructure:"dataDir"`

	Resolver   ResolverConfig   `json:"resolver" mapstructure:"resolver"`
	Thresholds ThresholdsConfig `json:"thresholds" mapstructure:"thresholds"`
	Aggregator AggregatorConfig `json:"aggregator" mapstructure:"aggregator"`
	Budget     BudgetConfig     `json:"budget" mapstructure:"budget"`
	Rules      RulesConfig      `json:"rules" mapstructure:"rules"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// ResolverConfig contains candidate-set sizing policy.
// These values reproduce observed behavior and are not load-tested optima;
// they are exposed here so deployments can tune them.
type ResolverConfig struct {
	// AnalysisSampleCap bounds the fallback sample when no identifier matches
	AnalysisSampleCap int `json:"analysisSampleCap" mapstructure:"analysisSampleCap"`

	// RosterDownsampleCap bounds broad analysis queries with no grade filter
	RosterDownsampleCap int `json:"rosterDownsampleCap" mapstructure:"rosterDownsampleCap"`
}

// ThresholdsConfig contains the fixed derivation thresholds
type ThresholdsConfig struct {
	// ChronicAbsenteeismRate flags students whose attendance rate falls below it (percent)
	ChronicAbsenteeismRate float64 `json:"chronicAbsenteeismRate" mapstructure:"chronicAbsenteeismRate"`

	// PassingGrade is the minimum numeric grade counted as passing
	PassingGrade float64 `json:"passingGrade" mapstructure:"passingGrade"`

	// LowAttendanceRate feeds the composite risk bucketing (percent)
	LowAttendanceRate float64 `json:"lowAttendanceRate" mapstructure:"lowAttendanceRate"`

	// LowGPA feeds the composite risk bucketing (4.0 scale)
	LowGPA float64 `json:"lowGPA" mapstructure:"lowGPA"`
}

// AggregatorConfig contains fan-out and sampling settings
type AggregatorConfig struct {
	// PoolSize is the worker pool size for per-source fan-out
	PoolSize int `json:"poolSize" mapstructure:"poolSize"`

	// RecentGrades is the length of the recent-grades slice kept per subject
	RecentGrades int `json:"recentGrades" mapstructure:"recentGrades"`

	// BehaviorWindowDays is the window compared against the prior window for behavior trends
	BehaviorWindowDays int `json:"behaviorWindowDays" mapstructure:"behaviorWindowDays"`

	// RosterCacheTTLSeconds bounds how long a roster snapshot is reused between imports
	RosterCacheTTLSeconds int `json:"rosterCacheTtlSeconds" mapstructure:"rosterCacheTtlSeconds"`
}

// BudgetConfig contains context budgeting policy caps
type BudgetConfig struct {
	// TriggerCandidateCount forces budgeting when the candidate set exceeds it
	TriggerCandidateCount int `json:"triggerCandidateCount" mapstructure:"triggerCandidateCount"`

	// GradeFocusMonths is the monthly-breakdown cap under the grade-focused policy
	GradeFocusMonths int `json:"gradeFocusMonths" mapstructure:"gradeFocusMonths"`

	// DefaultRecentAttendance is the daily-record cap under the default policy
	DefaultRecentAttendance int `json:"defaultRecentAttendance" mapstructure:"defaultRecentAttendance"`

	// DefaultMonths is the monthly-breakdown cap under the default policy
	DefaultMonths int `json:"defaultMonths" mapstructure:"defaultMonths"`

	// DefaultIncidents is the discipline incident cap under the default policy
	DefaultIncidents int `json:"defaultIncidents" mapstructure:"defaultIncidents"`

	// DefaultAssessments is the per-family assessment cap under the default policy
	DefaultAssessments int `json:"defaultAssessments" mapstructure:"defaultAssessments"`
}

// RulesConfig points at the externally configured flag rules
type RulesConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 2,
		DataDir: ".classlens",
		Resolver: ResolverConfig{
			AnalysisSampleCap:   50,
			RosterDownsampleCap: 100,
		},
		Thresholds: ThresholdsConfig{
			ChronicAbsenteeismRate: 90,
			PassingGrade:           60,
			LowAttendanceRate:      85,
			LowGPA:                 2.0,
		},
		Aggregator: AggregatorConfig{
			PoolSize:              8,
			RecentGrades:          5,
			BehaviorWindowDays:    30,
			RosterCacheTTLSeconds: 300,
		},
		Budget: BudgetConfig{
			TriggerCandidateCount:   15,
			GradeFocusMonths:        3,
			DefaultRecentAttendance: 5,
			DefaultMonths:           6,
			DefaultIncidents:        2,
			DefaultAssessments:      1,
		},
		Rules: RulesConfig{
			Path: "rules.yaml",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <root>/.classlens/config.json
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 2)
	v.SetDefault("dataDir", ".classlens")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".classlens"))

	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills zero values with the defaults so a sparse config file stays valid
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.Resolver.AnalysisSampleCap == 0 {
		c.Resolver.AnalysisSampleCap = def.Resolver.AnalysisSampleCap
	}
	if c.Resolver.RosterDownsampleCap == 0 {
		c.Resolver.RosterDownsampleCap = def.Resolver.RosterDownsampleCap
	}
	if c.Thresholds.ChronicAbsenteeismRate == 0 {
		c.Thresholds.ChronicAbsenteeismRate = def.Thresholds.ChronicAbsenteeismRate
	}
	if c.Thresholds.PassingGrade == 0 {
		c.Thresholds.PassingGrade = def.Thresholds.PassingGrade
	}
	if c.Thresholds.LowAttendanceRate == 0 {
		c.Thresholds.LowAttendanceRate = def.Thresholds.LowAttendanceRate
	}
	if c.Thresholds.LowGPA == 0 {
		c.Thresholds.LowGPA = def.Thresholds.LowGPA
	}
	if c.Aggregator.PoolSize == 0 {
		c.Aggregator.PoolSize = def.Aggregator.PoolSize
	}
	if c.Aggregator.RecentGrades == 0 {
		c.Aggregator.RecentGrades = def.Aggregator.RecentGrades
	}
	if c.Aggregator.BehaviorWindowDays == 0 {
		c.Aggregator.BehaviorWindowDays = def.Aggregator.BehaviorWindowDays
	}
	if c.Aggregator.RosterCacheTTLSeconds == 0 {
		c.Aggregator.RosterCacheTTLSeconds = def.Aggregator.RosterCacheTTLSeconds
	}
	if c.Budget.TriggerCandidateCount == 0 {
		c.Budget.TriggerCandidateCount = def.Budget.TriggerCandidateCount
	}
	if c.Budget.GradeFocusMonths == 0 {
		c.Budget.GradeFocusMonths = def.Budget.GradeFocusMonths
	}
	if c.Budget.DefaultRecentAttendance == 0 {
		c.Budget.DefaultRecentAttendance = def.Budget.DefaultRecentAttendance
	}
	if c.Budget.DefaultMonths == 0 {
		c.Budget.DefaultMonths = def.Budget.DefaultMonths
	}
	if c.Budget.DefaultIncidents == 0 {
		c.Budget.DefaultIncidents = def.Budget.DefaultIncidents
	}
	if c.Budget.DefaultAssessments == 0 {
		c.Budget.DefaultAssessments = def.Budget.DefaultAssessments
	}
	if c.Rules.Path == "" {
		c.Rules.Path = def.Rules.Path
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Save writes the configuration to <root>/.classlens/config.json
func (c *Config) Save(root string) error {
	configPath := filepath.Join(root, ".classlens", "config.json")

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 2 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Thresholds.ChronicAbsenteeismRate < 0 || c.Thresholds.ChronicAbsenteeismRate > 100 {
		return &ConfigError{Field: "thresholds.chronicAbsenteeismRate", Message: "must be a percentage"}
	}
	if c.Thresholds.LowAttendanceRate < 0 || c.Thresholds.LowAttendanceRate > 100 {
		return &ConfigError{Field: "thresholds.lowAttendanceRate", Message: "must be a percentage"}
	}
	if c.Thresholds.LowGPA < 0 || c.Thresholds.LowGPA > 4 {
		return &ConfigError{Field: "thresholds.lowGPA", Message: "must be on the 4.0 scale"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
