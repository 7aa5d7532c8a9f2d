package data

import (
	"errors"
	"fmt"
	"os"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/pashagolub/escelo/pkg/elo"
)

// Environment variables recognised by LoadConfig
const (
	EnvPrefix     = "ESCELO_"
	EnvConfigPath = "ESCELO_CONFIG"
)

// Error types for configuration validation
var (
	ErrInvalidEloConfig      = errors.New("invalid Elo configuration")
	ErrInvalidSelectorConfig = errors.New("invalid selector configuration")
	ErrInvalidDataConfig     = errors.New("invalid data configuration")
	ErrInvalidExportConfig   = errors.New("invalid export configuration")
	ErrInvalidLogConfig      = errors.New("invalid log configuration")
	ErrInvalidMetricsConfig  = errors.New("invalid metrics configuration")
	ErrConfigNotFound        = errors.New("configuration file not found")
	ErrConfigParseError      = errors.New("failed to parse configuration")
)

// Config is the top-level application configuration
type Config struct {
	Elo      EloConfig      `koanf:"elo" yaml:"elo"`
	Selector SelectorConfig `koanf:"selector" yaml:"selector"`
	Data     DataConfig     `koanf:"data" yaml:"data"`
	UI       UIConfig       `koanf:"ui" yaml:"ui"`
	Export   ExportConfig   `koanf:"export" yaml:"export"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
}

// EloConfig holds settings for Elo rating calculations
type EloConfig struct {
	BaseK              float64 `koanf:"base_k" yaml:"base_k"`                           // K-factor at initial uncertainty (default 32)
	InitialRating      float64 `koanf:"initial_rating" yaml:"initial_rating"`           // Starting rating (default 1400)
	InitialUncertainty float64 `koanf:"initial_uncertainty" yaml:"initial_uncertainty"` // Starting uncertainty (default 100)
	MinUncertainty     float64 `koanf:"min_uncertainty" yaml:"min_uncertainty"`         // Uncertainty floor (default 20)
	UncertaintyDecay   float64 `koanf:"uncertainty_decay" yaml:"uncertainty_decay"`     // Per-comparison decay (default 0.95)
}

// SelectorConfig holds the pair selection heuristic
type SelectorConfig struct {
	RatingDiffWeight  float64 `koanf:"rating_diff_weight" yaml:"rating_diff_weight"`
	UncertaintyWeight float64 `koanf:"uncertainty_weight" yaml:"uncertainty_weight"`
	ProbabilityWeight float64 `koanf:"probability_weight" yaml:"probability_weight"`
	ComparisonWeight  float64 `koanf:"comparison_weight" yaml:"comparison_weight"`
	RatingDiffScale   float64 `koanf:"rating_diff_scale" yaml:"rating_diff_scale"`
	TopFraction       float64 `koanf:"top_fraction" yaml:"top_fraction"`
	MinTopCount       int     `koanf:"min_top_count" yaml:"min_top_count"`
	Seed              uint64  `koanf:"seed" yaml:"seed"` // 0 draws from the process-wide source
}

// DataConfig points at additional dataset files
type DataConfig struct {
	Dir          string `koanf:"dir" yaml:"dir"`                     // Directory with extra *.yaml datasets (optional)
	DefaultYear  int    `koanf:"default_year" yaml:"default_year"`   // Preselected year, 0 picks the newest
	DefaultStage string `koanf:"default_stage" yaml:"default_stage"` // Preselected stage
}

// UIConfig holds terminal interface preferences
type UIConfig struct {
	ShowProgress    bool `koanf:"show_progress" yaml:"show_progress"`       // Display the progress bar
	ShowUncertainty bool `koanf:"show_uncertainty" yaml:"show_uncertainty"` // Display uncertainty in the ranking table
}

// ExportConfig holds output format settings
type ExportConfig struct {
	Format    string `koanf:"format" yaml:"format"`       // Output format (csv/json/yaml/text)
	Directory string `koanf:"directory" yaml:"directory"` // Where exports from the TUI are written
	Precision int    `koanf:"precision" yaml:"precision"` // Decimal places for ratings
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`   // debug, info, warn, error
	Format string `koanf:"format" yaml:"format"` // text or json
	File   string `koanf:"file" yaml:"file"`     // Log destination, empty discards logs
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled" yaml:"enabled"`
	Addr      string `koanf:"addr" yaml:"addr"`
	Namespace string `koanf:"namespace" yaml:"namespace"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Elo:      DefaultEloConfig(),
		Selector: DefaultSelectorConfig(),
		Data: DataConfig{
			DefaultStage: string(StageFinal),
		},
		UI: UIConfig{
			ShowProgress:    true,
			ShowUncertainty: false,
		},
		Export: ExportConfig{
			Format:    "csv",
			Directory: ".",
			Precision: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Addr:      ":9090",
			Namespace: "escelo",
		},
	}
}

// DefaultEloConfig returns the standard rating parameters
func DefaultEloConfig() EloConfig {
	c := elo.DefaultConfig()
	return EloConfig{
		BaseK:              c.BaseK,
		InitialRating:      c.InitialRating,
		InitialUncertainty: c.InitialUncertainty,
		MinUncertainty:     c.MinUncertainty,
		UncertaintyDecay:   c.UncertaintyDecay,
	}
}

// DefaultSelectorConfig returns the standard pair selection heuristic
func DefaultSelectorConfig() SelectorConfig {
	c := elo.DefaultSelectorConfig()
	return SelectorConfig{
		RatingDiffWeight:  c.RatingDiffWeight,
		UncertaintyWeight: c.UncertaintyWeight,
		ProbabilityWeight: c.ProbabilityWeight,
		ComparisonWeight:  c.ComparisonWeight,
		RatingDiffScale:   c.RatingDiffScale,
		TopFraction:       c.TopFraction,
		MinTopCount:       c.MinTopCount,
	}
}

// EngineConfig converts the section to engine parameters
func (e EloConfig) EngineConfig() elo.Config {
	return elo.Config{
		BaseK:              e.BaseK,
		InitialRating:      e.InitialRating,
		InitialUncertainty: e.InitialUncertainty,
		MinUncertainty:     e.MinUncertainty,
		UncertaintyDecay:   e.UncertaintyDecay,
	}
}

// Heuristic converts the section to selector parameters
func (s SelectorConfig) Heuristic() elo.SelectorConfig {
	return elo.SelectorConfig{
		RatingDiffWeight:  s.RatingDiffWeight,
		UncertaintyWeight: s.UncertaintyWeight,
		ProbabilityWeight: s.ProbabilityWeight,
		ComparisonWeight:  s.ComparisonWeight,
		RatingDiffScale:   s.RatingDiffScale,
		TopFraction:       s.TopFraction,
		MinTopCount:       s.MinTopCount,
	}
}

// Validate checks that the whole configuration is valid
func (c *Config) Validate() error {
	if err := c.Elo.Validate(); err != nil {
		return err
	}
	if err := c.Selector.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.Export.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}

// Validate checks that Elo configuration is valid
func (e *EloConfig) Validate() error {
	if _, err := elo.NewEngine(e.EngineConfig()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEloConfig, err)
	}
	if e.BaseK > 100 {
		return fmt.Errorf("%w: base_k %.1f is unusually high (typical range: 10-50)", ErrInvalidEloConfig, e.BaseK)
	}
	return nil
}

// Validate checks that selector configuration is valid
func (s *SelectorConfig) Validate() error {
	if err := s.Heuristic().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSelectorConfig, err)
	}
	return nil
}

// Validate checks that data configuration is valid
func (d *DataConfig) Validate() error {
	if d.DefaultYear < 0 {
		return fmt.Errorf("%w: default_year must not be negative, got %d", ErrInvalidDataConfig, d.DefaultYear)
	}
	if d.DefaultStage != "" {
		if _, err := ParseStage(d.DefaultStage); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDataConfig, err)
		}
	}
	return nil
}

// Validate checks that export configuration is valid
func (e *ExportConfig) Validate() error {
	validFormats := map[string]bool{
		"csv":  true,
		"json": true,
		"yaml": true,
		"text": true,
	}

	if !validFormats[e.Format] {
		return fmt.Errorf("%w: format '%s' must be one of: csv, json, yaml, text", ErrInvalidExportConfig, e.Format)
	}

	if e.Precision < 0 || e.Precision > 10 {
		return fmt.Errorf("%w: precision %d must be between 0 and 10", ErrInvalidExportConfig, e.Precision)
	}

	return nil
}

// Validate checks that log configuration is valid
func (l *LogConfig) Validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: level '%s' must be one of: debug, info, warn, error", ErrInvalidLogConfig, l.Level)
	}

	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: format '%s' must be 'text' or 'json'", ErrInvalidLogConfig, l.Format)
	}

	return nil
}

// Validate checks that metrics configuration is valid
func (m *MetricsConfig) Validate() error {
	if m.Enabled && strings.TrimSpace(m.Addr) == "" {
		return fmt.Errorf("%w: addr is required when metrics are enabled", ErrInvalidMetricsConfig)
	}
	return nil
}

// LoadConfig builds a Config by layering defaults, an optional YAML file and environment variables.
// Order of precedence (low -> high):
//  1. DefaultConfig()
//  2. YAML file at path, or at $ESCELO_CONFIG when path is empty
//  3. env (prefix ESCELO_, "__" separates sections: ESCELO_ELO__BASE_K)
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, fmt.Errorf("failed to access config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfigParseError, path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrConfigParseError, err)
	}

	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParseError, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// envKey maps ESCELO_ELO__BASE_K to elo.base_k
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}
