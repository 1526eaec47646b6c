package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/payengine/internal/ledger"
	"github.com/cleared-dev/payengine/internal/snapshot"
)

// Config represents the payengine.yaml configuration.
type Config struct {
	Ledger      LedgerConfig  `yaml:"ledger"`
	Input       InputConfig   `yaml:"input"`
	Output      OutputConfig  `yaml:"output"`
	Logging     LoggingConfig `yaml:"logging"`
	WarningsLog string        `yaml:"warnings_log,omitempty"`
}

// LedgerConfig controls engine behavior.
type LedgerConfig struct {
	LockPolicy string `yaml:"lock_policy"` // "funding" or "freeze"
}

// InputConfig selects the record source format.
type InputConfig struct {
	Format string `yaml:"format"`
}

// OutputConfig controls snapshot rendering.
type OutputConfig struct {
	Format    string `yaml:"format"`
	Precision int32  `yaml:"precision"`
}

// LoggingConfig controls the stderr logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "json"}
)

// Load reads a payengine.yaml file from disk. Fields missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			LockPolicy: string(ledger.LockFunding),
		},
		Input: InputConfig{
			Format: "csv",
		},
		Output: OutputConfig{
			Format:    "csv",
			Precision: snapshot.DefaultPrecision,
		},
		Logging: LoggingConfig{
			Level:  "error",
			Format: "console",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ledger.ParseLockPolicy(c.Ledger.LockPolicy); err != nil {
		errs = append(errs, fmt.Errorf("ledger.lock_policy: %w", err))
	}
	if c.Input.Format == "" {
		errs = append(errs, errors.New("input.format: required"))
	}
	if !slices.Contains(snapshot.Formats, strings.ToLower(c.Output.Format)) {
		errs = append(errs, fmt.Errorf("output.format: unknown format %q", c.Output.Format))
	}
	if c.Output.Precision < 0 || c.Output.Precision > 28 {
		errs = append(errs, fmt.Errorf("output.precision: %d out of range 0..28", c.Output.Precision))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Logging.Format)) {
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
