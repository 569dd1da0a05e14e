// Package engineconfig loads the module's process-wide tunables from
// YAML (SPEC_FULL.md §4.9). cmd/pipelinectl applies the progress
// interval and rate-limit fields. CancellationPollEvery and
// StrictParameterValidation are loaded and validated, but nothing
// reads them: the runtime polls cancellation at its progress interval,
// and parameter parsing accepts unknown fields. Grounded on internal/config/providers.go's
// flat-struct, os.ReadFile-plus-yaml.Unmarshal, Default()-then-Validate
// pattern.
package engineconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the process-wide tunable set.
type Config struct {
	ProgressReportEvery        int     `yaml:"progress_report_every"`
	CancellationPollEvery      int     `yaml:"cancellation_poll_every"`
	StrictParameterValidation  bool    `yaml:"strict_parameter_validation"`
	ProgressRateLimitPerSecond float64 `yaml:"progress_rate_limit_per_second"`
	ProgressRateLimitBurst     int     `yaml:"progress_rate_limit_burst"`
}

// Default returns the module's built-in defaults, matching
// execctx.ProgressEvery's floor of 100. ProgressRateLimitPerSecond is
// 0 by default, meaning progress throttling is disabled and every
// ReportProgress call reaches the installed hook (execctx.New's
// behaviour); a config document opts into execctx.NewRateLimited by
// setting it positive.
func Default() Config {
	return Config{
		ProgressReportEvery:        100,
		CancellationPollEvery:      100,
		StrictParameterValidation:  true,
		ProgressRateLimitPerSecond: 0,
		ProgressRateLimitBurst:     1,
	}
}

// Load reads and parses path, starting from Default() so a YAML
// document only needs to override the fields it cares about.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading engine config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing engine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid engine config: %w", err)
	}
	return cfg, nil
}

// Validate ensures cfg's fields are usable.
func (c Config) Validate() error {
	if c.ProgressReportEvery <= 0 {
		return fmt.Errorf("progress_report_every must be positive, got %d", c.ProgressReportEvery)
	}
	if c.CancellationPollEvery <= 0 {
		return fmt.Errorf("cancellation_poll_every must be positive, got %d", c.CancellationPollEvery)
	}
	if c.ProgressRateLimitPerSecond < 0 {
		return fmt.Errorf("progress_rate_limit_per_second must not be negative, got %f", c.ProgressRateLimitPerSecond)
	}
	if c.ProgressRateLimitPerSecond > 0 && c.ProgressRateLimitBurst <= 0 {
		return fmt.Errorf("progress_rate_limit_burst must be positive when progress_rate_limit_per_second is set, got %d", c.ProgressRateLimitBurst)
	}
	return nil
}
