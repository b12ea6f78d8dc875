// Package config loads nest tool settings from nest.yaml and NEST_* variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/simonhull/firebird-suite/nest/internal/conflict"
	"github.com/simonhull/firebird-suite/nest/internal/diff"
	"github.com/simonhull/firebird-suite/nest/internal/model"
	"github.com/simonhull/firebird-suite/nest/internal/protect"
)

// Config represents nest.yaml.
type Config struct {
	Protection ProtectionConfig `yaml:"protection" mapstructure:"protection"`
	Thresholds ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`
	Diff       DiffConfig       `yaml:"diff" mapstructure:"diff"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Jobs       JobsConfig       `yaml:"jobs" mapstructure:"jobs"`
	Audit      AuditConfig      `yaml:"audit" mapstructure:"audit"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ProtectionConfig holds biz-file protection settings.
type ProtectionConfig struct {
	PreserveCustomCode    bool            `yaml:"preserve_custom_code" mapstructure:"preserve_custom_code"`
	EnableSmartMerge      bool            `yaml:"enable_smart_merge" mapstructure:"enable_smart_merge"`
	BackupBeforeOverwrite bool            `yaml:"backup_before_overwrite" mapstructure:"backup_before_overwrite"`
	Markers               protect.Markers `yaml:"markers" mapstructure:"markers"`
}

// ThresholdsConfig holds the tunable heuristic ratios.
type ThresholdsConfig struct {
	// SignificantLineRatio is the line-count difference, relative to the
	// larger side, above which a method conflict is resolved by merging.
	SignificantLineRatio float64 `yaml:"significant_line_ratio" mapstructure:"significant_line_ratio"`
	// MergeImpactRatio is the changed-line share above which a diff warns.
	MergeImpactRatio float64 `yaml:"merge_impact_ratio" mapstructure:"merge_impact_ratio"`
}

// GenerationConfig bounds a generation batch.
type GenerationConfig struct {
	Workers int           `yaml:"workers" mapstructure:"workers"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DiffConfig selects the line alignment.
type DiffConfig struct {
	Algorithm string `yaml:"algorithm" mapstructure:"algorithm"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// JobsConfig selects the job-status store.
type JobsConfig struct {
	Backend   string        `yaml:"backend" mapstructure:"backend"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Sweep     time.Duration `yaml:"sweep" mapstructure:"sweep"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB   int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// AuditConfig controls the sqlite audit trail.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Job store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Validate checks settings that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	var problems []string

	if c.Thresholds.SignificantLineRatio <= 0 || c.Thresholds.SignificantLineRatio > 1 {
		problems = append(problems, fmt.Sprintf("thresholds.significant_line_ratio must be in (0, 1], got %g", c.Thresholds.SignificantLineRatio))
	}
	if c.Thresholds.MergeImpactRatio <= 0 || c.Thresholds.MergeImpactRatio > 1 {
		problems = append(problems, fmt.Sprintf("thresholds.merge_impact_ratio must be in (0, 1], got %g", c.Thresholds.MergeImpactRatio))
	}
	if c.Generation.Workers < 1 {
		problems = append(problems, fmt.Sprintf("generation.workers must be at least 1, got %d", c.Generation.Workers))
	}
	if c.Generation.Timeout <= 0 {
		problems = append(problems, "generation.timeout must be positive")
	}
	if a := strings.ToLower(c.Diff.Algorithm); a != string(diff.Positional) && a != string(diff.Myers) {
		problems = append(problems, fmt.Sprintf("diff.algorithm must be positional or myers, got %q", c.Diff.Algorithm))
	}
	if c.Jobs.Backend != BackendMemory && c.Jobs.Backend != BackendRedis {
		problems = append(problems, fmt.Sprintf("jobs.backend must be memory or redis, got %q", c.Jobs.Backend))
	}
	if c.Jobs.TTL <= 0 {
		problems = append(problems, "jobs.ttl must be positive")
	}
	m := c.Protection.Markers
	if strings.TrimSpace(m.Start) == "" || strings.TrimSpace(m.End) == "" {
		problems = append(problems, "protection.markers.start and protection.markers.end must be set")
	} else if m.Start == m.End {
		problems = append(problems, "protection.markers.start and protection.markers.end must differ")
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		problems = append(problems, "audit.path is required when audit is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// ProtectionOptions returns the merge options for a request. The request's
// bizOptions.preserveCustomCode wins over the tool setting.
func (c *Config) ProtectionOptions(preserve bool) protect.Options {
	return protect.Options{
		PreserveCustomCode:    preserve,
		EnableSmartMerge:      c.Protection.EnableSmartMerge,
		BackupBeforeOverwrite: c.Protection.BackupBeforeOverwrite,
		Markers:               c.Protection.Markers,
	}
}

// RequestDefaults seeds a request before decoding so that fields the request
// omits take the tool settings.
func (c *Config) RequestDefaults() model.GenerationConfig {
	return model.GenerationConfig{
		BaseOptions: model.BaseOptions{OutputFormat: model.FormatTypeScript},
		BizOptions: model.BizOptions{
			AllowCustomization: true,
			PreserveCustomCode: c.Protection.PreserveCustomCode,
		},
	}
}

// Resolver returns a conflict resolver using the configured ratio.
func (c *Config) Resolver() *conflict.Resolver {
	return conflict.NewResolver(c.Thresholds.SignificantLineRatio)
}

// DiffOptions returns analyzer options for the configured algorithm.
func (c *Config) DiffOptions() diff.Options {
	return diff.Options{Algorithm: diff.ParseAlgorithm(c.Diff.Algorithm)}
}
