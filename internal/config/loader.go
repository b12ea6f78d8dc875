package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/simonhull/firebird-suite/nest/internal/protect"
)

// FileName is the settings file looked up in the working directory.
const FileName = "nest.yaml"

// Load reads settings in order: defaults, then the settings file, then NEST_*
// environment variables. An empty path looks for nest.yaml in the working
// directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("settings file %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	v.SetEnvPrefix("NEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the settings used when no file or environment is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("protection.preserve_custom_code", true)
	v.SetDefault("protection.enable_smart_merge", true)
	v.SetDefault("protection.backup_before_overwrite", true)
	v.SetDefault("protection.markers.start", protect.DefaultMarkers.Start)
	v.SetDefault("protection.markers.end", protect.DefaultMarkers.End)

	v.SetDefault("thresholds.significant_line_ratio", 0.2)
	v.SetDefault("thresholds.merge_impact_ratio", 0.5)

	v.SetDefault("generation.workers", runtime.NumCPU())
	v.SetDefault("generation.timeout", 2*time.Minute)

	v.SetDefault("diff.algorithm", "positional")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("jobs.backend", BackendMemory)
	v.SetDefault("jobs.ttl", time.Hour)
	v.SetDefault("jobs.sweep", time.Minute)
	v.SetDefault("jobs.redis_addr", "localhost:6379")
	v.SetDefault("jobs.redis_db", 0)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", ".nest/audit.db")

	v.SetDefault("log.level", "info")
}
