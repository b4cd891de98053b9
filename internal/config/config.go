package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kohaku-io/agora/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Discussions DiscussionsConfig `koanf:"discussions"`
	Runtime     RuntimeConfig     `koanf:"runtime"`
	Invoker     InvokerConfig     `koanf:"invoker"`
	Janitor     JanitorConfig     `koanf:"janitor"`
	Daemon      DaemonConfig      `koanf:"daemon"`
}

type ServerConfig struct {
	LogLevel string `koanf:"log_level"`
}

type DiscussionsConfig struct {
	BaseDir      string `koanf:"base_dir"`
	LockRetry    string `koanf:"lock_retry"`
	LockDeadline string `koanf:"lock_deadline"`
	LockStaleTTL string `koanf:"lock_stale_ttl"`
}

type RuntimeConfig struct {
	PollInterval          string `koanf:"poll_interval"`
	CleanupInterval       string `koanf:"cleanup_interval"`
	MaxWatchedDiscussions int    `koanf:"max_watched_discussions"`
	MaxConcurrent         int    `koanf:"max_concurrent"`
	MaxQueueSize          int    `koanf:"max_queue_size"`
	MaxRounds             int    `koanf:"max_rounds"`
	MaxRetries            int    `koanf:"max_retries"`
	RetryBackoffBase      string `koanf:"retry_backoff_base"`
	RetryBackoffCap       string `koanf:"retry_backoff_cap"`
	CircuitThreshold      int    `koanf:"circuit_threshold"`
	CircuitCooldown       string `koanf:"circuit_cooldown"`
}

type InvokerConfig struct {
	Timeout   string `koanf:"timeout"`
	KillGrace string `koanf:"kill_grace"`
}

type JanitorConfig struct {
	Enabled       bool   `koanf:"enabled"`
	SweepSchedule string `koanf:"sweep_schedule"`
	ArchiveAfter  string `koanf:"archive_after"`
}

type DaemonConfig struct {
	ShutdownTimeout     string `koanf:"shutdown_timeout"`
	HealthCheckInterval string `koanf:"health_check_interval"`
}

const (
	DefaultServerLogLevel = "info"

	DefaultDiscussionsBaseDir = "./discussions"
	DefaultLockRetry          = "20ms"
	DefaultLockDeadline       = "10s"
	DefaultLockStaleTTL       = "30s"

	DefaultRuntimePollInterval    = "2s"
	DefaultRuntimeCleanupInterval = "60s"
	DefaultRuntimeMaxWatched      = 50
	DefaultRuntimeMaxConcurrent   = 5
	DefaultRuntimeMaxQueueSize    = 20
	DefaultRuntimeMaxRounds       = 5
	DefaultRuntimeMaxRetries      = 3
	DefaultRetryBackoffBase       = "30s"
	DefaultRetryBackoffCap        = "120s"
	DefaultCircuitThreshold       = 5
	DefaultCircuitCooldown        = "60s"

	DefaultInvokerTimeout   = "180s"
	DefaultInvokerKillGrace = "3s"

	DefaultJanitorEnabled       = true
	DefaultJanitorSweepSchedule = "@every 1m"
	DefaultJanitorArchiveAfter  = ""

	DefaultDaemonShutdownTimeout     = "30s"
	DefaultDaemonHealthCheckInterval = "30s"
)

// BaseDirEnv overrides the discussion base directory regardless of
// config file or flags. Kept for compatibility with cooperating
// processes that only speak environment variables.
const BaseDirEnv = "AGORA_BASE_DIR"

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.log_level":                  DefaultServerLogLevel,
		"discussions.base_dir":              DefaultDiscussionsBaseDir,
		"discussions.lock_retry":            DefaultLockRetry,
		"discussions.lock_deadline":         DefaultLockDeadline,
		"discussions.lock_stale_ttl":        DefaultLockStaleTTL,
		"runtime.poll_interval":             DefaultRuntimePollInterval,
		"runtime.cleanup_interval":          DefaultRuntimeCleanupInterval,
		"runtime.max_watched_discussions":   DefaultRuntimeMaxWatched,
		"runtime.max_concurrent":            DefaultRuntimeMaxConcurrent,
		"runtime.max_queue_size":            DefaultRuntimeMaxQueueSize,
		"runtime.max_rounds":                DefaultRuntimeMaxRounds,
		"runtime.max_retries":               DefaultRuntimeMaxRetries,
		"runtime.retry_backoff_base":        DefaultRetryBackoffBase,
		"runtime.retry_backoff_cap":         DefaultRetryBackoffCap,
		"runtime.circuit_threshold":         DefaultCircuitThreshold,
		"runtime.circuit_cooldown":          DefaultCircuitCooldown,
		"invoker.timeout":                   DefaultInvokerTimeout,
		"invoker.kill_grace":                DefaultInvokerKillGrace,
		"janitor.enabled":                   DefaultJanitorEnabled,
		"janitor.sweep_schedule":            DefaultJanitorSweepSchedule,
		"janitor.archive_after":             DefaultJanitorArchiveAfter,
		"daemon.shutdown_timeout":           DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":      DefaultDaemonHealthCheckInterval,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".agora", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	k.Load(env.Provider("AGORA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "AGORA_")), "_", ".", -1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if override := strings.TrimSpace(os.Getenv(BaseDirEnv)); override != "" {
		cfg.Discussions.BaseDir = override
	}

	baseDir, err := pathutil.Expand(cfg.Discussions.BaseDir)
	if err != nil {
		return nil, err
	}
	if baseDir != "" {
		cfg.Discussions.BaseDir = baseDir
	}

	return &cfg, nil
}
