package runtime

import (
	"time"

	"github.com/kohaku-io/agora/internal/config"
)

// Config carries the parsed runtime tunables.
type Config struct {
	PollInterval    time.Duration
	CleanupInterval time.Duration

	MaxWatchedDiscussions int
	MaxConcurrent         int
	MaxQueueSize          int
	MaxRounds             int

	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffCap  time.Duration

	CircuitThreshold int
	CircuitCooldown  time.Duration

	InvokeTimeout time.Duration
	KillGrace     time.Duration
}

// ParseConfig resolves the application config into runtime tunables,
// applying defaults for anything unset.
func ParseConfig(cfg *config.Config) (Config, error) {
	var (
		rc  Config
		err error
	)

	rc.PollInterval, err = config.DurationOrDefault(cfg.Runtime.PollInterval, config.DefaultRuntimePollInterval)
	if err != nil {
		return rc, err
	}
	rc.CleanupInterval, err = config.DurationOrDefault(cfg.Runtime.CleanupInterval, config.DefaultRuntimeCleanupInterval)
	if err != nil {
		return rc, err
	}
	rc.RetryBackoffBase, err = config.DurationOrDefault(cfg.Runtime.RetryBackoffBase, config.DefaultRetryBackoffBase)
	if err != nil {
		return rc, err
	}
	rc.RetryBackoffCap, err = config.DurationOrDefault(cfg.Runtime.RetryBackoffCap, config.DefaultRetryBackoffCap)
	if err != nil {
		return rc, err
	}
	rc.CircuitCooldown, err = config.DurationOrDefault(cfg.Runtime.CircuitCooldown, config.DefaultCircuitCooldown)
	if err != nil {
		return rc, err
	}
	rc.InvokeTimeout, err = config.DurationOrDefault(cfg.Invoker.Timeout, config.DefaultInvokerTimeout)
	if err != nil {
		return rc, err
	}
	rc.KillGrace, err = config.DurationOrDefault(cfg.Invoker.KillGrace, config.DefaultInvokerKillGrace)
	if err != nil {
		return rc, err
	}

	rc.MaxWatchedDiscussions = intOrDefault(cfg.Runtime.MaxWatchedDiscussions, config.DefaultRuntimeMaxWatched)
	rc.MaxConcurrent = intOrDefault(cfg.Runtime.MaxConcurrent, config.DefaultRuntimeMaxConcurrent)
	rc.MaxQueueSize = intOrDefault(cfg.Runtime.MaxQueueSize, config.DefaultRuntimeMaxQueueSize)
	rc.MaxRounds = intOrDefault(cfg.Runtime.MaxRounds, config.DefaultRuntimeMaxRounds)
	rc.MaxRetries = intOrDefault(cfg.Runtime.MaxRetries, config.DefaultRuntimeMaxRetries)
	rc.CircuitThreshold = intOrDefault(cfg.Runtime.CircuitThreshold, config.DefaultCircuitThreshold)

	return rc, nil
}

func intOrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
