package main

import (
	"fmt"

	"github.com/kohaku-io/agora/internal/config"
	"github.com/kohaku-io/agora/internal/discussion"
	"github.com/kohaku-io/agora/internal/result"
)

// newStore builds the discussion store from the loaded config, with
// the result renderer attached as the append hook.
func newStore() (*discussion.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	lockOpts, err := lockOptionsFromConfig()
	if err != nil {
		return nil, err
	}

	store, err := discussion.NewStore(cfg.Discussions.BaseDir, discussion.WithLockOptions(lockOpts))
	if err != nil {
		return nil, err
	}

	result.NewRenderer(store).Attach()
	return store, nil
}

func lockOptionsFromConfig() (discussion.LockOptions, error) {
	opts := discussion.DefaultLockOptions()

	retry, err := config.DurationOrDefault(cfg.Discussions.LockRetry, config.DefaultLockRetry)
	if err != nil {
		return opts, fmt.Errorf("parse lock retry: %w", err)
	}
	deadline, err := config.DurationOrDefault(cfg.Discussions.LockDeadline, config.DefaultLockDeadline)
	if err != nil {
		return opts, fmt.Errorf("parse lock deadline: %w", err)
	}
	staleTTL, err := config.DurationOrDefault(cfg.Discussions.LockStaleTTL, config.DefaultLockStaleTTL)
	if err != nil {
		return opts, fmt.Errorf("parse lock stale ttl: %w", err)
	}

	opts.Retry = retry
	opts.Deadline = deadline
	opts.StaleTTL = staleTTL
	return opts, nil
}
