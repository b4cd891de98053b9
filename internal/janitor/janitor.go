package janitor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kohaku-io/agora/internal/discussion"
	"github.com/kohaku-io/agora/internal/errs"

	"github.com/robfig/cron/v3"
)

// Janitor periodically sweeps the discussion directory: stale lock
// files left by crashed writers are removed, and ended discussions
// older than the archive threshold are moved into archive/.
type Janitor struct {
	store        *discussion.Store
	schedule     string
	lockStaleTTL time.Duration
	archiveAfter time.Duration

	cron *cron.Cron
}

type Config struct {
	Schedule     string
	LockStaleTTL time.Duration
	ArchiveAfter time.Duration
}

func New(store *discussion.Store, cfg Config) *Janitor {
	return &Janitor{
		store:        store,
		schedule:     cfg.Schedule,
		lockStaleTTL: cfg.LockStaleTTL,
		archiveAfter: cfg.ArchiveAfter,
	}
}

func (j *Janitor) Name() string { return "Janitor" }

func (j *Janitor) Dependencies() []string { return nil }

func (j *Janitor) Init(ctx context.Context) error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, j.Sweep); err != nil {
		return errs.InvalidInput("invalid janitor schedule: " + j.schedule)
	}
	return nil
}

func (j *Janitor) Start(ctx context.Context) error {
	j.cron.Start()
	slog.Info("Janitor started", "schedule", j.schedule)
	return nil
}

func (j *Janitor) Stop(ctx context.Context) error {
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	slog.Info("Janitor stopped")
	return nil
}

func (j *Janitor) Health(ctx context.Context) error {
	if j.cron == nil {
		return errs.Internal("janitor not initialized")
	}
	return nil
}

// Sweep runs one full pass. It is exported so the CLI can trigger a
// manual sweep without the cron engine.
func (j *Janitor) Sweep() {
	j.sweepLocks()
	if j.archiveAfter > 0 {
		j.archiveEnded()
	}
}

// sweepLocks removes lock files whose mtime exceeds the stale TTL.
// Live writers refresh their lock implicitly by holding it briefly;
// anything older belongs to a dead process.
func (j *Janitor) sweepLocks() {
	entries, err := os.ReadDir(j.store.BaseDir())
	if err != nil {
		slog.Warn("Janitor lock sweep failed", "error", err)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl.lock") {
			continue
		}
		path := filepath.Join(j.store.BaseDir(), name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		age := time.Since(info.ModTime())
		if age <= j.lockStaleTTL {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove stale lock", "lock", name, "error", err)
			continue
		}
		slog.Info("Removed stale lock", "lock", name, "age", age)
	}
}

// archiveEnded moves ended discussions older than the threshold into
// the archive directory. The log and result files move together; a
// partial move leaves the rest for the next sweep.
func (j *Janitor) archiveEnded() {
	statuses, err := j.store.ListStatuses()
	if err != nil {
		slog.Warn("Janitor archive scan failed", "error", err)
		return
	}

	archiveDir := discussion.ArchiveDir(j.store.BaseDir())
	for _, st := range statuses {
		if st.Active || st.EndedAt == "" {
			continue
		}
		endedAt, err := time.Parse(time.RFC3339, st.EndedAt)
		if err != nil || time.Since(endedAt) <= j.archiveAfter {
			continue
		}

		if err := os.MkdirAll(archiveDir, 0755); err != nil {
			slog.Warn("Failed to create archive dir", "error", err)
			return
		}

		moved := false
		for _, path := range []string{
			discussion.LogPath(j.store.BaseDir(), st.ID),
			discussion.ResultPath(j.store.BaseDir(), st.ID),
		} {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			dest := filepath.Join(archiveDir, filepath.Base(path))
			if err := os.Rename(path, dest); err != nil {
				slog.Warn("Failed to archive file", "discussion", st.ID, "file", filepath.Base(path), "error", err)
				continue
			}
			moved = true
		}
		// leftover lock is garbage once the log is gone
		_ = os.Remove(discussion.LockPath(j.store.BaseDir(), st.ID))

		if moved {
			slog.Info("Archived discussion", "discussion", st.ID, "ended_at", st.EndedAt)
		}
	}
}
