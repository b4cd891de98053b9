package discussion

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kohaku-io/agora/internal/errs"
)

// LockOptions tunes the cross-process append lock. The lock file is
// the sole mutex shared by cooperating agent processes; presence
// means held, absence means released.
type LockOptions struct {
	Retry    time.Duration
	Deadline time.Duration
	StaleTTL time.Duration
}

func DefaultLockOptions() LockOptions {
	return LockOptions{
		Retry:    20 * time.Millisecond,
		Deadline: 10 * time.Second,
		StaleTTL: 30 * time.Second,
	}
}

// acquireLock takes the discussion lock with create-exclusive
// semantics. A lock file whose mtime is older than StaleTTL is
// reclaimed; a fresh one is respected until the deadline expires.
// The returned release func is best effort: unlink failures mean
// another party already cleared the lock.
func acquireLock(lockPath string, opts LockOptions) (func(), error) {
	deadline := time.Now().Add(opts.Deadline)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			// pid:mtime payload for diagnostic inspection
			fmt.Fprintf(f, "%d:%d", os.Getpid(), time.Now().UnixMilli())
			if closeErr := f.Close(); closeErr != nil {
				slog.Debug("Lock file close failed", "path", lockPath, "error", closeErr)
			}
			return func() {
				if rmErr := os.Remove(lockPath); rmErr != nil && !os.IsNotExist(rmErr) {
					slog.Debug("Lock release failed", "path", lockPath, "error", rmErr)
				}
			}, nil
		}

		if !os.IsExist(err) {
			return nil, errs.Wrap(err, "open lock file")
		}

		if info, statErr := os.Stat(lockPath); statErr == nil {
			if age := time.Since(info.ModTime()); age > opts.StaleTTL {
				slog.Warn("Reclaiming stale discussion lock", "path", lockPath, "age", age)
				os.Remove(lockPath)
				continue
			}
		}

		if time.Now().After(deadline) {
			return nil, errs.Transient(fmt.Sprintf("lock acquisition timed out after %v on %s", opts.Deadline, lockPath))
		}

		time.Sleep(opts.Retry)
	}
}
