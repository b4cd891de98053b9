package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/kohaku-io/agora/internal/agent"
	"github.com/kohaku-io/agora/internal/discussion"
	"github.com/kohaku-io/agora/internal/errs"

	"github.com/gofrs/flock"
)

// queueItem is one deferred response candidate awaiting a slot.
type queueItem struct {
	id         string
	round      int
	enqueuedAt time.Time
}

// retryState tracks the backoff chain for one discussion.
type retryState struct {
	attempt int
	max     int
}

// Runtime is the per-agent turn scheduler. It owns every piece of
// in-memory agent state behind one mutex; the discussion log is the
// only thing shared with other processes.
type Runtime struct {
	profile *agent.Profile
	store   *discussion.Store
	cfg     Config

	instanceLock *flock.Flock

	mu      sync.Mutex
	running bool

	watched       map[string]int       // discussion id -> last observed seq
	lastWatchedAt map[string]time.Time // discussion id -> last poll time
	watchers      map[string]*watcher  // discussion id -> poll timer handle

	responding       map[string]bool         // per-discussion response mutex
	attemptedRounds  map[string]map[int]bool // rounds attempted this process lifetime
	retries          map[string]*retryState  // timeout backoff chains
	failures         map[string]int          // consecutive failure counts
	circuitOpenUntil map[string]time.Time    // circuit breaker expiry

	activeCount  int
	pendingQueue []queueItem
	draining     bool

	scanTicker    *time.Ticker
	cleanupTicker *time.Ticker
	quit          chan struct{}
	wg            sync.WaitGroup
}

// New builds a runtime for one agent profile over one discussion
// store.
func New(profile *agent.Profile, store *discussion.Store, cfg Config) *Runtime {
	return &Runtime{
		profile:          profile,
		store:            store,
		cfg:              cfg,
		watched:          make(map[string]int),
		lastWatchedAt:    make(map[string]time.Time),
		watchers:         make(map[string]*watcher),
		responding:       make(map[string]bool),
		attemptedRounds:  make(map[string]map[int]bool),
		retries:          make(map[string]*retryState),
		failures:         make(map[string]int),
		circuitOpenUntil: make(map[string]time.Time),
	}
}

// AgentName returns the identity this runtime speaks as.
func (r *Runtime) AgentName() string {
	return r.profile.Name
}

// Name implements the daemon component contract.
func (r *Runtime) Name() string {
	return "AgentRuntime"
}

func (r *Runtime) Dependencies() []string {
	return []string{}
}

// Init acquires the single-instance lock for this agent name. Two
// daemons speaking as the same agent over the same base dir would
// double-respond; refusing to start is the fix.
func (r *Runtime) Init(ctx context.Context) error {
	lockDir := discussion.AgentLockDir(r.store.BaseDir())
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return errs.Wrap(err, "create agent lock dir")
	}

	fl := flock.New(lockDir + "/" + r.profile.Name + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return errs.Wrap(err, "acquire agent instance lock")
	}
	if !locked {
		return errs.Conflict(fmt.Sprintf("agent %q is already running against %s", r.profile.Name, r.store.BaseDir()))
	}

	r.instanceLock = fl
	slog.Info("Agent runtime initialized",
		"agent", r.profile.Name,
		"binary", r.profile.Binary,
		"base_dir", r.store.BaseDir(),
	)
	return nil
}

// Start enumerates active discussions, registers watchers for the
// prioritized set, and launches the scan and cleanup timers.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.quit = make(chan struct{})
	r.mu.Unlock()

	r.rescan()

	r.scanTicker = time.NewTicker(r.cfg.PollInterval * 2)
	r.cleanupTicker = time.NewTicker(r.cfg.CleanupInterval)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.quit:
				return
			case <-r.scanTicker.C:
				r.rescan()
			case <-r.cleanupTicker.C:
				r.sweepEnded()
			}
		}
	}()

	slog.Info("Agent runtime started",
		"agent", r.profile.Name,
		"poll_interval", r.cfg.PollInterval,
		"max_concurrent", r.cfg.MaxConcurrent,
	)
	return nil
}

// Stop halts all timers and empties the queue. In-flight child
// processes are left to settle on their own timeouts.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	wasRunning := r.running
	r.running = false
	watchers := r.watchers
	r.watchers = make(map[string]*watcher)
	r.pendingQueue = nil
	r.mu.Unlock()

	if wasRunning {
		close(r.quit)
		if r.scanTicker != nil {
			r.scanTicker.Stop()
		}
		if r.cleanupTicker != nil {
			r.cleanupTicker.Stop()
		}

		for _, w := range watchers {
			w.stop()
		}
		r.wg.Wait()
	}

	if r.instanceLock != nil {
		if err := r.instanceLock.Unlock(); err != nil {
			slog.Warn("Failed to release agent instance lock", "agent", r.profile.Name, "error", err)
		}
		r.instanceLock = nil
	}

	slog.Info("Agent runtime stopped", "agent", r.profile.Name)
	return nil
}

// Health reports whether the scheduler loop is alive.
func (r *Runtime) Health(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return errs.Internal("runtime not running")
	}
	return nil
}

// Snapshot exposes counters for health logging and tests.
type Snapshot struct {
	Watched     int
	Responding  int
	ActiveCount int
	QueueLength int
}

func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Watched:     len(r.watched),
		Responding:  len(r.responding),
		ActiveCount: r.activeCount,
		QueueLength: len(r.pendingQueue),
	}
}
