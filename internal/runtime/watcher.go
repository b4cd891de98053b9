package runtime

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kohaku-io/agora/internal/message"
)

// watcher is the periodic poll timer for one discussion.
type watcher struct {
	stopOnce sync.Once
	quit     chan struct{}
}

func (w *watcher) stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}

// startWatcher registers a poll timer for a discussion. Caller holds
// no locks.
func (r *Runtime) startWatcher(id string) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	if _, exists := r.watchers[id]; exists {
		r.mu.Unlock()
		return
	}
	w := &watcher{quit: make(chan struct{})}
	r.watchers[id] = w
	if _, ok := r.watched[id]; !ok {
		r.watched[id] = 0
	}
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-w.quit:
				return
			case <-ticker.C:
				r.poll(id)
			}
		}
	}()

	slog.Debug("Watching discussion", "agent", r.profile.Name, "discussion", id)
}

// poll reads the log, tracks growth, and offers a response candidate
// when it is this agent's turn. Observing an end record triggers
// cleanup immediately so the timer cannot outlive the discussion.
func (r *Runtime) poll(id string) {
	msgs, err := r.store.ReadAll(id)
	if err != nil {
		slog.Warn("Poll failed", "agent", r.profile.Name, "discussion", id, "error", err)
		return
	}

	now := time.Now()
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.lastWatchedAt[id] = now
	if len(msgs) > 0 {
		r.watched[id] = msgs[len(msgs)-1].Seq
	}
	r.mu.Unlock()

	if len(msgs) == 0 {
		// file vanished; the cleanup sweep will release the watcher
		return
	}

	for _, m := range msgs {
		if m.Type == message.TypeEnd {
			slog.Debug("Discussion ended, releasing watcher", "agent", r.profile.Name, "discussion", id)
			r.cleanup(id)
			return
		}
	}

	r.offer(id, msgs)
}

// rescan re-runs prioritization: it keeps attention on the liveliest
// discussions while least-recently-polled ordering prevents
// starvation of quiet ones.
func (r *Runtime) rescan() {
	ids, err := r.store.List()
	if err != nil {
		slog.Warn("Discussion scan failed", "agent", r.profile.Name, "error", err)
		return
	}

	type scored struct {
		id         string
		activity   time.Time
		lastPolled time.Time
	}

	var candidates []scored
	for _, id := range ids {
		st, err := r.store.Status(id)
		if err != nil || !st.Active {
			continue
		}
		if !contains(st.Participants, r.profile.Name) {
			continue
		}
		r.mu.Lock()
		lastPolled := r.lastWatchedAt[id]
		r.mu.Unlock()
		candidates = append(candidates, scored{
			id:         id,
			activity:   r.store.LastActivity(id),
			lastPolled: lastPolled,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].activity.Equal(candidates[j].activity) {
			return candidates[i].activity.After(candidates[j].activity)
		}
		return candidates[i].lastPolled.Before(candidates[j].lastPolled)
	})

	if len(candidates) > r.cfg.MaxWatchedDiscussions {
		candidates = candidates[:r.cfg.MaxWatchedDiscussions]
	}

	keep := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		keep[c.id] = true
	}

	// release watchers that dropped out of the prioritized set,
	// unless a response is in flight for them
	r.mu.Lock()
	var released []string
	for id, w := range r.watchers {
		if keep[id] || r.responding[id] {
			continue
		}
		w.stop()
		delete(r.watchers, id)
		delete(r.watched, id)
		delete(r.lastWatchedAt, id)
		released = append(released, id)
	}
	r.mu.Unlock()

	for _, id := range released {
		slog.Debug("Released watcher after rescan", "agent", r.profile.Name, "discussion", id)
	}

	for _, c := range candidates {
		r.startWatcher(c.id)
	}
}

// sweepEnded releases watchers whose discussions have ended or whose
// files disappeared.
func (r *Runtime) sweepEnded() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.watchers))
	for id := range r.watchers {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		if !r.store.Exists(id) {
			r.cleanup(id)
			continue
		}
		st, err := r.store.Status(id)
		if err != nil || !st.Active {
			r.cleanup(id)
		}
	}
}

// cleanup releases everything the runtime holds for a discussion:
// its watcher timer, poll bookkeeping, retry and attempt state, the
// responding flag, circuit entry, and any queued items.
func (r *Runtime) cleanup(id string) {
	r.mu.Lock()
	if w, ok := r.watchers[id]; ok {
		w.stop()
		delete(r.watchers, id)
	}
	delete(r.watched, id)
	delete(r.lastWatchedAt, id)
	delete(r.retries, id)
	delete(r.attemptedRounds, id)
	delete(r.responding, id)
	delete(r.failures, id)
	delete(r.circuitOpenUntil, id)

	filtered := r.pendingQueue[:0]
	for _, item := range r.pendingQueue {
		if item.id != id {
			filtered = append(filtered, item)
		}
	}
	r.pendingQueue = filtered
	r.mu.Unlock()

	slog.Debug("Cleaned up discussion state", "agent", r.profile.Name, "discussion", id)
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
