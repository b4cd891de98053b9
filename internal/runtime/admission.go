package runtime

import (
	"log/slog"
	"time"

	"github.com/kohaku-io/agora/internal/concurrency"
	"github.com/kohaku-io/agora/internal/errs"
	"github.com/kohaku-io/agora/internal/message"
)

// offer evaluates the turn decision for a discussion and, when a
// candidate emerges, pushes it through admission. Flow-control
// rejections are logged quietly; they are expected outcomes.
func (r *Runtime) offer(id string, msgs []message.Message) {
	candidate := Decide(msgs, r.profile.Name, r.cfg.MaxRounds)
	if candidate == nil {
		return
	}

	if err := r.admit(id, candidate.Round); err != nil {
		if errs.IsFlowControl(err) {
			slog.Debug("Admission deferred",
				"agent", r.profile.Name,
				"discussion", id,
				"round", candidate.Round,
				"signal", err,
			)
		} else {
			slog.Warn("Admission failed", "agent", r.profile.Name, "discussion", id, "error", err)
		}
		return
	}

	round := candidate.Round
	trigger := candidate.Trigger
	concurrency.SafeGo(func() {
		r.respond(id, round, trigger)
	}, func(interface{}) {
		r.finalize(id, false)
	})
}

// admit runs the admission sequence for a candidate round: circuit
// check, capacity with dedup queue, per-discussion responding lock,
// and round dedup. On success the responding lock is held and the
// round is marked attempted.
func (r *Runtime) admit(id string, round int) error {
	r.mu.Lock()

	if !r.running {
		r.mu.Unlock()
		return errs.Internal("runtime not running")
	}

	// circuit check
	if until, ok := r.circuitOpenUntil[id]; ok {
		if time.Now().Before(until) {
			r.mu.Unlock()
			return errs.ErrCircuitOpen
		}
		delete(r.circuitOpenUntil, id)
		r.failures[id] = 0
	}

	// capacity
	if r.activeCount >= r.cfg.MaxConcurrent {
		for _, item := range r.pendingQueue {
			if item.id == id {
				r.mu.Unlock()
				return errs.ErrQueued
			}
		}
		if len(r.pendingQueue) >= r.cfg.MaxQueueSize {
			evicted := r.pendingQueue[0]
			r.pendingQueue = r.pendingQueue[1:]
			slog.Warn("Pending queue full, evicting oldest",
				"agent", r.profile.Name,
				"evicted_discussion", evicted.id,
				"waited", time.Since(evicted.enqueuedAt),
			)
		}
		r.pendingQueue = append(r.pendingQueue, queueItem{id: id, round: round, enqueuedAt: time.Now()})
		r.mu.Unlock()
		return errs.ErrQueued
	}

	r.activeCount++

	// per-discussion responding lock
	if r.responding[id] {
		r.decrementActiveLocked()
		r.mu.Unlock()
		r.drainQueue()
		return errs.ErrAlreadyResponding
	}

	// round dedup
	if r.attemptedRounds[id][round] {
		r.decrementActiveLocked()
		r.mu.Unlock()
		r.drainQueue()
		return errs.ErrAlreadyAttempted
	}

	r.responding[id] = true
	if r.attemptedRounds[id] == nil {
		r.attemptedRounds[id] = make(map[int]bool)
	}
	r.attemptedRounds[id][round] = true
	r.mu.Unlock()

	return nil
}

func (r *Runtime) decrementActiveLocked() {
	r.activeCount--
	if r.activeCount < 0 {
		r.activeCount = 0
	}
}

// finalize releases the responding lock and the concurrency slot,
// updates the failure counter and circuit breaker, and drains the
// pending queue.
func (r *Runtime) finalize(id string, success bool) {
	r.mu.Lock()
	delete(r.responding, id)
	r.decrementActiveLocked()

	if success {
		delete(r.failures, id)
		delete(r.circuitOpenUntil, id)
	} else {
		r.failures[id]++
		if r.failures[id] >= r.cfg.CircuitThreshold {
			until := time.Now().Add(r.cfg.CircuitCooldown)
			r.circuitOpenUntil[id] = until
			slog.Warn("Local circuit opened",
				"agent", r.profile.Name,
				"discussion", id,
				"failures", r.failures[id],
				"until", until.Format(time.RFC3339),
			)
		}
	}
	r.mu.Unlock()

	r.drainQueue()
}

// drainQueue re-offers queued candidates while slots are free. The
// draining flag keeps a drain from re-entering itself through the
// admission rejection paths.
func (r *Runtime) drainQueue() {
	r.mu.Lock()
	if r.draining || !r.running {
		r.mu.Unlock()
		return
	}
	r.draining = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.draining = false
		r.mu.Unlock()
	}()

	for {
		r.mu.Lock()
		if r.activeCount >= r.cfg.MaxConcurrent || len(r.pendingQueue) == 0 {
			r.mu.Unlock()
			return
		}
		item := r.pendingQueue[0]
		r.pendingQueue = r.pendingQueue[1:]
		r.mu.Unlock()

		// conditions may have shifted while queued: re-derive
		msgs, err := r.store.ReadAll(item.id)
		if err != nil || len(msgs) == 0 {
			continue
		}
		candidate := Decide(msgs, r.profile.Name, r.cfg.MaxRounds)
		if candidate == nil {
			continue
		}
		if err := r.admit(item.id, candidate.Round); err != nil {
			slog.Debug("Drained candidate rejected",
				"agent", r.profile.Name,
				"discussion", item.id,
				"signal", err,
			)
			continue
		}

		id, round, trigger := item.id, candidate.Round, candidate.Trigger
		concurrency.SafeGo(func() {
			r.respond(id, round, trigger)
		}, func(interface{}) {
			r.finalize(id, false)
		})
	}
}
