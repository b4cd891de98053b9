package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kohaku-io/agora/internal/concurrency"
	"github.com/kohaku-io/agora/internal/invoker"
	"github.com/kohaku-io/agora/internal/logger"
	"github.com/kohaku-io/agora/internal/message"
)

// respond executes one admitted response attempt. It runs on its own
// goroutine; the responding lock for the discussion is held and must
// be released through finalize on every path.
func (r *Runtime) respond(id string, round int, trigger message.Message) {
	slog.Info("Responding",
		"agent", r.profile.Name,
		"discussion", id,
		"round", round,
		"trigger", trigger.Type,
		"trigger_seq", trigger.Seq,
	)

	// best effort: a missing thinking record is not worth aborting for
	if _, err := r.store.AppendStatus(id, r.profile.Name, round, message.StatusThinking, "thinking"); err != nil {
		slog.Warn("Failed to append thinking status", "agent", r.profile.Name, "discussion", id, "error", err)
	}

	msgs, err := r.store.ReadAll(id)
	if err != nil || len(msgs) == 0 {
		r.finalize(id, false)
		return
	}

	start := msgs[0]
	workingDir := start.WorkingDir()
	if workingDir == "" {
		workingDir = r.profile.DefaultWorkDir
	}

	prompt := r.profile.BuildPrompt(start.Topic, start.Participants, start.WorkingDir(), msgs, round)

	result := r.invoke(id, prompt, workingDir)
	if !result.OK {
		r.finalize(id, false)

		if strings.Contains(result.Err, invoker.TimeoutError) {
			r.scheduleRetry(id, round)
			return
		}

		r.clearRetries(id)
		if _, appendErr := r.store.AppendError(id, r.profile.Name, round, result.Err); appendErr != nil {
			slog.Warn("Failed to append error record", "agent", r.profile.Name, "discussion", id, "error", appendErr)
		}
		return
	}

	body, err := message.ValidateIdentity(result.Output, r.profile.Name, otherNames(start.Participants, r.profile.Name))
	if err != nil {
		// a single in-place retry, not the full backoff chain
		slog.Warn("Identity validation failed, retrying once",
			"agent", r.profile.Name,
			"discussion", id,
			"round", round,
			"error", err,
		)
		if _, statusErr := r.store.AppendStatus(id, r.profile.Name, round, message.StatusRetrying, "identity check failed, retrying"); statusErr != nil {
			slog.Warn("Failed to append retrying status", "agent", r.profile.Name, "discussion", id, "error", statusErr)
		}

		result = r.invoke(id, prompt, workingDir)
		if result.OK {
			body, err = message.ValidateIdentity(result.Output, r.profile.Name, otherNames(start.Participants, r.profile.Name))
		} else {
			err = fmt.Errorf("%s", result.Err)
		}
		if err != nil {
			r.finalize(id, false)
			if _, appendErr := r.store.AppendError(id, r.profile.Name, round, err.Error()); appendErr != nil {
				slog.Warn("Failed to append error record", "agent", r.profile.Name, "discussion", id, "error", appendErr)
			}
			return
		}
	}

	opinion, confidence := message.ParseOpinion(body)
	body = message.EnsureClosure(body, opinion, counterpart(start.Participants, r.profile.Name))

	if _, err := r.store.AppendResponse(id, r.profile.Name, round, opinion, body, confidence); err != nil {
		slog.Error("Failed to append response", "agent", r.profile.Name, "discussion", id, "round", round, "error", err)
		r.finalize(id, false)
		return
	}

	r.clearRetries(id)
	r.finalize(id, true)
	slog.Info("Response appended",
		"agent", r.profile.Name,
		"discussion", id,
		"round", round,
		"opinion", opinion,
		"confidence", confidence,
	)
}

func (r *Runtime) invoke(id, prompt, workingDir string) invoker.Result {
	ctx := logger.WithDiscussionID(context.Background(), id)
	return invoker.Invoke(ctx, prompt, invoker.Options{
		Binary:     r.profile.Binary,
		Args:       r.profile.Args,
		WorkingDir: workingDir,
		Env:        invoker.ScrubEnv(),
		Timeout:    r.profile.Timeout,
		KillGrace:  r.cfg.KillGrace,
	})
}

// scheduleRetry runs the timeout backoff chain for a discussion.
// Attempt k waits min(base * 2^(k-1), cap). The attempted round is
// cleared so the turn decision can re-offer it after the wait.
func (r *Runtime) scheduleRetry(id string, round int) {
	r.mu.Lock()
	rs := r.retries[id]
	if rs == nil {
		rs = &retryState{max: r.cfg.MaxRetries}
		r.retries[id] = rs
	}
	rs.attempt++
	attempt := rs.attempt
	max := rs.max
	if attempt > max {
		delete(r.retries, id)
		r.mu.Unlock()
		if _, err := r.store.AppendError(id, r.profile.Name, round, fmt.Sprintf("timed out after %d attempts", max)); err != nil {
			slog.Warn("Failed to append retry exhaustion error", "agent", r.profile.Name, "discussion", id, "error", err)
		}
		return
	}

	delete(r.attemptedRounds[id], round)
	r.mu.Unlock()

	wait := r.cfg.RetryBackoffBase << (attempt - 1)
	if wait > r.cfg.RetryBackoffCap {
		wait = r.cfg.RetryBackoffCap
	}

	if _, err := r.store.AppendStatus(id, r.profile.Name, round, message.StatusRetrying, fmt.Sprintf("%d/%d", attempt, max)); err != nil {
		slog.Warn("Failed to append retrying status", "agent", r.profile.Name, "discussion", id, "error", err)
	}

	slog.Info("Retry scheduled",
		"agent", r.profile.Name,
		"discussion", id,
		"round", round,
		"attempt", attempt,
		"wait", wait,
	)

	concurrency.SafeGo(func() {
		select {
		case <-r.quit:
			return
		case <-time.After(wait):
		}

		msgs, err := r.store.ReadAll(id)
		if err != nil || len(msgs) == 0 {
			return
		}
		r.offer(id, msgs)
	}, nil)
}

func (r *Runtime) clearRetries(id string) {
	r.mu.Lock()
	delete(r.retries, id)
	r.mu.Unlock()
}

func otherNames(participants []string, self string) []string {
	var others []string
	for _, p := range participants {
		if p != self {
			others = append(others, p)
		}
	}
	return others
}

func counterpart(participants []string, self string) string {
	others := otherNames(participants, self)
	if len(others) == 0 {
		return self
	}
	return strings.Join(others, ", ")
}
