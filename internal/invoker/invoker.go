package invoker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kohaku-io/agora/internal/logger"
)

// TimeoutError is the exact error string produced when the child is
// terminated by the timeout path. The runtime routes this string to
// retry-with-backoff.
const TimeoutError = "Timeout"

const DefaultKillGrace = 3 * time.Second

// Options configures one child-process invocation.
type Options struct {
	Binary     string
	Args       []string
	WorkingDir string
	Env        []string
	Timeout    time.Duration
	KillGrace  time.Duration
}

// Result is the settled outcome of an invocation. Exactly one of the
// success and failure shapes is produced, even when the timeout path
// and the exit path race.
type Result struct {
	OK       bool
	Output   string
	Err      string
	ExitCode int
	TimedOut bool
}

// Invoke runs the external CLI with the prompt appended as the final
// argument, stdin closed and stdout/stderr captured. On timeout the
// child receives SIGTERM, then SIGKILL after the kill grace. The
// call blocks until the child settles; callers run it on their own
// goroutine. A context cancelled before spawn aborts; in-flight
// children are not killed on cancellation, they settle on their own
// timeout.
func Invoke(ctx context.Context, prompt string, opts Options) Result {
	if opts.Binary == "" {
		return Result{OK: false, Err: "no binary configured", ExitCode: -1}
	}
	if err := ctx.Err(); err != nil {
		return Result{OK: false, Err: err.Error(), ExitCode: -1}
	}

	grace := opts.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}

	args := append(append([]string{}, opts.Args...), prompt)
	cmd := exec.Command(opts.Binary, args...)
	cmd.Dir = opts.WorkingDir
	cmd.Env = opts.Env
	// nil Stdin connects the child to the null device
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{OK: false, Err: err.Error(), ExitCode: -1}
	}

	var mu sync.Mutex
	timedOut := false

	var killTimer *time.Timer
	termTimer := time.AfterFunc(opts.Timeout, func() {
		mu.Lock()
		timedOut = true
		mu.Unlock()

		slog.Warn("Child process timed out, sending SIGTERM",
			"binary", opts.Binary,
			"timeout", opts.Timeout,
		)
		cmd.Process.Signal(syscall.SIGTERM)

		mu.Lock()
		killTimer = time.AfterFunc(grace, func() {
			slog.Warn("Child process ignored SIGTERM, sending SIGKILL", "binary", opts.Binary)
			cmd.Process.Kill()
		})
		mu.Unlock()
	})

	waitErr := cmd.Wait()

	mu.Lock()
	termTimer.Stop()
	if killTimer != nil {
		killTimer.Stop()
	}
	wasTimeout := timedOut
	mu.Unlock()

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	slog.Debug("Child process settled",
		"binary", opts.Binary,
		"discussion", logger.GetDiscussionID(ctx),
		"exit_code", exitCode,
		"timed_out", wasTimeout,
		"duration", time.Since(start),
	)

	if wasTimeout {
		return Result{OK: false, Err: TimeoutError, ExitCode: exitCode, TimedOut: true}
	}

	out := strings.TrimSpace(stdout.String())
	if waitErr == nil && exitCode == 0 && out != "" {
		return Result{OK: true, Output: out, ExitCode: 0}
	}

	errText := strings.TrimSpace(stderr.String())
	if errText == "" {
		errText = fmt.Sprintf("exit %d", exitCode)
	}
	return Result{OK: false, Err: errText, ExitCode: exitCode}
}

// scrubKeep lists the only variables preserved when invoking another
// AI CLI; everything else is dropped so the child never sees markers
// of a nested session.
var scrubKeep = []string{"HOME", "PATH", "USER", "TERM"}

// ScrubEnv builds a minimal environment for nested AI CLI children.
func ScrubEnv() []string {
	var env []string
	for _, key := range scrubKeep {
		if value, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+value)
		}
	}
	return env
}
