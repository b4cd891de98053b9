package invoker_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kohaku-io/agora/internal/invoker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shOpts(script string, timeout time.Duration) invoker.Options {
	return invoker.Options{
		Binary:    "/bin/sh",
		Args:      []string{"-c", script, "sh"},
		Timeout:   timeout,
		KillGrace: 200 * time.Millisecond,
	}
}

func TestInvoke_Success(t *testing.T) {
	// the prompt arrives as $1 after the -c script
	res := invoker.Invoke(context.Background(), "hello prompt", shOpts(`echo "got: $1"`, 5*time.Second))
	require.True(t, res.OK)
	assert.Equal(t, "got: hello prompt", res.Output)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestInvoke_NonZeroExit(t *testing.T) {
	res := invoker.Invoke(context.Background(), "p", shOpts(`echo "boom" >&2; exit 3`, 5*time.Second))
	require.False(t, res.OK)
	assert.Equal(t, "boom", res.Err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestInvoke_NonZeroExitNoStderr(t *testing.T) {
	res := invoker.Invoke(context.Background(), "p", shOpts(`exit 7`, 5*time.Second))
	require.False(t, res.OK)
	assert.Equal(t, "exit 7", res.Err)
}

func TestInvoke_EmptyStdoutIsFailure(t *testing.T) {
	res := invoker.Invoke(context.Background(), "p", shOpts(`exit 0`, 5*time.Second))
	require.False(t, res.OK)
	assert.Equal(t, 0, res.ExitCode)
}

func TestInvoke_Timeout(t *testing.T) {
	started := time.Now()
	res := invoker.Invoke(context.Background(), "p", shOpts(`sleep 30`, 200*time.Millisecond))
	require.False(t, res.OK)
	assert.True(t, res.TimedOut)
	assert.Equal(t, invoker.TimeoutError, res.Err)
	assert.Less(t, time.Since(started), 10*time.Second)
}

func TestInvoke_SigkillAfterGrace(t *testing.T) {
	// the child traps SIGTERM, so only SIGKILL can end it
	started := time.Now()
	res := invoker.Invoke(context.Background(), "p", shOpts(`trap "" TERM; sleep 30`, 200*time.Millisecond))
	require.False(t, res.OK)
	assert.True(t, res.TimedOut)
	assert.Equal(t, invoker.TimeoutError, res.Err)
	assert.Less(t, time.Since(started), 10*time.Second)
}

func TestInvoke_StdinClosed(t *testing.T) {
	// cat on a closed stdin returns immediately with no output
	res := invoker.Invoke(context.Background(), "p", shOpts(`cat`, 5*time.Second))
	assert.False(t, res.OK)
	assert.False(t, res.TimedOut)
}

func TestInvoke_MissingBinary(t *testing.T) {
	res := invoker.Invoke(context.Background(), "p", invoker.Options{
		Binary:  "/nonexistent/definitely-not-here",
		Timeout: time.Second,
	})
	require.False(t, res.OK)
	assert.Equal(t, -1, res.ExitCode)
}

func TestInvoke_NoBinary(t *testing.T) {
	res := invoker.Invoke(context.Background(), "p", invoker.Options{Timeout: time.Second})
	require.False(t, res.OK)
	assert.Equal(t, "no binary configured", res.Err)
}

func TestInvoke_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := invoker.Invoke(ctx, "p", shOpts(`echo hi`, time.Second))
	assert.False(t, res.OK)
}

func TestInvoke_WorkingDir(t *testing.T) {
	dir := t.TempDir()
	opts := shOpts(`pwd`, 5*time.Second)
	opts.WorkingDir = dir
	res := invoker.Invoke(context.Background(), "p", opts)
	require.True(t, res.OK)
	assert.Contains(t, res.Output, dir)
}

func TestScrubEnv(t *testing.T) {
	t.Setenv("CLAUDECODE", "1")
	t.Setenv("PATH", os.Getenv("PATH"))

	env := invoker.ScrubEnv()
	for _, kv := range env {
		key := strings.SplitN(kv, "=", 2)[0]
		assert.Contains(t, []string{"HOME", "PATH", "USER", "TERM"}, key)
	}
}
