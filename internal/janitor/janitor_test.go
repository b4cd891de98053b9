package janitor_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kohaku-io/agora/internal/discussion"
	"github.com/kohaku-io/agora/internal/janitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_RemovesStaleLocks(t *testing.T) {
	dir := t.TempDir()
	store, err := discussion.NewStore(dir)
	require.NoError(t, err)

	id, _, err := store.Create("topic", []string{"claude", "codex"}, nil)
	require.NoError(t, err)

	staleLock := discussion.LockPath(dir, id)
	require.NoError(t, os.WriteFile(staleLock, []byte("999:0"), 0644))
	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(staleLock, old, old))

	freshLock := filepath.Join(dir, "other.jsonl.lock")
	require.NoError(t, os.WriteFile(freshLock, []byte("1:1"), 0644))

	j := janitor.New(store, janitor.Config{
		Schedule:     "@every 1m",
		LockStaleTTL: 30 * time.Second,
	})
	j.Sweep()

	_, err = os.Stat(staleLock)
	assert.True(t, os.IsNotExist(err), "stale lock should be removed")
	_, err = os.Stat(freshLock)
	assert.NoError(t, err, "fresh lock should survive")
}

func TestSweep_ArchivesOldEndedDiscussions(t *testing.T) {
	dir := t.TempDir()
	store, err := discussion.NewStore(dir)
	require.NoError(t, err)

	ended, _, err := store.Create("done topic", []string{"claude", "codex"}, nil)
	require.NoError(t, err)
	_, err = store.AppendEnd(ended, "decided", true)
	require.NoError(t, err)
	active, _, err := store.Create("live topic", []string{"claude", "codex"}, nil)
	require.NoError(t, err)

	j := janitor.New(store, janitor.Config{
		Schedule:     "@every 1m",
		LockStaleTTL: 30 * time.Second,
		ArchiveAfter: time.Nanosecond,
	})
	time.Sleep(10 * time.Millisecond)
	j.Sweep()

	_, err = os.Stat(discussion.LogPath(dir, ended))
	assert.True(t, os.IsNotExist(err), "ended log should have moved")
	_, err = os.Stat(filepath.Join(discussion.ArchiveDir(dir), ended+".jsonl"))
	assert.NoError(t, err, "ended log should be in archive")

	_, err = os.Stat(discussion.LogPath(dir, active))
	assert.NoError(t, err, "active log stays put")
}

func TestSweep_ArchivalDisabledByDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := discussion.NewStore(dir)
	require.NoError(t, err)

	ended, _, err := store.Create("topic", []string{"claude", "codex"}, nil)
	require.NoError(t, err)
	_, err = store.AppendEnd(ended, "decided", false)
	require.NoError(t, err)

	j := janitor.New(store, janitor.Config{
		Schedule:     "@every 1m",
		LockStaleTTL: 30 * time.Second,
	})
	j.Sweep()

	_, err = os.Stat(discussion.LogPath(dir, ended))
	assert.NoError(t, err)
}

func TestLifecycle(t *testing.T) {
	store, err := discussion.NewStore(t.TempDir())
	require.NoError(t, err)

	j := janitor.New(store, janitor.Config{Schedule: "@every 1m", LockStaleTTL: time.Minute})
	require.NoError(t, j.Init(t.Context()))
	require.NoError(t, j.Start(t.Context()))
	assert.NoError(t, j.Health(t.Context()))
	require.NoError(t, j.Stop(t.Context()))
}

func TestInit_BadSchedule(t *testing.T) {
	store, err := discussion.NewStore(t.TempDir())
	require.NoError(t, err)

	j := janitor.New(store, janitor.Config{Schedule: "not a schedule", LockStaleTTL: time.Minute})
	assert.Error(t, j.Init(t.Context()))
}
