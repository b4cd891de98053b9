package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kohaku-io/agora/internal/config"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "2s", cfg.Runtime.PollInterval)
	assert.Equal(t, 50, cfg.Runtime.MaxWatchedDiscussions)
	assert.Equal(t, 5, cfg.Runtime.MaxConcurrent)
	assert.Equal(t, 20, cfg.Runtime.MaxQueueSize)
	assert.Equal(t, 5, cfg.Runtime.MaxRounds)
	assert.Equal(t, 3, cfg.Runtime.MaxRetries)
	assert.Equal(t, "180s", cfg.Invoker.Timeout)
	assert.True(t, cfg.Janitor.Enabled)
	assert.NotEmpty(t, cfg.Discussions.BaseDir)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AGORA_INVOKER_TIMEOUT", "90s")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "90s", cfg.Invoker.Timeout)
}

func TestLoad_BaseDirEnvWinsOverEverything(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Setenv(config.BaseDirEnv, dir)

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Discussions.BaseDir)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  log_level: warn\nruntime:\n  max_rounds: 7\n"), 0644))

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "")
	require.NoError(t, cmd.Flags().Set("config", path))

	cfg, err := config.Load(cmd)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Server.LogLevel)
	assert.Equal(t, 7, cfg.Runtime.MaxRounds)
	// untouched keys keep defaults
	assert.Equal(t, 5, cfg.Runtime.MaxConcurrent)
}

func TestLoad_HomeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.BaseDirEnv, "~/agora-discussions")

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "agora-discussions"), cfg.Discussions.BaseDir)
}

func TestDurationOrDefault(t *testing.T) {
	d, err := config.DurationOrDefault("5s", "1s")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	d, err = config.DurationOrDefault("", "1s")
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	_, err = config.DurationOrDefault("not-a-duration", "1s")
	assert.Error(t, err)

	_, err = config.DurationOrDefault("", "")
	assert.Error(t, err)
}
