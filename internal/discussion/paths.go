package discussion

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kohaku-io/agora/internal/pathutil"

	"github.com/oklog/ulid/v2"
)

// NewID generates a collision-resistant discussion id.
func NewID() string {
	return strings.ToLower(ulid.Make().String())
}

// ResolveBaseDir resolves the configured discussion base directory.
// If empty, it falls back to ./discussions under the current working
// directory.
func ResolveBaseDir(baseDir string) (string, error) {
	if trimmed := strings.TrimSpace(baseDir); trimmed != "" {
		return pathutil.Expand(trimmed)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, "discussions"), nil
}

// LogPath returns the JSONL log path for a discussion.
func LogPath(baseDir, id string) string {
	return filepath.Join(baseDir, id+".jsonl")
}

// LockPath returns the lock file path for a discussion.
func LockPath(baseDir, id string) string {
	return filepath.Join(baseDir, id+".jsonl.lock")
}

// ResultPath returns the markdown result file path for a discussion.
func ResultPath(baseDir, id string) string {
	return filepath.Join(baseDir, id+"-result.md")
}

// AgentLockDir returns the directory holding per-agent daemon
// instance locks.
func AgentLockDir(baseDir string) string {
	return filepath.Join(baseDir, "agents")
}

// ArchiveDir returns the directory ended discussions are archived to.
func ArchiveDir(baseDir string) string {
	return filepath.Join(baseDir, "archive")
}
