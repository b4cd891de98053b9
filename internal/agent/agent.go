package agent

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kohaku-io/agora/internal/errs"

	"github.com/google/shlex"
)

// Profile describes one concrete CLI-backed agent. The only contract
// with the underlying CLI is: given a prompt and a working directory,
// return text or fail.
type Profile struct {
	// Name is the identity this agent speaks as; responses must open
	// with AGENT:<Name>.
	Name string

	// Binary is the resolved executable path.
	Binary string

	// Args precede the prompt on the child's argv.
	Args []string

	// DefaultWorkDir is used when a discussion carries no workingDir
	// context option.
	DefaultWorkDir string

	// Timeout bounds one child invocation.
	Timeout time.Duration
}

type builtin struct {
	name       string
	binaryName string
	binaryEnv  string
	argsEnv    string
	args       []string
}

var builtins = map[string]builtin{
	"claude": {
		name:       "claude",
		binaryName: "claude",
		binaryEnv:  "CLAUDE_BIN",
		argsEnv:    "AGORA_CLAUDE_ARGS",
		args:       []string{"-p"},
	},
	"codex": {
		name:       "codex",
		binaryName: "codex",
		binaryEnv:  "CODEX_BIN",
		argsEnv:    "AGORA_CODEX_ARGS",
		args:       []string{"exec"},
	},
}

// Names lists the known builtin agent names.
func Names() []string {
	return []string{"claude", "codex"}
}

// Resolve builds the profile for a builtin agent name. The binary
// must be present: a missing CLI is an unrecoverable initialization
// failure, not something to limp along without.
func Resolve(name string, timeout time.Duration) (*Profile, error) {
	b, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errs.InvalidInput(fmt.Sprintf("unknown agent %q (known: %s)", name, strings.Join(Names(), ", ")))
	}

	binary := b.binaryName
	if override := strings.TrimSpace(os.Getenv(b.binaryEnv)); override != "" {
		binary = override
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, errs.NotFound(fmt.Sprintf("agent binary %q not found in PATH (set %s to override)", binary, b.binaryEnv))
	}

	args := append([]string{}, b.args...)
	if raw := strings.TrimSpace(os.Getenv(b.argsEnv)); raw != "" {
		parsed, err := shlex.Split(raw)
		if err != nil {
			return nil, errs.InvalidInput(fmt.Sprintf("parse %s: %v", b.argsEnv, err))
		}
		args = parsed
	}

	workDir, err := os.Getwd()
	if err != nil {
		workDir = os.TempDir()
	}

	return &Profile{
		Name:           b.name,
		Binary:         path,
		Args:           args,
		DefaultWorkDir: workDir,
		Timeout:        timeout,
	}, nil
}
