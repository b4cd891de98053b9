package result

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kohaku-io/agora/internal/discussion"
	"github.com/kohaku-io/agora/internal/message"

	"github.com/natefinch/atomic"
)

// Renderer maintains the human-readable markdown summary next to
// each discussion log. It is registered as the store's append hook
// and rewrites the file in full on every refresh; failures are
// logged, never fatal.
type Renderer struct {
	store *discussion.Store
}

func NewRenderer(store *discussion.Store) *Renderer {
	return &Renderer{store: store}
}

// Attach registers this renderer as the store's append hook.
func (r *Renderer) Attach() {
	r.store.SetAppendHook(r.Refresh)
}

// Refresh rewrites <id>-result.md from the current log contents.
func (r *Renderer) Refresh(id string) {
	msgs, err := r.store.ReadAll(id)
	if err != nil || len(msgs) == 0 {
		return
	}

	st, err := discussion.DeriveStatus(id, msgs)
	if err != nil {
		return
	}

	rendered := Render(st, msgs)
	path := discussion.ResultPath(r.store.BaseDir(), id)
	if err := atomic.WriteFile(path, bytes.NewReader([]byte(rendered))); err != nil {
		slog.Warn("Failed to write result file", "discussion", id, "error", err)
	}
}

// Render produces the markdown summary for a discussion.
func Render(st *discussion.Status, msgs []message.Message) string {
	effective := discussion.Effective(msgs)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", st.Topic)
	fmt.Fprintf(&sb, "- Discussion: `%s`\n", st.ID)
	fmt.Fprintf(&sb, "- Participants: %s\n", strings.Join(st.Participants, ", "))
	fmt.Fprintf(&sb, "- Started: %s\n", st.StartedAt)
	if st.EndedAt != "" {
		fmt.Fprintf(&sb, "- Ended: %s\n", st.EndedAt)
	}
	status := "active"
	if !st.Active {
		status = "ended"
	}
	fmt.Fprintf(&sb, "- Status: %s\n", status)
	if wd := st.Context[message.ContextWorkingDir]; wd != "" {
		fmt.Fprintf(&sb, "- Working directory: `%s`\n", wd)
	}

	byRound := make(map[int][]message.Message)
	var followups []message.Message
	var errors []message.Message
	for _, m := range effective {
		switch m.Type {
		case message.TypeResponse:
			byRound[m.Round] = append(byRound[m.Round], m)
		case message.TypeFollowup:
			followups = append(followups, m)
		case message.TypeError:
			errors = append(errors, m)
		}
	}

	rounds := make([]int, 0, len(byRound))
	for round := range byRound {
		rounds = append(rounds, round)
	}
	sort.Ints(rounds)

	for _, round := range rounds {
		fmt.Fprintf(&sb, "\n## Round %d\n", round)
		for _, f := range followups {
			if f.Round == round {
				fmt.Fprintf(&sb, "\n> **%s asks**: %s\n", f.From, f.Content)
			}
		}
		for _, m := range byRound[round] {
			fmt.Fprintf(&sb, "\n### %s — %s (confidence %.2f)\n\n%s\n", m.From, m.Opinion, m.Confidence, m.Content)
		}
	}

	if len(errors) > 0 {
		sb.WriteString("\n## Errors\n")
		for _, m := range errors {
			fmt.Fprintf(&sb, "\n- round %d, %s: %s\n", m.Round, m.From, m.Error)
		}
	}

	if !st.Active {
		sb.WriteString("\n## Outcome\n\n")
		fmt.Fprintf(&sb, "**Decision**: %s\n\n", st.Decision)
		if st.Consensus {
			sb.WriteString("Consensus was reached.\n")
		} else {
			sb.WriteString("Ended without consensus.\n")
		}
	}

	return sb.String()
}
