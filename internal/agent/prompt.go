package agent

import (
	"fmt"
	"strings"

	"github.com/kohaku-io/agora/internal/message"
)

// BuildPrompt renders the discussion context into the prompt handed
// to the external CLI. The instructions pin the identity header and
// forbid role-playing other participants; both guard against the
// identity confusion the validator rejects after the fact.
func (p *Profile) BuildPrompt(topic string, participants []string, workingDir string, history []message.Message, round int) string {
	var sb strings.Builder

	sb.WriteString("You are participating in a technical discussion between AI assistants.\n\n")
	fmt.Fprintf(&sb, "Topic: %s\n", topic)
	fmt.Fprintf(&sb, "Participants: %s\n", strings.Join(participants, ", "))
	fmt.Fprintf(&sb, "You are: %s\n", p.Name)
	if workingDir != "" {
		fmt.Fprintf(&sb, "Working directory: %s\n", workingDir)
	}
	sb.WriteString("\nDiscussion so far:\n")
	sb.WriteString(RenderHistory(history))

	sb.WriteString("\nInstructions:\n")
	fmt.Fprintf(&sb, "- The FIRST non-empty line of your output must be exactly: AGENT:%s\n", p.Name)
	sb.WriteString("- Speak only as yourself. Never role-play, quote as, or answer for the other participants.\n")
	sb.WriteString("- State your opinion (agree / disagree / neutral / alternative) and optionally a line `confidence: <0..1>`.\n")
	if round > 1 {
		fmt.Fprintf(&sb, "- This is round %d: respond to the latest points, do not repeat earlier rounds.\n", round)
	}

	return sb.String()
}

// RenderHistory renders the message sequence in a stable textual
// form suitable for prompts and transcripts.
func RenderHistory(history []message.Message) string {
	var sb strings.Builder
	for _, m := range history {
		switch m.Type {
		case message.TypeStart:
			fmt.Fprintf(&sb, "[%d] %s started the discussion: %s\n", m.Seq, m.From, m.Topic)
		case message.TypeResponse:
			fmt.Fprintf(&sb, "[%d] %s (round %d, %s, confidence %.2f):\n%s\n", m.Seq, m.From, m.Round, m.Opinion, m.Confidence, indent(m.Content))
		case message.TypeFollowup:
			target := "all participants"
			if m.Target != "" {
				target = m.Target
			}
			fmt.Fprintf(&sb, "[%d] %s asked %s (round %d): %s\n", m.Seq, m.From, target, m.Round, m.Content)
		case message.TypeEnd:
			fmt.Fprintf(&sb, "[%d] %s ended the discussion: %s\n", m.Seq, m.From, m.Decision)
		case message.TypeError:
			fmt.Fprintf(&sb, "[%d] %s reported an error in round %d: %s\n", m.Seq, m.From, m.Round, m.Error)
		case message.TypeStatus:
			// status chatter is noise in a prompt
		default:
			// unknown types are preserved in memory but not rendered
		}
	}
	return sb.String()
}

func indent(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}
