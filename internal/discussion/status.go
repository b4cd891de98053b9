package discussion

import (
	"fmt"

	"github.com/kohaku-io/agora/internal/errs"
	"github.com/kohaku-io/agora/internal/message"
)

// Status is the derived summary of a discussion.
type Status struct {
	ID           string            `json:"id" yaml:"id"`
	Topic        string            `json:"topic" yaml:"topic"`
	Participants []string          `json:"participants" yaml:"participants"`
	Context      map[string]string `json:"context,omitempty" yaml:"context,omitempty"`
	StartedAt    string            `json:"started_at" yaml:"started_at"`
	EndedAt      string            `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	CurrentRound int               `json:"current_round" yaml:"current_round"`
	Active       bool              `json:"active" yaml:"active"`
	Decision     string            `json:"decision,omitempty" yaml:"decision,omitempty"`
	Consensus    bool              `json:"consensus,omitempty" yaml:"consensus,omitempty"`
	Messages     int               `json:"messages" yaml:"messages"`
}

// DeriveStatus computes a Status from an in-memory message sequence.
func DeriveStatus(id string, msgs []message.Message) (*Status, error) {
	effective := Effective(msgs)
	if len(effective) == 0 || effective[0].Type != message.TypeStart {
		return nil, errs.NotFound(fmt.Sprintf("discussion %s has no start record", id))
	}

	start := effective[0]
	st := &Status{
		ID:           id,
		Topic:        start.Topic,
		Participants: start.Participants,
		Context:      start.Context,
		StartedAt:    start.TS,
		CurrentRound: HighestResponseRound(effective),
		Active:       true,
		Messages:     len(effective),
	}

	last := effective[len(effective)-1]
	if last.Type == message.TypeEnd {
		st.Active = false
		st.EndedAt = last.TS
		st.Decision = last.Decision
		st.Consensus = last.Consensus
	}

	return st, nil
}

// Status reads a discussion and derives its summary.
func (s *Store) Status(id string) (*Status, error) {
	msgs, err := s.ReadAll(id)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, errs.NotFound(fmt.Sprintf("discussion %s does not exist", id))
	}
	return DeriveStatus(id, msgs)
}

// ListStatuses derives summaries for every discussion in the base
// directory, skipping unreadable logs.
func (s *Store) ListStatuses() ([]*Status, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}

	statuses := make([]*Status, 0, len(ids))
	for _, id := range ids {
		st, err := s.Status(id)
		if err != nil {
			continue
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// Thin constructors delegating to Append.

// AppendFollowup appends a user follow-up; target may be empty for a
// broadcast. The round is stamped at append time when unset.
func (s *Store) AppendFollowup(id, content, target string) (message.Message, error) {
	return s.Append(id, message.Message{
		From:    message.UserSender,
		Type:    message.TypeFollowup,
		Content: content,
		Target:  target,
	})
}

// AppendEnd appends the terminal end record.
func (s *Store) AppendEnd(id, decision string, consensus bool) (message.Message, error) {
	return s.Append(id, message.Message{
		From:      message.UserSender,
		Type:      message.TypeEnd,
		Decision:  decision,
		Consensus: consensus,
	})
}

// AppendResponse appends an agent response for a round.
func (s *Store) AppendResponse(id, from string, round int, opinion message.Opinion, content string, confidence float64) (message.Message, error) {
	return s.Append(id, message.Message{
		From:       from,
		Type:       message.TypeResponse,
		Round:      round,
		Opinion:    opinion,
		Content:    content,
		Confidence: confidence,
	})
}

// AppendError appends an error record emitted during a round.
func (s *Store) AppendError(id, from string, round int, errText string) (message.Message, error) {
	return s.Append(id, message.Message{
		From:  from,
		Type:  message.TypeError,
		Round: round,
		Error: errText,
	})
}

// AppendStatus appends a thinking/retrying status record.
func (s *Store) AppendStatus(id, from string, round int, status, content string) (message.Message, error) {
	return s.Append(id, message.Message{
		From:    from,
		Type:    message.TypeStatus,
		Round:   round,
		Status:  status,
		Content: content,
	})
}
