package runtime

import (
	"github.com/kohaku-io/agora/internal/discussion"
	"github.com/kohaku-io/agora/internal/message"
)

// Candidate names the round this agent should respond in and the
// record that triggered it.
type Candidate struct {
	Round   int
	Trigger message.Message
}

// Decide determines whether the agent should speak, and in which
// round. It is a pure function of the message sequence so the turn
// rules can be tested without a runtime.
//
// Round caps are honored uniformly: the agent participates in rounds
// up to maxRounds and never opens a round beyond it, regardless of
// whether the trigger is a follow-up or round advancement.
func Decide(msgs []message.Message, self string, maxRounds int) *Candidate {
	effective := discussion.Effective(msgs)
	if len(effective) == 0 || effective[0].Type != message.TypeStart {
		return nil
	}

	start := effective[0]
	if !contains(start.Participants, self) {
		return nil
	}

	last := effective[len(effective)-1]
	if last.Type == message.TypeEnd {
		return nil
	}

	// responses grouped by round
	byRound := make(map[int]map[string]bool)
	highest := 0
	var lastResponseInHighest message.Message
	for _, m := range effective {
		if m.Type != message.TypeResponse {
			continue
		}
		if byRound[m.Round] == nil {
			byRound[m.Round] = make(map[string]bool)
		}
		byRound[m.Round][m.From] = true
		if m.Round >= highest {
			highest = m.Round
			lastResponseInHighest = m
		}
	}

	// latest follow-up takes precedence over round advancement
	for i := len(effective) - 1; i >= 0; i-- {
		m := effective[i]
		if m.Type != message.TypeFollowup {
			continue
		}
		if m.Target != "" && m.Target != self {
			// targeted at someone else: stay silent entirely
			return nil
		}
		followupRound := m.Round
		if followupRound == 0 {
			followupRound = highest + 1
		}
		if !byRound[followupRound][self] && followupRound <= maxRounds {
			return &Candidate{Round: followupRound, Trigger: m}
		}
		break
	}

	// opening round
	if highest == 0 {
		return &Candidate{Round: 1, Trigger: start}
	}

	participants := start.Participants

	if !byRound[highest][self] {
		// join the current round once the others have spoken
		others := 0
		for _, p := range participants {
			if p != self && byRound[highest][p] {
				others++
			}
		}
		if others >= len(participants)-1 && highest <= maxRounds {
			return &Candidate{Round: highest, Trigger: lastResponseInHighest}
		}
		return nil
	}

	// we already responded in the highest round; advance only when
	// the round is complete and the next one is within the cap
	complete := true
	for _, p := range participants {
		if !byRound[highest][p] {
			complete = false
			break
		}
	}
	if complete && highest+1 <= maxRounds {
		return &Candidate{Round: highest + 1, Trigger: lastResponseInHighest}
	}

	return nil
}
