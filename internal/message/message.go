package message

// Type discriminates records in a discussion log.
type Type string

const (
	TypeStart    Type = "start"
	TypeResponse Type = "response"
	TypeFollowup Type = "followup"
	TypeEnd      Type = "end"
	TypeError    Type = "error"
	TypeStatus   Type = "status"
)

// Opinion is the stance extracted from an agent response body.
type Opinion string

const (
	OpinionAgree       Opinion = "agree"
	OpinionDisagree    Opinion = "disagree"
	OpinionNeutral     Opinion = "neutral"
	OpinionAlternative Opinion = "alternative"
)

// Status values carried by status records.
const (
	StatusThinking = "thinking"
	StatusRetrying = "retrying"
)

// UserSender is the reserved sender identity for the human user.
const UserSender = "user"

// ContextWorkingDir is the recognized context option naming the
// working directory agents should invoke their CLI from.
const ContextWorkingDir = "workingDir"

// Message is one record in a discussion log. Fields beyond seq, ts,
// from and type are type-specific and omitted when empty.
type Message struct {
	Seq          int               `json:"seq"`
	TS           string            `json:"ts"`
	From         string            `json:"from"`
	Type         Type              `json:"type"`
	Round        int               `json:"round,omitempty"`
	Topic        string            `json:"topic,omitempty"`
	Participants []string          `json:"participants,omitempty"`
	Context      map[string]string `json:"context,omitempty"`
	Opinion      Opinion           `json:"opinion,omitempty"`
	Content      string            `json:"content,omitempty"`
	Confidence   float64           `json:"confidence,omitempty"`
	Target       string            `json:"target,omitempty"`
	Decision     string            `json:"decision,omitempty"`
	Consensus    bool              `json:"consensus,omitempty"`
	Error        string            `json:"error,omitempty"`
	Status       string            `json:"status,omitempty"`
}

// IsDecisionType reports whether decision logic should consider this
// record. Unknown types are preserved in memory but never drive the
// turn scheduler.
func (m Message) IsDecisionType() bool {
	switch m.Type {
	case TypeStart, TypeResponse, TypeFollowup, TypeEnd, TypeError, TypeStatus:
		return true
	}
	return false
}

// WorkingDir returns the workingDir context option, if present.
func (m Message) WorkingDir() string {
	if m.Context == nil {
		return ""
	}
	return m.Context[ContextWorkingDir]
}
