package message

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Encode serializes a message to a single JSON line without the
// trailing newline.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeLine parses one JSONL line into a message. Blank lines and
// malformed JSON return ok=false; they never surface as messages.
func DecodeLine(line []byte) (Message, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Message{}, false
	}

	var m Message
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return Message{}, false
	}
	if m.Seq <= 0 || m.From == "" || m.Type == "" {
		return Message{}, false
	}
	return m, true
}

// ParseLines parses a whole log body. Malformed lines (including a
// torn trailing write) are dropped silently.
func ParseLines(data []byte) []Message {
	if len(data) == 0 {
		return nil
	}

	var out []Message
	for _, line := range strings.Split(string(data), "\n") {
		if m, ok := DecodeLine([]byte(line)); ok {
			out = append(out, m)
		}
	}
	return out
}
