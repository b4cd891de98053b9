package message

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kohaku-io/agora/internal/errs"
)

var headerRe = regexp.MustCompile(`(?i)^AGENT\s*:\s*(.+)$`)

// ValidateIdentity checks that raw agent output claims the expected
// identity and extracts the body. The first non-empty line must be an
// AGENT:<name> header matching self (case-insensitive); the body must
// be non-empty and must not claim to be any of the other known
// participants.
func ValidateIdentity(raw string, self string, others []string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errs.InvalidInput("empty output")
	}

	lines := strings.Split(trimmed, "\n")
	headerIdx := -1
	var claimed string
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := headerRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			return "", errs.InvalidInput("missing AGENT header")
		}
		headerIdx = i
		claimed = strings.TrimSpace(m[1])
		break
	}
	if headerIdx < 0 {
		return "", errs.InvalidInput("missing AGENT header")
	}

	if !strings.EqualFold(claimed, self) {
		return "", errs.InvalidInput(fmt.Sprintf("agent mismatch: claimed %q, expected %q", claimed, self))
	}

	body := strings.TrimSpace(strings.Join(lines[headerIdx+1:], "\n"))
	if body == "" {
		return "", errs.InvalidInput("empty body")
	}

	if err := checkIdentityClaims(body, self, others); err != nil {
		return "", err
	}

	return body, nil
}

// checkIdentityClaims rejects bodies that contrast the agent with
// itself or that claim to be another known participant. The patterns
// are tuned constants ported from field incidents, not a semantic
// contract.
func checkIdentityClaims(body string, self string, others []string) error {
	selfQ := regexp.QuoteMeta(self)

	contradiction := regexp.MustCompile(`(?i)(与\s*` + selfQ + `\s*不同|different\s+from\s+` + selfQ + `)`)
	if contradiction.MatchString(body) {
		return errs.InvalidInput("identity conflict: output contrasts the agent with itself")
	}

	for _, other := range others {
		if strings.EqualFold(other, self) {
			continue
		}
		foreign := regexp.MustCompile(`(?i)(我是|i\s+am)\s*` + regexp.QuoteMeta(other) + `\b`)
		if foreign.MatchString(body) {
			return errs.InvalidInput(fmt.Sprintf("identity conflict: output claims to be %q", other))
		}
	}

	return nil
}
