package message

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultConfidence is assumed when the body carries no explicit
// confidence marker.
const DefaultConfidence = 0.7

// Ordered bilingual patterns; the first match wins. Negative stances
// come before positive ones so that "不同意" and "disagree" are not
// swallowed by the agree patterns.
var opinionPatterns = []struct {
	re      *regexp.Regexp
	opinion Opinion
}{
	{regexp.MustCompile(`(?i)\bdisagree\b|不同意|不赞成|反对`), OpinionDisagree},
	{regexp.MustCompile(`(?i)\balternative(ly)?\b|\banother approach\b|替代方案|另一种方案|另一个方案`), OpinionAlternative},
	{regexp.MustCompile(`(?i)\bagree[sd]?\b|同意|赞成|赞同`), OpinionAgree},
	{regexp.MustCompile(`(?i)\bneutral\b|中立|保留意见`), OpinionNeutral},
}

var confidenceRe = regexp.MustCompile(`(?i)confidence[:：]\s*([0-9]+(?:\.[0-9]+)?)`)

// ParseOpinion extracts the stance and confidence from a response
// body. Default stance is neutral; confidence values above 1 are
// treated as percentages and the result is clamped to [0,1].
func ParseOpinion(body string) (Opinion, float64) {
	opinion := OpinionNeutral
	for _, p := range opinionPatterns {
		if p.re.MatchString(body) {
			opinion = p.opinion
			break
		}
	}

	confidence := DefaultConfidence
	if m := confidenceRe.FindStringSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			if v > 1 {
				v = v / 100
			}
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			confidence = v
		}
	}

	return opinion, confidence
}

var closureMarkers = []string{
	"讨论可以结束",
	"discussion can be concluded",
}

// EnsureClosure appends the consensus closing sentence to an agree
// response unless one is already present in either language. This
// speeds termination; it is a product behavior, not part of the log
// contract.
func EnsureClosure(body string, opinion Opinion, counterpart string) string {
	if opinion != OpinionAgree {
		return body
	}

	lowered := strings.ToLower(body)
	for _, marker := range closureMarkers {
		if strings.Contains(lowered, marker) {
			return body
		}
	}

	closure := fmt.Sprintf("我与%s的观点一致，本次讨论可以结束。(I am aligned with %s; this discussion can be concluded.)", counterpart, counterpart)
	return strings.TrimRight(body, "\n") + "\n\n" + closure
}
