package message_test

import (
	"strings"
	"testing"

	"github.com/kohaku-io/agora/internal/message"

	"github.com/stretchr/testify/assert"
)

func TestParseOpinion_Stances(t *testing.T) {
	tests := []struct {
		name string
		body string
		want message.Opinion
	}{
		{name: "english agree", body: "I agree with this plan.", want: message.OpinionAgree},
		{name: "english agreed", body: "Agreed, let us do that.", want: message.OpinionAgree},
		{name: "chinese agree", body: "我同意这个方案。", want: message.OpinionAgree},
		{name: "english disagree", body: "I disagree with the premise.", want: message.OpinionDisagree},
		{name: "chinese disagree", body: "我不同意这个做法。", want: message.OpinionDisagree},
		{name: "chinese oppose", body: "我反对。", want: message.OpinionDisagree},
		{name: "alternative", body: "Alternatively, we could shard by key.", want: message.OpinionAlternative},
		{name: "chinese alternative", body: "我建议一个替代方案。", want: message.OpinionAlternative},
		{name: "explicit neutral", body: "I remain neutral on this.", want: message.OpinionNeutral},
		{name: "no stance defaults neutral", body: "Here are three considerations.", want: message.OpinionNeutral},
		{name: "disagree wins over embedded agree", body: "I disagree; we should not agree to this.", want: message.OpinionDisagree},
		{name: "chinese disagree not swallowed by agree", body: "这一点我不同意。", want: message.OpinionDisagree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opinion, _ := message.ParseOpinion(tt.body)
			assert.Equal(t, tt.want, opinion)
		})
	}
}

func TestParseOpinion_Confidence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{name: "fraction", body: "I agree. Confidence: 0.9", want: 0.9},
		{name: "percentage", body: "I agree. Confidence: 85", want: 0.85},
		{name: "full width colon", body: "同意。Confidence：0.6", want: 0.6},
		{name: "missing defaults", body: "I agree.", want: message.DefaultConfidence},
		{name: "over 100 clamps", body: "Confidence: 250", want: 1},
		{name: "exactly one stays one", body: "Confidence: 1", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, confidence := message.ParseOpinion(tt.body)
			assert.InDelta(t, tt.want, confidence, 1e-9)
		})
	}
}

func TestEnsureClosure(t *testing.T) {
	t.Run("appends for agree", func(t *testing.T) {
		out := message.EnsureClosure("I agree with the plan.", message.OpinionAgree, "codex")
		assert.Contains(t, out, "讨论可以结束")
		assert.Contains(t, out, "codex")
	})

	t.Run("no duplicate when chinese marker present", func(t *testing.T) {
		body := "我同意，本次讨论可以结束。"
		out := message.EnsureClosure(body, message.OpinionAgree, "codex")
		assert.Equal(t, body, out)
	})

	t.Run("no duplicate when english marker present", func(t *testing.T) {
		body := "I agree; this Discussion can be concluded."
		out := message.EnsureClosure(body, message.OpinionAgree, "codex")
		assert.Equal(t, body, out)
	})

	t.Run("untouched for other stances", func(t *testing.T) {
		for _, op := range []message.Opinion{message.OpinionDisagree, message.OpinionNeutral, message.OpinionAlternative} {
			body := "some body"
			assert.Equal(t, body, message.EnsureClosure(body, op, "codex"))
		}
	})

	t.Run("trailing newlines trimmed before append", func(t *testing.T) {
		out := message.EnsureClosure("I agree.\n\n\n", message.OpinionAgree, "codex")
		assert.False(t, strings.Contains(out, "\n\n\n\n"))
	})
}
