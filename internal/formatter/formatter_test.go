package formatter_test

import (
	"encoding/json"
	"testing"

	"github.com/kohaku-io/agora/internal/discussion"
	"github.com/kohaku-io/agora/internal/formatter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() []*discussion.Status {
	return []*discussion.Status{
		{
			ID:           "01jx5y3k9m0000000000000000",
			Topic:        "shard the index?",
			Participants: []string{"claude", "codex"},
			StartedAt:    "2026-08-26T10:00:00Z",
			CurrentRound: 2,
			Active:       true,
			Messages:     5,
		},
		{
			ID:           "01jx5y3k9m0000000000000001",
			Topic:        "retire the cron path",
			Participants: []string{"claude", "codex"},
			StartedAt:    "2026-08-25T09:00:00Z",
			EndedAt:      "2026-08-25T09:30:00Z",
			CurrentRound: 3,
			Active:       false,
			Decision:     "keep it",
			Consensus:    true,
			Messages:     9,
		},
	}
}

func TestFormatterFactory_Create(t *testing.T) {
	factory := formatter.NewFormatterFactory()

	for _, format := range []formatter.OutputFormat{
		formatter.OutputFormatTable,
		formatter.OutputFormatJSON,
		formatter.OutputFormatYAML,
	} {
		f, err := factory.Create(format)
		require.NoError(t, err)
		require.NotNil(t, f)
	}

	_, err := factory.Create(formatter.OutputFormat("csv"))
	assert.Error(t, err)
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    formatter.OutputFormat
		wantErr bool
	}{
		{input: "table", want: formatter.OutputFormatTable},
		{input: "JSON", want: formatter.OutputFormatJSON},
		{input: "Yaml", want: formatter.OutputFormatYAML},
		{input: "xml", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := formatter.ParseOutputFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONFormatter_RoundTrips(t *testing.T) {
	f := formatter.NewJSONFormatter()

	out, err := f.FormatStatuses(fixture())
	require.NoError(t, err)

	var decoded []*discussion.Status
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, fixture(), decoded)

	single, err := f.FormatStatus(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", single)
}

func TestYAMLFormatter(t *testing.T) {
	f := formatter.NewYAMLFormatter()

	out, err := f.FormatStatuses(fixture())
	require.NoError(t, err)
	assert.Contains(t, out, "topic: shard the index?")
	assert.Contains(t, out, "consensus: true")
}

func TestTableFormatter(t *testing.T) {
	f := formatter.NewTableFormatter()

	out, err := f.FormatStatuses(fixture())
	require.NoError(t, err)
	assert.Contains(t, out, "shard the index?")
	assert.Contains(t, out, "ended")

	out, err = f.FormatStatuses(nil)
	require.NoError(t, err)
	assert.Equal(t, "No discussions found", out)

	out, err = f.FormatStatus(fixture()[1])
	require.NoError(t, err)
	assert.Contains(t, out, "keep it")
	assert.Contains(t, out, "true")
}
