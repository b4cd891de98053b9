package runtime

import (
	"fmt"
	"testing"
	"time"

	"github.com/kohaku-io/agora/internal/agent"
	"github.com/kohaku-io/agora/internal/discussion"
	"github.com/kohaku-io/agora/internal/message"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptedRuntime(t *testing.T, script string) (*Runtime, *discussion.Store) {
	t.Helper()
	store, err := discussion.NewStore(t.TempDir())
	require.NoError(t, err)

	profile := &agent.Profile{
		Name:    "claude",
		Binary:  "/bin/sh",
		Args:    []string{"-c", script, "sh"},
		Timeout: 5 * time.Second,
	}

	r := New(profile, store, testConfig())
	r.running = true
	return r, store
}

func waitForType(t *testing.T, store *discussion.Store, id string, typ message.Type) message.Message {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		msgs, err := store.ReadAll(id)
		require.NoError(t, err)
		for _, m := range msgs {
			if m.Type == typ {
				return m
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("no %s record appeared for %s", typ, id)
	return message.Message{}
}

func TestOffer_AppendsResponse(t *testing.T) {
	r, store := scriptedRuntime(t, `printf 'AGENT:claude\nI agree with this. Confidence: 0.9\n'`)

	id, _, err := store.Create("shard the index?", []string{"claude", "codex"}, nil)
	require.NoError(t, err)

	msgs, err := store.ReadAll(id)
	require.NoError(t, err)
	r.offer(id, msgs)

	resp := waitForType(t, store, id, message.TypeResponse)
	assert.Equal(t, "claude", resp.From)
	assert.Equal(t, 1, resp.Round)
	assert.Equal(t, message.OpinionAgree, resp.Opinion)
	assert.InDelta(t, 0.9, resp.Confidence, 1e-9)
	assert.Contains(t, resp.Content, "讨论可以结束")
	assert.NotContains(t, resp.Content, "AGENT:")

	// a thinking status preceded the response
	status := waitForType(t, store, id, message.TypeStatus)
	assert.Equal(t, message.StatusThinking, status.Status)
	assert.Less(t, status.Seq, resp.Seq)

	snap := r.Snapshot()
	assert.Equal(t, 0, snap.Responding)
	assert.Equal(t, 0, snap.ActiveCount)
}

func TestTwoAgents_FullDiscussion(t *testing.T) {
	store, err := discussion.NewStore(t.TempDir())
	require.NoError(t, err)

	newAgent := func(name string) *Runtime {
		profile := &agent.Profile{
			Name:    name,
			Binary:  "/bin/sh",
			Args:    []string{"-c", `printf 'AGENT:%s\nI agree with this direction. Confidence: 0.8\n' "$0"`, name},
			Timeout: 5 * time.Second,
		}
		r := New(profile, store, testConfig())
		r.running = true
		return r
	}
	claude := newAgent("claude")
	codex := newAgent("codex")

	id, _, err := store.Create("Use REST or GraphQL?", []string{"claude", "codex"}, nil)
	require.NoError(t, err)

	drive := func(r *Runtime) {
		t.Helper()
		msgs, err := store.ReadAll(id)
		require.NoError(t, err)
		r.offer(id, msgs)
	}
	waitRound := func(round, want int) {
		t.Helper()
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			msgs, err := store.ReadAll(id)
			require.NoError(t, err)
			got := 0
			for _, m := range msgs {
				if m.Type == message.TypeResponse && m.Round == round {
					got++
				}
			}
			if got >= want {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Fatalf("round %d never reached %d responses", round, want)
	}

	drive(claude)
	waitRound(1, 1)
	drive(codex)
	waitRound(1, 2)

	followup, err := store.AppendFollowup(id, "What about caching?", "")
	require.NoError(t, err)
	assert.Equal(t, 2, followup.Round)

	drive(claude)
	waitRound(2, 1)
	drive(codex)
	waitRound(2, 2)

	_, err = store.AppendEnd(id, "REST + caching layer", true)
	require.NoError(t, err)

	st, err := store.Status(id)
	require.NoError(t, err)
	assert.False(t, st.Active)
	assert.Equal(t, "REST + caching layer", st.Decision)
	assert.True(t, st.Consensus)

	msgs, err := store.ReadAll(id)
	require.NoError(t, err)
	responses := make(map[string]int)
	for _, m := range msgs {
		if m.Type == message.TypeResponse {
			responses[fmt.Sprintf("%s/%d", m.From, m.Round)]++
		}
	}
	require.Len(t, responses, 4)
	for key, n := range responses {
		assert.Equal(t, 1, n, key)
	}
}

func TestOffer_IdentityFailureAppendsError(t *testing.T) {
	// the script never emits an AGENT header, so both the first try
	// and the single retry fail validation
	r, store := scriptedRuntime(t, `printf 'just some text\n'`)

	id, _, err := store.Create("topic", []string{"claude", "codex"}, nil)
	require.NoError(t, err)

	msgs, err := store.ReadAll(id)
	require.NoError(t, err)
	r.offer(id, msgs)

	errRec := waitForType(t, store, id, message.TypeError)
	assert.Equal(t, "claude", errRec.From)
	assert.Contains(t, errRec.Error, "AGENT header")

	msgs, err = store.ReadAll(id)
	require.NoError(t, err)
	var retrying bool
	for _, m := range msgs {
		if m.Type == message.TypeStatus && m.Status == message.StatusRetrying {
			retrying = true
		}
	}
	assert.True(t, retrying, "expected a retrying status before the error record")
}

func TestOffer_ChildFailureAppendsError(t *testing.T) {
	r, store := scriptedRuntime(t, `echo "model exploded" >&2; exit 2`)

	id, _, err := store.Create("topic", []string{"claude", "codex"}, nil)
	require.NoError(t, err)

	msgs, err := store.ReadAll(id)
	require.NoError(t, err)
	r.offer(id, msgs)

	errRec := waitForType(t, store, id, message.TypeError)
	assert.Equal(t, "model exploded", errRec.Error)
}

func TestOffer_TimeoutRetriesThenExhausts(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2
	store, err := discussion.NewStore(t.TempDir())
	require.NoError(t, err)

	profile := &agent.Profile{
		Name:    "claude",
		Binary:  "/bin/sh",
		Args:    []string{"-c", "sleep 30", "sh"},
		Timeout: 100 * time.Millisecond,
	}
	r := New(profile, store, cfg)
	r.running = true
	r.quit = make(chan struct{})
	defer close(r.quit)

	id, _, err := store.Create("topic", []string{"claude", "codex"}, nil)
	require.NoError(t, err)

	msgs, err := store.ReadAll(id)
	require.NoError(t, err)
	r.offer(id, msgs)

	errRec := waitForType(t, store, id, message.TypeError)
	assert.Contains(t, errRec.Error, "timed out after 2 attempts")

	msgs, err = store.ReadAll(id)
	require.NoError(t, err)
	var retryStatuses int
	for _, m := range msgs {
		if m.Type == message.TypeStatus && m.Status == message.StatusRetrying {
			retryStatuses++
		}
	}
	assert.Equal(t, 2, retryStatuses)
}
