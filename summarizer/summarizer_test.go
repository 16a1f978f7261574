package summarizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/memoryrouter"
	"github.com/mantlecore/agentcore/store"
)

type stubSummarizer struct{ calls int }

func (s *stubSummarizer) Summarize(_ context.Context, messages []core.Message) (string, error) {
	s.calls++
	return "condensed", nil
}

func seedMessages(t *testing.T, router *memoryrouter.Router, sessionID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := router.Append(sessionID, core.Message{Role: core.RoleUser, Content: "turn", TokenEstimate: 10})
		require.NoError(t, err)
	}
}

func TestMemorySummarizer_NoopUnderBound(t *testing.T) {
	router := memoryrouter.New("memory", store.NewMemoryKVStore())
	seedMessages(t, router, "sess-1", 3)

	stub := &stubSummarizer{}
	s := New(Config{Enabled: true, Mode: ModeSlidingWindow, Value: 10, Retention: RetentionKeep}, router, stub)

	summary, err := s.MaybeSummarize(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Nil(t, summary)
	assert.Zero(t, stub.calls)
}

func TestMemorySummarizer_SlidingWindowRollsOldestIntoSummary(t *testing.T) {
	router := memoryrouter.New("memory", store.NewMemoryKVStore())
	seedMessages(t, router, "sess-1", 10)

	stub := &stubSummarizer{}
	s := New(Config{Enabled: true, Mode: ModeSlidingWindow, Value: 5, Retention: RetentionKeep}, router, stub)

	summary, err := s.MaybeSummarize(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, core.RoleSummary, summary.Role)
	assert.Len(t, summary.SupersedesIDs, 5)

	active, err := router.Load("sess-1", core.MessageFilter{ActiveOnly: true})
	require.NoError(t, err)
	// 5 original kept + 1 new summary
	assert.Len(t, active, 6)
}

func TestMemorySummarizer_RetentionDeleteRemovesSources(t *testing.T) {
	router := memoryrouter.New("memory", store.NewMemoryKVStore())
	seedMessages(t, router, "sess-1", 10)

	stub := &stubSummarizer{}
	s := New(Config{Enabled: true, Mode: ModeSlidingWindow, Value: 5, Retention: RetentionDelete}, router, stub)

	_, err := s.MaybeSummarize(context.Background(), "sess-1")
	require.NoError(t, err)

	all, err := router.Load("sess-1", core.MessageFilter{})
	require.NoError(t, err)
	// the 5 dropped originals are gone entirely, only 5 kept + 1 summary remain
	assert.Len(t, all, 6)
}

func TestMemorySummarizer_SecondRoundFoldsPriorSummary(t *testing.T) {
	router := memoryrouter.New("memory", store.NewMemoryKVStore())
	seedMessages(t, router, "sess-1", 10)

	stub := &stubSummarizer{}
	s := New(Config{Enabled: true, Mode: ModeSlidingWindow, Value: 5, Retention: RetentionKeep}, router, stub)

	first, err := s.MaybeSummarize(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	seedMessages(t, router, "sess-1", 10) // push the log back over the bound

	second, err := s.MaybeSummarize(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, second)

	// the second summary's lineage must cover the first round's originals
	// too, and only one summary message should remain active.
	assert.GreaterOrEqual(t, len(second.SupersedesIDs), len(first.SupersedesIDs)+1)

	active, err := router.Load("sess-1", core.MessageFilter{ActiveOnly: true})
	require.NoError(t, err)
	summaryCount := 0
	for _, m := range active {
		if m.Role == core.RoleSummary {
			summaryCount++
		}
	}
	assert.Equal(t, 1, summaryCount)
}
