package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequential_ThreadsOutputAsNextInput(t *testing.T) {
	var seen []string
	upper := NewRunner("upper", "appends an exclamation mark", func(ctx context.Context, sessionID, query string) (string, error) {
		seen = append(seen, query)
		return query + "!", nil
	})
	exclaim := NewRunner("exclaim", "adds more excitement", func(ctx context.Context, sessionID, query string) (string, error) {
		seen = append(seen, query)
		return query + "!", nil
	})

	seq := NewSequential("pipeline", upper, exclaim)
	out, err := seq.Run(context.Background(), "sess", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi!!", out)
	assert.Equal(t, []string{"hi", "hi!"}, seen)
}

func TestSequential_AbortsChainOnFirstError(t *testing.T) {
	var ranSecond bool
	failing := NewRunner("failing", "always fails", func(ctx context.Context, sessionID, query string) (string, error) {
		return "", errors.New("boom")
	})
	never := NewRunner("never", "should not run", func(ctx context.Context, sessionID, query string) (string, error) {
		ranSecond = true
		return "unreached", nil
	})

	seq := NewSequential("pipeline", failing, never)
	_, err := seq.Run(context.Background(), "sess", "hi")
	require.Error(t, err)
	assert.False(t, ranSecond)
}

func TestSequential_EmptyStepsReturnsInputUnchanged(t *testing.T) {
	seq := NewSequential("noop")
	out, err := seq.Run(context.Background(), "sess", "passthrough")
	require.NoError(t, err)
	assert.Equal(t, "passthrough", out)
}
