package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallel_RunAll_JoinsAllResultsIncludingErrors(t *testing.T) {
	fast := NewRunner("fast", "returns quickly", func(ctx context.Context, sessionID, query string) (string, error) {
		return "fast:" + query, nil
	})
	slow := NewRunner("slow", "takes a bit", func(ctx context.Context, sessionID, query string) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return "slow:" + query, nil
	})
	broken := NewRunner("broken", "always fails", func(ctx context.Context, sessionID, query string) (string, error) {
		return "", errors.New("kaput")
	})

	p := NewParallel("fanout", fast, slow, broken)
	results := p.RunAll(context.Background(), "sess", "go")

	require.Len(t, results, 3)
	assert.Equal(t, "fast:go", results["fast"].Output)
	assert.Empty(t, results["fast"].Error)
	assert.Equal(t, "slow:go", results["slow"].Output)
	assert.Empty(t, results["slow"].Error)
	assert.Empty(t, results["broken"].Output)
	assert.Equal(t, "kaput", results["broken"].Error)
}

func TestParallel_Run_EncodesMappingAsJSONForNesting(t *testing.T) {
	one := NewRunner("one", "", func(ctx context.Context, sessionID, query string) (string, error) {
		return "1", nil
	})
	p := NewParallel("fanout", one)

	out, err := p.Run(context.Background(), "sess", "go")
	require.NoError(t, err)

	var decoded map[string]ParallelResult
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "1", decoded["one"].Output)
}

func TestParallel_SiblingFailureDoesNotBlockOthers(t *testing.T) {
	ok := NewRunner("ok", "", func(ctx context.Context, sessionID, query string) (string, error) {
		return "ok", nil
	})
	bad := NewRunner("bad", "", func(ctx context.Context, sessionID, query string) (string, error) {
		return "", errors.New("nope")
	})

	p := NewParallel("fanout", ok, bad)
	results := p.RunAll(context.Background(), "sess", "go")

	assert.Equal(t, "ok", results["ok"].Output)
	assert.Equal(t, "nope", results["bad"].Error)
}
