package artifact

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantlecore/agentcore/core"
)

var _ core.ArtifactAccess = (*InMemoryStore)(nil)

func TestInMemoryStore_PutIsContentAddressedAndIsolated(t *testing.T) {
	svc := NewInMemoryStore()
	data := []byte("hello")

	ref, err := svc.Put("s1", data, "text/plain")
	require.NoError(t, err)
	assert.NotEmpty(t, ref.ArtifactID)

	data[0] = 'H' // mutate caller's slice after Put

	out, err := svc.Read("s1", ref.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	out[0] = 'x' // mutate returned slice

	out2, err := svc.Read("s1", ref.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out2))
}

func TestInMemoryStore_PutDedupesIdenticalContent(t *testing.T) {
	svc := NewInMemoryStore()

	ref1, err := svc.Put("s1", []byte("same"), "text/plain")
	require.NoError(t, err)
	ref2, err := svc.Put("s1", []byte("same"), "text/plain")
	require.NoError(t, err)

	assert.Equal(t, ref1.ArtifactID, ref2.ArtifactID)

	list, err := svc.List("s1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestInMemoryStore_TailAndSearch(t *testing.T) {
	svc := NewInMemoryStore()
	ref, err := svc.Put("s1", []byte("line1\nline2\nerror: boom\nline4"), "text/plain")
	require.NoError(t, err)

	tail, err := svc.Tail("s1", ref.ArtifactID, 2)
	require.NoError(t, err)
	assert.Equal(t, "error: boom\nline4", tail)

	hits, err := svc.Search("s1", ref.ArtifactID, "ERROR")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 2, hits[0].Offset)
}

func TestInMemoryStore_SearchCapsHitsAt100(t *testing.T) {
	svc := NewInMemoryStore()

	var lines []string
	for i := 0; i < 150; i++ {
		lines = append(lines, "needle")
	}
	ref, err := svc.Put("s1", []byte(strings.Join(lines, "\n")), "text/plain")
	require.NoError(t, err)

	hits, err := svc.Search("s1", ref.ArtifactID, "needle")
	require.NoError(t, err)
	assert.Len(t, hits, maxSearchHits)
}

func TestInMemoryStore_PreviewHonorsMaxPreviewTokensAndMarksEllipsis(t *testing.T) {
	svc := NewInMemoryStore(func(o *Options) { o.MaxPreviewTokens = 2 })

	// MaxPreviewTokens=2 -> an 8-byte cut; the first newline inside that
	// window is at index 4, so the preview should trim back to "abcd".
	ref, err := svc.Put("s1", []byte("abcd\nefghijklmnop"), "text/plain")
	require.NoError(t, err)

	list, err := svc.List("s1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ref.ArtifactID, list[0].ArtifactID)
	assert.Equal(t, "abcd...", list[0].Preview)
}

func TestInMemoryStore_PreviewReturnsFullContentWhenUnderLimit(t *testing.T) {
	svc := NewInMemoryStore()

	ref, err := svc.Put("s1", []byte("short"), "text/plain")
	require.NoError(t, err)

	list, err := svc.List("s1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ref.ArtifactID, list[0].ArtifactID)
	assert.Equal(t, "short", list[0].Preview)
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	svc := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Put("s1", []byte{byte(i % 10)}, "application/octet-stream")
			assert.NoError(t, err)
			_, _ = svc.List("s1")
		}()
	}
	wg.Wait()

	ids, err := svc.List("s1")
	require.NoError(t, err)
	assert.NotEmpty(t, ids)
}
