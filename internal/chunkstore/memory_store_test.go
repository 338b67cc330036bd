package chunkstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeChunk(source string, page, offset int, section string, vec []float32) Chunk {
	return Chunk{
		Source:    source,
		Page:      page,
		Offset:    offset,
		Section:   section,
		Text:      "chunk text",
		Embedding: vec,
	}
}

func TestMemoryStoreSessionIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.EnsureCollection(ctx, 1))
	require.NoError(t, store.EnsureCollection(ctx, 2))

	require.NoError(t, store.AddChunks(ctx, 1, []Chunk{
		makeChunk("a.pdf", 0, 0, SectionBody, []float32{1, 0}),
	}))

	// Session 2 never sees session 1's chunks, for any query vector.
	for _, vec := range [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}} {
		results, err := store.Search(ctx, 2, vec, 10, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	}

	results, err := store.Search(ctx, 1, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemoryStoreSourceFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.EnsureCollection(ctx, 1))
	require.NoError(t, store.AddChunks(ctx, 1, []Chunk{
		makeChunk("a.pdf", 0, 0, SectionBody, []float32{1, 0}),
		makeChunk("b.pdf", 0, 0, SectionBody, []float32{1, 0}),
		makeChunk("c.pdf", 0, 0, SectionBody, []float32{1, 0}),
	}))

	results, err := store.Search(ctx, 1, []float32{1, 0}, 10, &Filter{Sources: []string{"a.pdf", "c.pdf"}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, []string{"a.pdf", "c.pdf"}, r.Source)
	}
}

func TestMemoryStoreSectionFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.EnsureCollection(ctx, 1))
	require.NoError(t, store.AddChunks(ctx, 1, []Chunk{
		makeChunk("a.pdf", 0, 0, SectionAbstract, []float32{1, 0}),
		makeChunk("a.pdf", 1, 0, SectionBody, []float32{1, 0}),
		makeChunk("a.pdf", 2, 0, SectionBody, []float32{0.9, 0.1}),
	}))

	body, err := store.Search(ctx, 1, []float32{1, 0}, 10, &Filter{Section: SectionBody})
	require.NoError(t, err)
	assert.Len(t, body, 2)

	abstract, err := store.ListSection(ctx, 1, "a.pdf", SectionAbstract)
	require.NoError(t, err)
	assert.Len(t, abstract, 1)
	assert.Equal(t, 0, abstract[0].Page)
}

func TestMemoryStoreIdempotentInsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.EnsureCollection(ctx, 1))

	chunks := []Chunk{
		makeChunk("a.pdf", 0, 0, SectionBody, []float32{1, 0}),
		makeChunk("a.pdf", 0, 800, SectionBody, []float32{0, 1}),
	}
	require.NoError(t, store.AddChunks(ctx, 1, chunks))
	require.NoError(t, store.AddChunks(ctx, 1, chunks))

	count, err := store.CountDocument(ctx, 1, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMemoryStoreDeleteDocument(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.EnsureCollection(ctx, 1))
	require.NoError(t, store.AddChunks(ctx, 1, []Chunk{
		makeChunk("a.pdf", 0, 0, SectionBody, []float32{1, 0}),
		makeChunk("b.pdf", 0, 0, SectionBody, []float32{1, 0}),
	}))

	require.NoError(t, store.DeleteDocument(ctx, 1, "a.pdf"))

	count, err := store.CountDocument(ctx, 1, "a.pdf")
	require.NoError(t, err)
	assert.Zero(t, count)

	// The other document is untouched.
	count, err = store.CountDocument(ctx, 1, "b.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Re-adding after delete works (reingest path).
	require.NoError(t, store.AddChunks(ctx, 1, []Chunk{
		makeChunk("a.pdf", 0, 0, SectionBody, []float32{1, 0}),
	}))
	count, err = store.CountDocument(ctx, 1, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStoreDeleteCollection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.EnsureCollection(ctx, 1))
	require.NoError(t, store.AddChunks(ctx, 1, []Chunk{
		makeChunk("a.pdf", 0, 0, SectionBody, []float32{1, 0}),
	}))

	require.NoError(t, store.DeleteCollection(ctx, 1))
	assert.False(t, store.HasCollection(1))

	results, err := store.Search(ctx, 1, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStoreAddWithoutCollection(t *testing.T) {
	store := NewMemoryStore()
	err := store.AddChunks(context.Background(), 9, []Chunk{
		makeChunk("a.pdf", 0, 0, SectionBody, []float32{1, 0}),
	})
	assert.Error(t, err)
}

func TestMemoryStoreRanking(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.EnsureCollection(ctx, 1))
	require.NoError(t, store.AddChunks(ctx, 1, []Chunk{
		makeChunk("a.pdf", 0, 0, SectionBody, []float32{1, 0}),
		makeChunk("a.pdf", 1, 0, SectionBody, []float32{0, 1}),
		makeChunk("a.pdf", 2, 0, SectionBody, []float32{0.7, 0.7}),
	}))

	results, err := store.Search(ctx, 1, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Page)
	assert.Equal(t, 2, results[1].Page)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}
