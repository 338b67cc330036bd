package chunkstore

import (
	"context"
	"math"
)

// Section tags carried in chunk metadata.
const (
	SectionAbstract = "abstract"
	SectionBody     = "body"
)

// Chunk is a bounded text span from a document plus its embedding and
// location metadata. Chunks are immutable once written; a chunk is
// identified by (source, page, offset) within a session's collection.
type Chunk struct {
	Source    string    `json:"source"`
	Page      int       `json:"page"`
	Offset    int       `json:"offset"`
	Section   string    `json:"section"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

// Scored is a chunk returned from a similarity search.
type Scored struct {
	Chunk
	Score float32 `json:"score"`
}

// Filter restricts a search. A nil filter matches everything; an empty
// Sources slice does not restrict sources.
type Filter struct {
	Sources []string
	Section string
}

// Store is the per-session collection abstraction over the vector index.
// One session's chunks are never visible through another session's calls.
type Store interface {
	// EnsureCollection lazily creates the session's collection.
	EnsureCollection(ctx context.Context, sessionID uint) error
	// AddChunks writes chunks into the session's collection. Insertion is
	// idempotent under the (source, page, offset) identity.
	AddChunks(ctx context.Context, sessionID uint, chunks []Chunk) error
	// Search returns up to k chunks ranked by cosine similarity.
	Search(ctx context.Context, sessionID uint, queryVector []float32, k int, filter *Filter) ([]Scored, error)
	// ListSection returns all chunks of one section for a source, in
	// insertion order.
	ListSection(ctx context.Context, sessionID uint, source, section string) ([]Chunk, error)
	// CountDocument returns the number of chunks stored for a source.
	CountDocument(ctx context.Context, sessionID uint, source string) (int64, error)
	// DeleteDocument removes every chunk for a source.
	DeleteDocument(ctx context.Context, sessionID uint, source string) error
	// DeleteCollection removes the session's collection and all its chunks.
	DeleteCollection(ctx context.Context, sessionID uint) error
}

func (f *Filter) matches(c Chunk) bool {
	if f == nil {
		return true
	}
	if f.Section != "" && c.Section != f.Section {
		return false
	}
	if len(f.Sources) > 0 {
		found := false
		for _, s := range f.Sources {
			if c.Source == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
