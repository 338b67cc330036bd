package chunkstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type chunkKey struct {
	source string
	page   int
	offset int
}

type memoryCollection struct {
	byKey  map[chunkKey]int // index into chunks
	chunks []Chunk
}

// MemoryStore is an in-process Store using brute-force cosine similarity.
// It backs tests and single-node development. The mutex makes every write
// atomic with respect to searches, so a concurrent reader sees either the
// pre-write or the fully written chunk set.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[uint]*memoryCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[uint]*memoryCollection)}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, sessionID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[sessionID]; !ok {
		s.collections[sessionID] = &memoryCollection{byKey: make(map[chunkKey]int)}
	}
	return nil
}

// HasCollection reports whether the session's collection exists.
func (s *MemoryStore) HasCollection(sessionID uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[sessionID]
	return ok
}

func (s *MemoryStore) AddChunks(_ context.Context, sessionID uint, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[sessionID]
	if !ok {
		return fmt.Errorf("chunk collection for session %d does not exist", sessionID)
	}
	for _, c := range chunks {
		key := chunkKey{source: c.Source, page: c.Page, offset: c.Offset}
		if _, exists := col.byKey[key]; exists {
			continue
		}
		col.byKey[key] = len(col.chunks)
		col.chunks = append(col.chunks, c)
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, sessionID uint, queryVector []float32, k int, filter *Filter) ([]Scored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[sessionID]
	if !ok || k <= 0 {
		return nil, nil
	}
	var scored []Scored
	for _, c := range col.chunks {
		if !filter.matches(c) {
			continue
		}
		scored = append(scored, Scored{Chunk: c, Score: cosineSimilarity(queryVector, c.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (s *MemoryStore) ListSection(_ context.Context, sessionID uint, source, section string) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[sessionID]
	if !ok {
		return nil, nil
	}
	var out []Chunk
	for _, c := range col.chunks {
		if c.Source == source && c.Section == section {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) CountDocument(_ context.Context, sessionID uint, source string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[sessionID]
	if !ok {
		return 0, nil
	}
	var count int64
	for _, c := range col.chunks {
		if c.Source == source {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, sessionID uint, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[sessionID]
	if !ok {
		return nil
	}
	kept := col.chunks[:0:0]
	for _, c := range col.chunks {
		if c.Source != source {
			kept = append(kept, c)
		}
	}
	col.chunks = kept
	col.byKey = make(map[chunkKey]int, len(kept))
	for i, c := range kept {
		col.byKey[chunkKey{source: c.Source, page: c.Page, offset: c.Offset}] = i
	}
	return nil
}

func (s *MemoryStore) DeleteCollection(_ context.Context, sessionID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, sessionID)
	return nil
}
