package chunkstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Collection is the lazily created per-session collection record.
type Collection struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uint      `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

func (Collection) TableName() string { return "chunk_collections" }

// Record is a stored chunk row. The embedding is kept as a JSON array of
// float32 for portability across drivers.
type Record struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID uint   `gorm:"not null;index;uniqueIndex:idx_chunk_identity"`
	Source    string `gorm:"size:255;not null;index;uniqueIndex:idx_chunk_identity"`
	Page      int    `gorm:"not null;uniqueIndex:idx_chunk_identity"`
	Offset    int    `gorm:"column:chunk_offset;not null;uniqueIndex:idx_chunk_identity"`
	Section   string `gorm:"size:16;not null;index"`
	Content   string `gorm:"type:text;not null"`
	Embedding string `gorm:"type:text"` // JSON array of float32
	CreatedAt time.Time
}

func (Record) TableName() string { return "chunks" }

func (r *Record) embeddingVector() []float32 {
	if r.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(r.Embedding), &v)
	return v
}

// GormStore persists chunks in the relational store and ranks by cosine
// similarity in process. Ranking candidates are narrowed by the filter in
// SQL first, so only one session's (and optionally one document's) rows are
// ever loaded.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) EnsureCollection(ctx context.Context, sessionID uint) error {
	col := Collection{SessionID: sessionID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&col).Error
	if err != nil {
		return fmt.Errorf("ensure chunk collection failed: %w", err)
	}
	return nil
}

func (s *GormStore) AddChunks(ctx context.Context, sessionID uint, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	records := make([]Record, len(chunks))
	for i, c := range chunks {
		emb, err := json.Marshal(c.Embedding)
		if err != nil {
			return fmt.Errorf("marshal chunk embedding failed: %w", err)
		}
		records[i] = Record{
			SessionID: sessionID,
			Source:    c.Source,
			Page:      c.Page,
			Offset:    c.Offset,
			Section:   c.Section,
			Content:   c.Text,
			Embedding: string(emb),
		}
	}
	// Re-ingestion replays the same identities; conflicting rows are skipped.
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records).Error
	if err != nil {
		return fmt.Errorf("create chunks batch failed: %w", err)
	}
	return nil
}

func (s *GormStore) Search(ctx context.Context, sessionID uint, queryVector []float32, k int, filter *Filter) ([]Scored, error) {
	if k <= 0 {
		return nil, nil
	}
	q := s.db.WithContext(ctx).Where("session_id = ?", sessionID)
	if filter != nil {
		if len(filter.Sources) > 0 {
			q = q.Where("source IN ?", filter.Sources)
		}
		if filter.Section != "" {
			q = q.Where("section = ?", filter.Section)
		}
	}
	var records []Record
	if err := q.Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list chunks for search failed: %w", err)
	}

	scored := make([]Scored, len(records))
	for i := range records {
		scored[i] = Scored{Chunk: recordToChunk(&records[i]), Score: cosineSimilarity(queryVector, records[i].embeddingVector())}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (s *GormStore) ListSection(ctx context.Context, sessionID uint, source, section string) ([]Chunk, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND source = ? AND section = ?", sessionID, source, section).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list section chunks failed: %w", err)
	}
	chunks := make([]Chunk, len(records))
	for i := range records {
		chunks[i] = recordToChunk(&records[i])
	}
	return chunks, nil
}

func (s *GormStore) CountDocument(ctx context.Context, sessionID uint, source string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Record{}).
		Where("session_id = ? AND source = ?", sessionID, source).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count document chunks failed: %w", err)
	}
	return count, nil
}

func (s *GormStore) DeleteDocument(ctx context.Context, sessionID uint, source string) error {
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND source = ?", sessionID, source).
		Delete(&Record{}).Error
	if err != nil {
		return fmt.Errorf("delete document chunks failed: %w", err)
	}
	return nil
}

func (s *GormStore) DeleteCollection(ctx context.Context, sessionID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&Record{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sessionID).Delete(&Collection{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete chunk collection failed: %w", err)
	}
	return nil
}

func recordToChunk(r *Record) Chunk {
	return Chunk{
		Source:    r.Source,
		Page:      r.Page,
		Offset:    r.Offset,
		Section:   r.Section,
		Text:      r.Content,
		Embedding: r.embeddingVector(),
	}
}
