package app

import (
	"context"
	"time"

	"paperqa/internal/ai"
	"paperqa/internal/model"
)

// Embedder produces vector representations of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer produces a chat completion for the assembled prompt.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// DocumentRegistry is the slice of the relational store the core depends on.
type DocumentRegistry interface {
	GetByID(id uint) (*model.Document, error)
	GetBySessionAndFilename(sessionID uint, filename string) (*model.Document, error)
	ListBySessionID(sessionID uint) ([]model.Document, error)
	ListBySessionIDAndStatus(sessionID uint, status string) ([]model.Document, error)
	UpdateStatus(id uint, status string, startedAt, completedAt *time.Time, errorMessage *string) error
	UpdateMetadata(id uint, title, abstract *string, pageCount *int) error
}

// AnswerRecord carries one question/answer pair to asynchronous persistence.
type AnswerRecord struct {
	SessionID uint             `json:"session_id"`
	Question  string           `json:"question"`
	Answer    string           `json:"answer"`
	Citations []model.Citation `json:"citations"`
	AskedAt   time.Time        `json:"asked_at"`
}

// AnswerRecorder hands an answered question off for persistence; failures
// are logged, never surfaced to the asking caller.
type AnswerRecorder interface {
	Record(ctx context.Context, rec AnswerRecord) error
}

// RunLogRecorder captures per-query metrics rows.
type RunLogRecorder interface {
	Create(runLog *model.RunLog) error
}

// PageExtractor turns a stored file into page-indexed plain text.
type PageExtractor func(path string) ([]string, error)
