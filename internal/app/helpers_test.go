package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"paperqa/internal/ai"
	"paperqa/internal/model"
)

// fakeRegistry is an in-memory DocumentRegistry safe for concurrent workers.
type fakeRegistry struct {
	mu   sync.Mutex
	docs map[uint]*model.Document
}

func newFakeRegistry(docs ...*model.Document) *fakeRegistry {
	r := &fakeRegistry{docs: make(map[uint]*model.Document)}
	for _, d := range docs {
		copied := *d
		r.docs[d.ID] = &copied
	}
	return r
}

func (r *fakeRegistry) GetByID(id uint) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeRegistry) GetBySessionAndFilename(sessionID uint, filename string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.SessionID == sessionID && doc.Filename == filename {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeRegistry) ListBySessionID(sessionID uint) ([]model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []model.Document
	for _, doc := range r.docs {
		if doc.SessionID == sessionID {
			list = append(list, *doc)
		}
	}
	return list, nil
}

func (r *fakeRegistry) ListBySessionIDAndStatus(sessionID uint, status string) ([]model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []model.Document
	for _, doc := range r.docs {
		if doc.SessionID == sessionID && doc.Status == status {
			list = append(list, *doc)
		}
	}
	return list, nil
}

func (r *fakeRegistry) UpdateStatus(id uint, status string, startedAt, completedAt *time.Time, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return fmt.Errorf("document %d not found", id)
	}
	doc.Status = status
	doc.ErrorMessage = errorMessage
	if startedAt != nil {
		doc.ProcessingStartedAt = startedAt
	}
	if completedAt != nil {
		doc.ProcessingCompletedAt = completedAt
	}
	return nil
}

func (r *fakeRegistry) UpdateMetadata(id uint, title, abstract *string, pageCount *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return fmt.Errorf("document %d not found", id)
	}
	doc.Title = title
	doc.Abstract = abstract
	doc.PageCount = pageCount
	return nil
}

func (r *fakeRegistry) status(id uint) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[id]; ok {
		return doc.Status
	}
	return ""
}

type fakeEmbedder struct {
	mu         sync.Mutex
	vector     []float32
	err        error
	embedCalls int
	batchCalls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = f.vector
	}
	return vectors, nil
}

func (f *fakeEmbedder) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedCalls, f.batchCalls
}

type fakeCompleter struct {
	mu       sync.Mutex
	answer   string
	err      error
	count    int
	lastMsgs []ai.ChatMessage
}

func (f *fakeCompleter) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	f.lastMsgs = messages
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func (f *fakeCompleter) lastUserPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.lastMsgs {
		if m.Role == "user" {
			return m.Content
		}
	}
	return ""
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []AnswerRecord
}

func (f *fakeRecorder) Record(_ context.Context, rec AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeRecorder) all() []AnswerRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AnswerRecord(nil), f.records...)
}

type fakeRunLogs struct {
	mu   sync.Mutex
	logs []model.RunLog
}

func (f *fakeRunLogs) Create(runLog *model.RunLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *runLog)
	return nil
}

func (f *fakeRunLogs) all() []model.RunLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.RunLog(nil), f.logs...)
}
