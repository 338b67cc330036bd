package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paperqa/internal/chunkstore"
	"paperqa/internal/model"
)

func indexedDoc(id, sessionID uint, filename string) *model.Document {
	return &model.Document{
		ID:        id,
		SessionID: sessionID,
		Filename:  filename,
		Status:    model.StatusIndexed,
	}
}

func newQueryService(
	docs DocumentRegistry,
	store chunkstore.Store,
	embedder *fakeEmbedder,
	llm *fakeCompleter,
) *QueryService {
	return NewQueryService(docs, store, embedder, llm, nil, nil, zap.NewNop(), 5)
}

func seedChunks(t *testing.T, store chunkstore.Store, sessionID uint, chunks []chunkstore.Chunk) {
	t.Helper()
	require.NoError(t, store.EnsureCollection(context.Background(), sessionID))
	require.NoError(t, store.AddChunks(context.Background(), sessionID, chunks))
}

func TestAsk_PageCountSkipsModel(t *testing.T) {
	pages := 12
	doc := indexedDoc(1, 7, "paper.pdf")
	doc.PageCount = &pages
	registry := newFakeRegistry(doc)
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	llm := &fakeCompleter{answer: "should not be called"}
	svc := newQueryService(registry, chunkstore.NewMemoryStore(), embedder, llm)

	res, err := svc.Ask(context.Background(), AskInput{SessionID: 7, Question: "How many pages does this paper have?"})

	require.NoError(t, err)
	assert.Equal(t, StrategyMetadataPageCount, res.Strategy)
	assert.Equal(t, "paper.pdf has 12 pages.", res.Answer)
	assert.Empty(t, res.Citations)

	embedCalls, batchCalls := embedder.calls()
	assert.Zero(t, embedCalls)
	assert.Zero(t, batchCalls)
	assert.Zero(t, llm.calls())
}

func TestAsk_TitleFromRegistry(t *testing.T) {
	title := "Attention Is All You Need"
	doc := indexedDoc(1, 7, "paper.pdf")
	doc.Title = &title
	registry := newFakeRegistry(doc)
	llm := &fakeCompleter{answer: "unused"}
	svc := newQueryService(registry, chunkstore.NewMemoryStore(), &fakeEmbedder{}, llm)

	res, err := svc.Ask(context.Background(), AskInput{SessionID: 7, Question: "What is the title of this paper?"})

	require.NoError(t, err)
	assert.Equal(t, StrategyMetadataTitle, res.Strategy)
	assert.Contains(t, res.Answer, title)
	assert.Zero(t, llm.calls())
}

// A metadata question whose field was never extracted falls through to
// retrieval instead of answering "unknown".
func TestAsk_MetadataFallsBackWhenFieldMissing(t *testing.T) {
	doc := indexedDoc(1, 7, "paper.pdf")
	registry := newFakeRegistry(doc)
	store := chunkstore.NewMemoryStore()
	seedChunks(t, store, 7, []chunkstore.Chunk{
		{Source: "paper.pdf", Page: 1, Offset: 0, Section: chunkstore.SectionBody, Text: "the paper spans twelve pages", Embedding: []float32{1, 0}},
	})
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	llm := &fakeCompleter{answer: "The paper spans twelve pages."}
	svc := newQueryService(registry, store, embedder, llm)

	res, err := svc.Ask(context.Background(), AskInput{SessionID: 7, Question: "How many pages does this paper have?"})

	require.NoError(t, err)
	assert.Equal(t, StrategyFullRAG, res.Strategy)
	assert.Equal(t, 1, llm.calls())
}

func TestAsk_RefusalOnEmptyContext(t *testing.T) {
	registry := newFakeRegistry(indexedDoc(1, 7, "paper.pdf"))
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	llm := &fakeCompleter{answer: "unused"}
	svc := newQueryService(registry, chunkstore.NewMemoryStore(), embedder, llm)

	res, err := svc.Ask(context.Background(), AskInput{SessionID: 7, Question: "What dataset was used?"})

	require.NoError(t, err)
	assert.Equal(t, RefusalAnswer, res.Answer)
	assert.Empty(t, res.Citations)
	assert.Zero(t, llm.calls())
}

func TestAsk_CitationsAggregatedAndOrdered(t *testing.T) {
	registry := newFakeRegistry(indexedDoc(1, 7, "paper.pdf"))
	store := chunkstore.NewMemoryStore()
	seedChunks(t, store, 7, []chunkstore.Chunk{
		{Source: "paper.pdf", Page: 7, Offset: 0, Section: chunkstore.SectionBody, Text: "related work", Embedding: []float32{1, 0}},
		{Source: "paper.pdf", Page: 4, Offset: 0, Section: chunkstore.SectionBody, Text: "experiment setup", Embedding: []float32{1, 0}},
		{Source: "paper.pdf", Page: 4, Offset: 800, Section: chunkstore.SectionBody, Text: "experiment results", Embedding: []float32{1, 0}},
	})
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	llm := &fakeCompleter{answer: "The experiments used the setup on page 4."}
	svc := newQueryService(registry, store, embedder, llm)

	res, err := svc.Ask(context.Background(), AskInput{SessionID: 7, Question: "Describe the experimental setup"})

	require.NoError(t, err)
	require.Len(t, res.Citations, 2)
	assert.Equal(t, model.Citation{Source: "paper.pdf", Page: 4, Count: 2}, res.Citations[0])
	assert.Equal(t, model.Citation{Source: "paper.pdf", Page: 7, Count: 1}, res.Citations[1])
}

func TestAsk_OverviewSeedsAbstract(t *testing.T) {
	registry := newFakeRegistry(indexedDoc(1, 7, "paper.pdf"))
	store := chunkstore.NewMemoryStore()
	seedChunks(t, store, 7, []chunkstore.Chunk{
		{Source: "paper.pdf", Page: 0, Offset: 0, Section: chunkstore.SectionAbstract, Text: "we propose a new attention model", Embedding: []float32{0, 1}},
		{Source: "paper.pdf", Page: 3, Offset: 0, Section: chunkstore.SectionBody, Text: "the model stacks encoders", Embedding: []float32{1, 0}},
	})
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	llm := &fakeCompleter{answer: "The paper proposes a new attention model."}
	svc := newQueryService(registry, store, embedder, llm)

	res, err := svc.Ask(context.Background(), AskInput{SessionID: 7, Question: "What is this paper about?"})

	require.NoError(t, err)
	assert.Equal(t, StrategyOverview, res.Strategy)
	assert.Contains(t, llm.lastUserPrompt(), "we propose a new attention model")
	assert.Contains(t, llm.lastUserPrompt(), "the model stacks encoders")
}

func TestAsk_ModelRefusalClearsCitations(t *testing.T) {
	registry := newFakeRegistry(indexedDoc(1, 7, "paper.pdf"))
	store := chunkstore.NewMemoryStore()
	seedChunks(t, store, 7, []chunkstore.Chunk{
		{Source: "paper.pdf", Page: 2, Offset: 0, Section: chunkstore.SectionBody, Text: "unrelated content", Embedding: []float32{1, 0}},
	})
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	llm := &fakeCompleter{answer: RefusalAnswer}
	svc := newQueryService(registry, store, embedder, llm)

	res, err := svc.Ask(context.Background(), AskInput{SessionID: 7, Question: "What is the meaning of life?"})

	require.NoError(t, err)
	assert.Equal(t, RefusalAnswer, res.Answer)
	assert.Empty(t, res.Citations)
}

func TestAsk_SourceValidation(t *testing.T) {
	failed := indexedDoc(2, 7, "broken.pdf")
	failed.Status = model.StatusFailed
	registry := newFakeRegistry(indexedDoc(1, 7, "paper.pdf"), failed)
	svc := newQueryService(registry, chunkstore.NewMemoryStore(), &fakeEmbedder{}, &fakeCompleter{})

	_, err := svc.Ask(context.Background(), AskInput{
		SessionID: 7, Question: "What is said here?", Sources: []string{"missing.pdf"},
	})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = svc.Ask(context.Background(), AskInput{
		SessionID: 7, Question: "What is said here?", Sources: []string{"broken.pdf"},
	})
	assert.ErrorIs(t, err, ErrDocumentNotIndexed)
}

func TestAsk_NoIndexedDocuments(t *testing.T) {
	uploaded := indexedDoc(1, 7, "pending.pdf")
	uploaded.Status = model.StatusUploaded
	registry := newFakeRegistry(uploaded)
	svc := newQueryService(registry, chunkstore.NewMemoryStore(), &fakeEmbedder{}, &fakeCompleter{})

	_, err := svc.Ask(context.Background(), AskInput{SessionID: 7, Question: "anything"})
	assert.ErrorIs(t, err, ErrNoIndexedDocuments)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	registry := newFakeRegistry(indexedDoc(1, 7, "paper.pdf"))
	svc := newQueryService(registry, chunkstore.NewMemoryStore(), &fakeEmbedder{}, &fakeCompleter{})

	_, err := svc.Ask(context.Background(), AskInput{SessionID: 7, Question: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAsk_EmbedderFailureIsInfrastructure(t *testing.T) {
	registry := newFakeRegistry(indexedDoc(1, 7, "paper.pdf"))
	embedder := &fakeEmbedder{err: errors.New("connection refused")}
	svc := newQueryService(registry, chunkstore.NewMemoryStore(), embedder, &fakeCompleter{})

	_, err := svc.Ask(context.Background(), AskInput{SessionID: 7, Question: "What dataset was used?"})

	require.Error(t, err)
	assert.True(t, IsInfrastructure(err))
}

func TestAsk_RecordsAnswerAndRunLog(t *testing.T) {
	registry := newFakeRegistry(indexedDoc(1, 7, "paper.pdf"))
	store := chunkstore.NewMemoryStore()
	seedChunks(t, store, 7, []chunkstore.Chunk{
		{Source: "paper.pdf", Page: 1, Offset: 0, Section: chunkstore.SectionBody, Text: "findings", Embedding: []float32{1, 0}},
	})
	recorder := &fakeRecorder{}
	runLogs := &fakeRunLogs{}
	svc := NewQueryService(registry, store, &fakeEmbedder{vector: []float32{1, 0}},
		&fakeCompleter{answer: "The findings are on page 1."}, recorder, runLogs, zap.NewNop(), 5)

	res, err := svc.Ask(context.Background(), AskInput{SessionID: 7, Question: "What are the findings?"})
	require.NoError(t, err)

	records := recorder.all()
	require.Len(t, records, 1)
	assert.Equal(t, uint(7), records[0].SessionID)
	assert.Equal(t, "What are the findings?", records[0].Question)
	assert.Equal(t, res.Answer, records[0].Answer)

	logs := runLogs.all()
	require.Len(t, logs, 1)
	assert.Equal(t, string(StrategyFullRAG), logs[0].Strategy)
	assert.Nil(t, logs[0].Error)
}

func TestAsk_RunLogCapturesErrors(t *testing.T) {
	registry := newFakeRegistry(indexedDoc(1, 7, "paper.pdf"))
	runLogs := &fakeRunLogs{}
	svc := NewQueryService(registry, chunkstore.NewMemoryStore(),
		&fakeEmbedder{err: fmt.Errorf("embedding service down")}, &fakeCompleter{},
		nil, runLogs, zap.NewNop(), 5)

	_, err := svc.Ask(context.Background(), AskInput{SessionID: 7, Question: "What dataset was used?"})
	require.Error(t, err)

	logs := runLogs.all()
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].Error)
	assert.Contains(t, *logs[0].Error, "embed question")
}
