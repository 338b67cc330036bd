package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"paperqa/internal/ai"
	"paperqa/internal/chunkstore"
	"paperqa/internal/model"
)

const groundedSystemPrompt = `You are a scientific research assistant. Answer the user's question using ONLY the numbered excerpts provided below. Do not use outside knowledge.

Rules:
1. Base every claim on the excerpts. Do not invent facts, numbers or references.
2. If the excerpts do not contain enough information to answer, reply with exactly: "I cannot answer based on the provided documents."
3. Be concise and factual.`

// AskInput is one question against a session's indexed documents.
type AskInput struct {
	SessionID uint
	Question  string
	Sources   []string
	TopK      int
}

// AskResult is the answer plus its provenance.
type AskResult struct {
	Answer    string
	Citations []model.Citation
	Strategy  Strategy
}

// QueryService routes questions to an answer strategy and keeps every answer
// grounded in retrieved chunk text.
type QueryService struct {
	docs     DocumentRegistry
	store    chunkstore.Store
	embedder Embedder
	llm      Completer
	recorder AnswerRecorder // optional
	runLogs  RunLogRecorder // optional
	log      *zap.Logger
	topK     int
}

func NewQueryService(
	docs DocumentRegistry,
	store chunkstore.Store,
	embedder Embedder,
	llm Completer,
	recorder AnswerRecorder,
	runLogs RunLogRecorder,
	log *zap.Logger,
	topK int,
) *QueryService {
	if topK <= 0 {
		topK = 5
	}
	return &QueryService{
		docs:     docs,
		store:    store,
		embedder: embedder,
		llm:      llm,
		recorder: recorder,
		runLogs:  runLogs,
		log:      log,
		topK:     topK,
	}
}

// Ask answers one question. The strategy is chosen up front; metadata
// strategies never touch the language model, and a question the context
// cannot support gets the refusal answer rather than a guess.
func (s *QueryService) Ask(ctx context.Context, in AskInput) (*AskResult, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question must not be empty", ErrInvalidInput)
	}

	targets, err := s.resolveTargets(in.SessionID, in.Sources)
	if err != nil {
		return nil, err
	}

	topK := in.TopK
	if topK <= 0 {
		topK = s.topK
	}

	started := time.Now()
	strategy := ClassifyQuestion(question)
	result, err := s.execute(ctx, strategy, question, in.SessionID, targets, topK)
	s.recordRunLog(in.SessionID, question, result, err, time.Since(started))
	if err != nil {
		return nil, err
	}

	s.recordAnswer(ctx, in.SessionID, question, result)
	return result, nil
}

// resolveTargets validates the requested sources against the registry and
// returns the indexed documents the query may read from.
func (s *QueryService) resolveTargets(sessionID uint, sources []string) ([]model.Document, error) {
	if len(sources) > 0 {
		targets := make([]model.Document, 0, len(sources))
		for _, source := range sources {
			doc, err := s.docs.GetBySessionAndFilename(sessionID, source)
			if err != nil {
				return nil, infraErr("load document", err)
			}
			if doc == nil {
				return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, source)
			}
			if doc.Status != model.StatusIndexed {
				return nil, fmt.Errorf("%w: %s is %s", ErrDocumentNotIndexed, source, doc.Status)
			}
			targets = append(targets, *doc)
		}
		return targets, nil
	}

	targets, err := s.docs.ListBySessionIDAndStatus(sessionID, model.StatusIndexed)
	if err != nil {
		return nil, infraErr("list indexed documents", err)
	}
	if len(targets) == 0 {
		return nil, ErrNoIndexedDocuments
	}
	return targets, nil
}

func (s *QueryService) execute(
	ctx context.Context,
	strategy Strategy,
	question string,
	sessionID uint,
	targets []model.Document,
	topK int,
) (*AskResult, error) {
	switch strategy {
	case StrategyMetadataTitle:
		if res := s.answerTitle(targets); res != nil {
			return res, nil
		}
	case StrategyMetadataPageCount:
		if res := s.answerPageCount(targets); res != nil {
			return res, nil
		}
	case StrategyOverview:
		return s.answerOverview(ctx, question, sessionID, targets, topK)
	}
	// Metadata strategies fall through here when the registry has nothing to
	// say, so the question still gets a retrieval-backed attempt.
	return s.answerFullRAG(ctx, question, sessionID, targets, topK)
}

// answerTitle is registry-only: zero embedding and zero completion calls.
// It returns nil when no target has a title, signalling a fallback.
func (s *QueryService) answerTitle(targets []model.Document) *AskResult {
	var lines []string
	for _, doc := range targets {
		if doc.Title == nil || strings.TrimSpace(*doc.Title) == "" {
			continue
		}
		if len(targets) == 1 {
			lines = append(lines, fmt.Sprintf("The title of %s is %q.", doc.Filename, *doc.Title))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %q", doc.Filename, *doc.Title))
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return &AskResult{
		Answer:    strings.Join(lines, "\n"),
		Citations: []model.Citation{},
		Strategy:  StrategyMetadataTitle,
	}
}

// answerPageCount mirrors answerTitle for the page_count field.
func (s *QueryService) answerPageCount(targets []model.Document) *AskResult {
	var lines []string
	for _, doc := range targets {
		if doc.PageCount == nil {
			continue
		}
		if len(targets) == 1 {
			lines = append(lines, fmt.Sprintf("%s has %d pages.", doc.Filename, *doc.PageCount))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %d pages", doc.Filename, *doc.PageCount))
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return &AskResult{
		Answer:    strings.Join(lines, "\n"),
		Citations: []model.Citation{},
		Strategy:  StrategyMetadataPageCount,
	}
}

// answerOverview seeds the context with every abstract chunk of the target
// documents, then tops it up with the best-matching body chunks.
func (s *QueryService) answerOverview(
	ctx context.Context,
	question string,
	sessionID uint,
	targets []model.Document,
	topK int,
) (*AskResult, error) {
	var contextChunks []chunkstore.Chunk
	for _, doc := range targets {
		abstracts, err := s.store.ListSection(ctx, sessionID, doc.Filename, chunkstore.SectionAbstract)
		if err != nil {
			return nil, infraErr("load abstract chunks", err)
		}
		contextChunks = append(contextChunks, abstracts...)
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, infraErr("embed question", err)
	}
	scored, err := s.store.Search(ctx, sessionID, vector, topK, &chunkstore.Filter{
		Sources: sourceNames(targets),
		Section: chunkstore.SectionBody,
	})
	if err != nil {
		return nil, infraErr("search chunks", err)
	}
	for _, sc := range scored {
		contextChunks = append(contextChunks, sc.Chunk)
	}

	return s.complete(ctx, StrategyOverview, question, contextChunks)
}

func (s *QueryService) answerFullRAG(
	ctx context.Context,
	question string,
	sessionID uint,
	targets []model.Document,
	topK int,
) (*AskResult, error) {
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, infraErr("embed question", err)
	}
	scored, err := s.store.Search(ctx, sessionID, vector, topK, &chunkstore.Filter{
		Sources: sourceNames(targets),
	})
	if err != nil {
		return nil, infraErr("search chunks", err)
	}

	contextChunks := make([]chunkstore.Chunk, 0, len(scored))
	for _, sc := range scored {
		contextChunks = append(contextChunks, sc.Chunk)
	}
	return s.complete(ctx, StrategyFullRAG, question, contextChunks)
}

// complete assembles the grounded prompt and calls the language model. An
// empty context short-circuits to the refusal answer without a model call.
func (s *QueryService) complete(
	ctx context.Context,
	strategy Strategy,
	question string,
	contextChunks []chunkstore.Chunk,
) (*AskResult, error) {
	if len(contextChunks) == 0 {
		return &AskResult{
			Answer:    RefusalAnswer,
			Citations: []model.Citation{},
			Strategy:  strategy,
		}, nil
	}

	var sb strings.Builder
	sb.WriteString("Excerpts:\n")
	for i, c := range contextChunks {
		fmt.Fprintf(&sb, "[%d] (%s, page %d)\n%s\n\n", i+1, c.Source, c.Page, c.Text)
	}
	fmt.Fprintf(&sb, "Question: %s", question)

	answer, err := s.llm.Complete(ctx, []ai.ChatMessage{
		{Role: "system", Content: groundedSystemPrompt},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return nil, infraErr("chat completion", err)
	}

	answer = strings.TrimSpace(answer)
	citations := BuildCitations(contextChunks)
	if answer == RefusalAnswer {
		citations = []model.Citation{}
	}
	return &AskResult{Answer: answer, Citations: citations, Strategy: strategy}, nil
}

// recordAnswer hands the answer off to asynchronous persistence. Failures
// are logged and swallowed so they never cost the caller the answer.
func (s *QueryService) recordAnswer(ctx context.Context, sessionID uint, question string, result *AskResult) {
	if s.recorder == nil {
		return
	}
	rec := AnswerRecord{
		SessionID: sessionID,
		Question:  question,
		Answer:    result.Answer,
		Citations: result.Citations,
		AskedAt:   time.Now(),
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.log.Error("record answer failed", zap.Uint("session_id", sessionID), zap.Error(err))
	}
}

func (s *QueryService) recordRunLog(sessionID uint, question string, result *AskResult, askErr error, took time.Duration) {
	if s.runLogs == nil {
		return
	}
	runLog := &model.RunLog{
		SessionID: sessionID,
		Question:  question,
		LatencyMs: took.Milliseconds(),
	}
	if result != nil {
		runLog.Strategy = string(result.Strategy)
		runLog.ChunkCount = citationChunkCount(result.Citations)
		runLog.SetSources(citationSources(result.Citations))
	}
	if askErr != nil {
		msg := askErr.Error()
		runLog.Error = &msg
	}
	if err := s.runLogs.Create(runLog); err != nil {
		s.log.Error("record run log failed", zap.Uint("session_id", sessionID), zap.Error(err))
	}
}

func sourceNames(targets []model.Document) []string {
	names := make([]string, len(targets))
	for i, doc := range targets {
		names[i] = doc.Filename
	}
	return names
}

func citationChunkCount(citations []model.Citation) int {
	total := 0
	for _, c := range citations {
		total += c.Count
	}
	return total
}

func citationSources(citations []model.Citation) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, c := range citations {
		if _, ok := seen[c.Source]; ok {
			continue
		}
		seen[c.Source] = struct{}{}
		sources = append(sources, c.Source)
	}
	return sources
}
