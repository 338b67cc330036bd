package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"paperqa/internal/chunker"
	"paperqa/internal/chunkstore"
	"paperqa/internal/metadata"
	"paperqa/internal/model"
)

// IngestOptions tunes the ingestion worker pool and pipeline.
type IngestOptions struct {
	Workers        int
	QueueSize      int
	Timeout        time.Duration // 0 disables the per-document timeout
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
}

func (o IngestOptions) withDefaults() IngestOptions {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = chunker.DefaultChunkSize
	}
	if o.ChunkOverlap <= 0 {
		o.ChunkOverlap = chunker.DefaultChunkOverlap
	}
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = 10
	}
	return o
}

type ingestJob struct {
	documentID uint
	path       string
}

// IngestService owns the document lifecycle from upload to searchable.
// A bounded pool of workers drains a bounded job queue; Submit never blocks
// past the enqueue. One document is never processed twice concurrently.
type IngestService struct {
	docs         DocumentRegistry
	store        chunkstore.Store
	embedder     Embedder
	extractPages PageExtractor
	log          *zap.Logger
	opts         IngestOptions

	jobs chan ingestJob

	mu       sync.Mutex
	inflight map[uint]struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestService(
	docs DocumentRegistry,
	store chunkstore.Store,
	embedder Embedder,
	extractPages PageExtractor,
	log *zap.Logger,
	opts IngestOptions,
) *IngestService {
	opts = opts.withDefaults()
	return &IngestService{
		docs:         docs,
		store:        store,
		embedder:     embedder,
		extractPages: extractPages,
		log:          log,
		opts:         opts,
		jobs:         make(chan ingestJob, opts.QueueSize),
		inflight:     make(map[uint]struct{}),
	}
}

// Start launches the worker pool.
func (s *IngestService) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.opts.Workers; i++ {
		s.wg.Add(1)
		go s.processLoop(workerCtx, i)
	}
	s.log.Info("ingestion workers started", zap.Int("workers", s.opts.Workers))
}

// Close stops the workers and waits for in-flight documents to reach a
// terminal status.
func (s *IngestService) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Submit enqueues a document for processing and returns immediately. Only
// documents in UPLOADED or FAILED state are accepted; anything already
// queued or PROCESSING is a conflict.
func (s *IngestService) Submit(ctx context.Context, documentID uint, path string) error {
	doc, err := s.docs.GetByID(documentID)
	if err != nil {
		return infraErr("load document", err)
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if doc.Status != model.StatusUploaded && doc.Status != model.StatusFailed {
		return fmt.Errorf("%w: document %d is %s", ErrIngestConflict, documentID, doc.Status)
	}

	if !s.markInflight(documentID) {
		return fmt.Errorf("%w: document %d", ErrIngestConflict, documentID)
	}

	select {
	case s.jobs <- ingestJob{documentID: documentID, path: path}:
		return nil
	default:
		s.clearInflight(documentID)
		return infraErr("enqueue ingestion", fmt.Errorf("ingestion queue is full"))
	}
}

// Reingest retries a FAILED document from the top of the pipeline: stale
// chunks are deleted, the error is cleared, status returns to UPLOADED and
// the document re-enters the queue.
func (s *IngestService) Reingest(ctx context.Context, documentID uint, path string) error {
	doc, err := s.docs.GetByID(documentID)
	if err != nil {
		return infraErr("load document", err)
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if doc.Status != model.StatusFailed {
		return fmt.Errorf("%w: document %d is %s", ErrNotRetryable, documentID, doc.Status)
	}
	if s.isInflight(documentID) {
		return fmt.Errorf("%w: document %d", ErrIngestConflict, documentID)
	}

	if err := s.store.DeleteDocument(ctx, doc.SessionID, doc.Filename); err != nil {
		return infraErr("delete stale chunks", err)
	}
	if err := s.docs.UpdateStatus(documentID, model.StatusUploaded, nil, nil, nil); err != nil {
		return infraErr("reset document status", err)
	}
	return s.Submit(ctx, documentID, path)
}

func (s *IngestService) processLoop(ctx context.Context, workerID int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.process(ctx, workerID, job)
			s.clearInflight(job.documentID)
		}
	}
}

func (s *IngestService) process(ctx context.Context, workerID int, job ingestJob) {
	doc, err := s.docs.GetByID(job.documentID)
	if err != nil || doc == nil {
		s.log.Error("ingest worker: load document failed",
			zap.Int("worker", workerID), zap.Uint("document_id", job.documentID), zap.Error(err))
		return
	}

	startedAt := time.Now()
	if err := s.docs.UpdateStatus(doc.ID, model.StatusProcessing, &startedAt, nil, nil); err != nil {
		s.log.Error("ingest worker: mark processing failed",
			zap.Uint("document_id", doc.ID), zap.Error(err))
		return
	}
	s.log.Info("ingestion started",
		zap.Int("worker", workerID), zap.Uint("document_id", doc.ID), zap.String("filename", doc.Filename))

	pipelineCtx := ctx
	var cancel context.CancelFunc
	if s.opts.Timeout > 0 {
		pipelineCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	chunkCount, pipelineErr := s.runPipeline(pipelineCtx, doc, job.path)

	completedAt := time.Now()
	if pipelineErr != nil {
		errMsg := pipelineErr.Error()
		if errors.Is(pipelineErr, context.DeadlineExceeded) {
			errMsg = fmt.Sprintf("ingestion timed out after %s", s.opts.Timeout)
		}

		// No partial chunk set may survive a failure.
		if delErr := s.store.DeleteDocument(context.Background(), doc.SessionID, doc.Filename); delErr != nil {
			s.log.Error("ingest worker: rollback chunks failed",
				zap.Uint("document_id", doc.ID), zap.Error(delErr))
		}
		if err := s.docs.UpdateStatus(doc.ID, model.StatusFailed, nil, &completedAt, &errMsg); err != nil {
			s.log.Error("ingest worker: mark failed failed",
				zap.Uint("document_id", doc.ID), zap.Error(err))
		}
		s.log.Warn("ingestion failed",
			zap.Uint("document_id", doc.ID), zap.String("filename", doc.Filename), zap.String("error", errMsg))
		return
	}

	if err := s.docs.UpdateStatus(doc.ID, model.StatusIndexed, nil, &completedAt, nil); err != nil {
		s.log.Error("ingest worker: mark indexed failed",
			zap.Uint("document_id", doc.ID), zap.Error(err))
		return
	}
	s.log.Info("ingestion completed",
		zap.Uint("document_id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.Int("chunks", chunkCount),
		zap.Duration("took", completedAt.Sub(startedAt)))
}

// runPipeline executes extraction, metadata, chunking, embedding and
// indexing, strictly in that order.
func (s *IngestService) runPipeline(ctx context.Context, doc *model.Document, path string) (int, error) {
	pages, err := s.extractPages(path)
	if err != nil {
		return 0, fmt.Errorf("extract pdf text: %w", err)
	}
	if len(pages) == 0 {
		return 0, fmt.Errorf("pdf has no readable pages")
	}

	meta := metadata.Extract(pages)

	chunks := chunker.Split(doc.Filename, pages, meta.Abstract != nil, s.opts.ChunkSize, s.opts.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document has no extractable text")
	}

	if err := s.embedChunks(ctx, chunks); err != nil {
		return 0, err
	}

	if err := s.store.EnsureCollection(ctx, doc.SessionID); err != nil {
		return 0, fmt.Errorf("ensure chunk collection: %w", err)
	}
	if err := s.store.AddChunks(ctx, doc.SessionID, chunks); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}

	if err := s.docs.UpdateMetadata(doc.ID, meta.Title, meta.Abstract, &meta.PageCount); err != nil {
		return 0, fmt.Errorf("persist document metadata: %w", err)
	}
	return len(chunks), nil
}

// embedChunks calls the embedding API in batches to respect provider limits.
func (s *IngestService) embedChunks(ctx context.Context, chunks []chunkstore.Chunk) error {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	batchSize := s.opts.EmbedBatchSize
	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != end-start {
			return fmt.Errorf("embed chunks: got %d vectors for %d texts", len(vectors), end-start)
		}
		for i, vec := range vectors {
			chunks[start+i].Embedding = vec
		}
	}
	return nil
}

func (s *IngestService) markInflight(documentID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[documentID]; ok {
		return false
	}
	s.inflight[documentID] = struct{}{}
	return true
}

func (s *IngestService) clearInflight(documentID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, documentID)
}

func (s *IngestService) isInflight(documentID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[documentID]
	return ok
}
