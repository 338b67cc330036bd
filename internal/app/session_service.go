package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"paperqa/internal/cache"
	"paperqa/internal/chunkstore"
	"paperqa/internal/model"
	"paperqa/internal/repository"
)

// SessionInfo is a session row decorated with its document count.
type SessionInfo struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	DocumentCount int64     `json:"document_count"`
}

// SessionService owns session and document registry operations: creation,
// listing, upload registration and the cascade delete that keeps the
// relational registry and the chunk store consistent.
type SessionService struct {
	sessions  *repository.SessionRepository
	documents *repository.DocumentRepository
	questions *repository.QuestionRepository
	answers   *repository.AnswerRepository
	store     chunkstore.Store
	history   *cache.HistoryCache
	log       *zap.Logger
}

func NewSessionService(
	sessions *repository.SessionRepository,
	documents *repository.DocumentRepository,
	questions *repository.QuestionRepository,
	answers *repository.AnswerRepository,
	store chunkstore.Store,
	history *cache.HistoryCache,
	log *zap.Logger,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		documents: documents,
		questions: questions,
		answers:   answers,
		store:     store,
		history:   history,
		log:       log,
	}
}

func (s *SessionService) Create(ctx context.Context, name string) (*model.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: session name must not be empty", ErrInvalidInput)
	}

	existing, err := s.sessions.GetByName(name)
	if err != nil {
		return nil, infraErr("load session", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, name)
	}

	session := &model.Session{Name: name}
	if err := s.sessions.Create(session); err != nil {
		return nil, infraErr("create session", err)
	}
	s.log.Info("session created", zap.Uint("session_id", session.ID), zap.String("name", name))
	return session, nil
}

func (s *SessionService) List(ctx context.Context) ([]SessionInfo, error) {
	sessions, err := s.sessions.List()
	if err != nil {
		return nil, infraErr("list sessions", err)
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		count, err := s.documents.CountBySessionID(session.ID)
		if err != nil {
			return nil, infraErr("count session documents", err)
		}
		infos = append(infos, SessionInfo{
			ID:            session.ID,
			Name:          session.Name,
			CreatedAt:     session.CreatedAt,
			DocumentCount: count,
		})
	}
	return infos, nil
}

func (s *SessionService) GetByName(ctx context.Context, name string) (*model.Session, error) {
	session, err := s.sessions.GetByName(name)
	if err != nil {
		return nil, infraErr("load session", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	return session, nil
}

// Delete removes a session and everything scoped to it: answers, questions,
// documents, the chunk collection and the cached history. Chunks go first so
// a partial failure never leaves orphaned vectors behind a deleted registry.
func (s *SessionService) Delete(ctx context.Context, name string) error {
	session, err := s.GetByName(ctx, name)
	if err != nil {
		return err
	}

	if err := s.store.DeleteCollection(ctx, session.ID); err != nil {
		return infraErr("delete chunk collection", err)
	}

	questionIDs, err := s.answers.QuestionIDsBySessionID(session.ID)
	if err != nil {
		return infraErr("list session questions", err)
	}
	if err := s.answers.DeleteByQuestionIDs(questionIDs); err != nil {
		return infraErr("delete session answers", err)
	}
	if err := s.questions.DeleteBySessionID(session.ID); err != nil {
		return infraErr("delete session questions", err)
	}
	if err := s.documents.DeleteBySessionID(session.ID); err != nil {
		return infraErr("delete session documents", err)
	}
	if err := s.sessions.DeleteByID(session.ID); err != nil {
		return infraErr("delete session", err)
	}

	if s.history != nil {
		if err := s.history.Invalidate(ctx, session.ID); err != nil {
			s.log.Warn("invalidate history cache failed",
				zap.Uint("session_id", session.ID), zap.Error(err))
		}
	}
	s.log.Info("session deleted", zap.Uint("session_id", session.ID), zap.String("name", name))
	return nil
}

// RegisterUpload records a new document in UPLOADED state. An existing
// document under the same filename is a conflict unless its last ingestion
// failed or never ran, in which case the row is reset and reused.
func (s *SessionService) RegisterUpload(ctx context.Context, sessionName, filename string) (*model.Document, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: filename must not be empty", ErrInvalidInput)
	}

	session, err := s.GetByName(ctx, sessionName)
	if err != nil {
		return nil, err
	}

	existing, err := s.documents.GetBySessionAndFilename(session.ID, filename)
	if err != nil {
		return nil, infraErr("load document", err)
	}
	if existing != nil {
		if existing.Status == model.StatusIndexed || existing.Status == model.StatusProcessing {
			return nil, fmt.Errorf("%w: %s is %s", ErrDocumentExists, filename, existing.Status)
		}
		// FAILED or stale UPLOADED: drop whatever chunks the old attempt
		// left and reuse the row for the fresh upload.
		if err := s.store.DeleteDocument(ctx, session.ID, filename); err != nil {
			return nil, infraErr("delete stale chunks", err)
		}
		if err := s.documents.UpdateStatus(existing.ID, model.StatusUploaded, nil, nil, nil); err != nil {
			return nil, infraErr("reset document status", err)
		}
		if err := s.documents.UpdateMetadata(existing.ID, nil, nil, nil); err != nil {
			return nil, infraErr("reset document metadata", err)
		}
		existing.Status = model.StatusUploaded
		existing.Title, existing.Abstract, existing.PageCount = nil, nil, nil
		existing.ErrorMessage = nil
		return existing, nil
	}

	doc := &model.Document{
		SessionID:  session.ID,
		Filename:   filename,
		UploadedAt: time.Now(),
		Status:     model.StatusUploaded,
	}
	if err := s.documents.Create(doc); err != nil {
		return nil, infraErr("create document", err)
	}
	s.log.Info("document registered",
		zap.Uint("session_id", session.ID), zap.Uint("document_id", doc.ID), zap.String("filename", filename))
	return doc, nil
}

func (s *SessionService) ListDocuments(ctx context.Context, sessionName string) ([]model.Document, error) {
	session, err := s.GetByName(ctx, sessionName)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.ListBySessionID(session.ID)
	if err != nil {
		return nil, infraErr("list documents", err)
	}
	return docs, nil
}

func (s *SessionService) GetDocument(ctx context.Context, documentID uint) (*model.Document, error) {
	doc, err := s.documents.GetByID(documentID)
	if err != nil {
		return nil, infraErr("load document", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: id %d", ErrDocumentNotFound, documentID)
	}
	return doc, nil
}

// DeleteDocument removes a document's chunks first, then its registry row.
// When the chunk delete fails the registry row survives, so the document
// stays visible and the delete can be retried.
func (s *SessionService) DeleteDocument(ctx context.Context, sessionName, filename string) error {
	session, err := s.GetByName(ctx, sessionName)
	if err != nil {
		return err
	}
	doc, err := s.documents.GetBySessionAndFilename(session.ID, filename)
	if err != nil {
		return infraErr("load document", err)
	}
	if doc == nil {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, filename)
	}
	if doc.Status == model.StatusProcessing {
		return fmt.Errorf("%w: %s is being processed", ErrIngestConflict, filename)
	}

	if err := s.store.DeleteDocument(ctx, session.ID, filename); err != nil {
		return infraErr("delete document chunks", err)
	}
	if err := s.documents.DeleteByID(doc.ID); err != nil {
		// Chunks are already gone; the row just points at nothing searchable.
		s.log.Error("delete document row failed after chunk delete",
			zap.Uint("document_id", doc.ID), zap.Error(err))
		return infraErr("delete document", err)
	}
	s.log.Info("document deleted",
		zap.Uint("session_id", session.ID), zap.String("filename", filename))
	return nil
}

// History returns the session's recent question/answer pairs, newest first,
// served from Redis when fresh.
func (s *SessionService) History(ctx context.Context, sessionName string, limit int) ([]cache.Entry, error) {
	session, err := s.GetByName(ctx, sessionName)
	if err != nil {
		return nil, err
	}

	if s.history != nil {
		entries, hit, err := s.history.GetHistory(ctx, session.ID)
		if err != nil {
			s.log.Warn("history cache read failed", zap.Uint("session_id", session.ID), zap.Error(err))
		} else if hit {
			return entries, nil
		}
	}

	questions, err := s.questions.ListBySessionID(session.ID, limit)
	if err != nil {
		return nil, infraErr("list questions", err)
	}
	questionIDs := make([]uint, len(questions))
	for i, q := range questions {
		questionIDs[i] = q.ID
	}
	answers, err := s.answers.ListByQuestionIDs(questionIDs)
	if err != nil {
		return nil, infraErr("list answers", err)
	}
	answerByQuestion := make(map[uint]model.Answer, len(answers))
	for _, a := range answers {
		answerByQuestion[a.QuestionID] = a
	}

	entries := make([]cache.Entry, 0, len(questions))
	for _, q := range questions {
		entry := cache.Entry{
			QuestionID: q.ID,
			Question:   q.Text,
			AskedAt:    q.CreatedAt,
			Citations:  []model.Citation{},
		}
		if a, ok := answerByQuestion[q.ID]; ok {
			entry.Answer = a.Text
			if citations := a.CitationList(); citations != nil {
				entry.Citations = citations
			}
		}
		entries = append(entries, entry)
	}

	if s.history != nil {
		if err := s.history.SetHistory(ctx, session.ID, entries); err != nil {
			s.log.Warn("history cache write failed", zap.Uint("session_id", session.ID), zap.Error(err))
		}
	}
	return entries, nil
}
