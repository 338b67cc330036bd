package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"paperqa/internal/app"
	"paperqa/internal/cache"
	"paperqa/internal/model"
	"paperqa/internal/repository"
)

// AnswerPersistWorker drains the answer queue into MySQL. Each record
// becomes one Question row and one Answer row; the session's cached history
// is invalidated afterwards so the next read sees the new pair.
type AnswerPersistWorker struct {
	conn      *amqp.Connection
	questions *repository.QuestionRepository
	answers   *repository.AnswerRepository
	history   *cache.HistoryCache
	queueName string
	log       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAnswerPersistWorker(
	conn *amqp.Connection,
	questions *repository.QuestionRepository,
	answers *repository.AnswerRepository,
	history *cache.HistoryCache,
	queueName string,
	log *zap.Logger,
) *AnswerPersistWorker {
	return &AnswerPersistWorker{
		conn:      conn,
		questions: questions,
		answers:   answers,
		history:   history,
		queueName: queueName,
		log:       log,
	}
}

func (w *AnswerPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var rec app.AnswerRecord
				if err := json.Unmarshal(d.Body, &rec); err != nil {
					w.log.Error("worker decode answer failed", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}

				if err := w.persist(workerCtx, rec); err != nil {
					w.log.Error("worker persist answer failed",
						zap.Uint("session_id", rec.SessionID), zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *AnswerPersistWorker) persist(ctx context.Context, rec app.AnswerRecord) error {
	question := &model.Question{
		SessionID: rec.SessionID,
		Text:      rec.Question,
		CreatedAt: rec.AskedAt,
	}
	if err := w.questions.Create(question); err != nil {
		return err
	}

	answer := &model.Answer{
		QuestionID: question.ID,
		Text:       rec.Answer,
	}
	answer.SetCitations(rec.Citations)
	if err := w.answers.Create(answer); err != nil {
		return err
	}

	if w.history != nil {
		if err := w.history.Invalidate(ctx, rec.SessionID); err != nil {
			w.log.Warn("worker invalidate history failed",
				zap.Uint("session_id", rec.SessionID), zap.Error(err))
		}
	}
	return nil
}

func (w *AnswerPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
