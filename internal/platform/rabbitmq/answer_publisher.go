package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"paperqa/internal/app"
)

// AnswerPublisher hands answered questions to the persistence queue so the
// asking request never waits on MySQL writes.
type AnswerPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewAnswerPublisher(conn *amqp.Connection, queueName string) *AnswerPublisher {
	return &AnswerPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *AnswerPublisher) Record(ctx context.Context, rec app.AnswerRecord) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal answer payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish answer failed: %w", err)
	}
	return nil
}
