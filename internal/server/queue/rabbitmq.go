package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/dmitrijs2005/credeval/internal/server/ingest"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Channel is the part of *amqp.Channel the queue uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

const publishTimeout = 5 * time.Second

// RabbitMQ publishes jobs to a durable queue and consumes them with manual
// acknowledgements.
type RabbitMQ struct {
	conn   *amqp.Connection
	ch     Channel
	queue  string
	logger logging.Logger
}

func Dial(url, queue string, logger logging.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open channel: %w", err), conn.Close())
	}

	r, err := NewRabbitMQ(ch, queue, logger)
	if err != nil {
		return nil, multierr.Append(err, conn.Close())
	}
	r.conn = conn
	return r, nil
}

// NewRabbitMQ declares the queue on an open channel.
func NewRabbitMQ(ch Channel, queue string, logger logging.Logger) (*RabbitMQ, error) {
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &RabbitMQ{ch: ch, queue: queue, logger: logger.With("module", "queue")}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = r.ch.PublishWithContext(ctx, "", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.DocumentID,
		Timestamp:    job.EnqueuedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish ingestion job: %w", err)
	}
	r.logger.Debug(ctx, "ingestion job published", "document_id", job.DocumentID)
	return nil
}

// Consume runs handler on up to workers deliveries at a time until ctx is
// cancelled or the channel closes. Failed jobs are rejected without
// requeue; transient failures were already retried by the handler.
func (r *RabbitMQ) Consume(ctx context.Context, workers int, handler Handler) error {
	if workers < 1 {
		workers = 1
	}
	if err := r.ch.Qos(workers, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := r.ch.Consume(r.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case d, ok := <-deliveries:
					if !ok {
						return nil
					}
					r.handle(ctx, d, handler)
				}
			}
		})
	}
	return g.Wait()
}

func (r *RabbitMQ) handle(ctx context.Context, d amqp.Delivery, handler Handler) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil || job.DocumentID == "" {
		r.logger.Warn(ctx, "dropping malformed ingestion job", "body", string(d.Body), "error", err)
		_ = d.Reject(false)
		return
	}

	if err := handler(ctx, job); err != nil {
		requeue := shouldRequeue(err)
		r.logger.Error(ctx, "ingestion job failed", "document_id", job.DocumentID, "requeue", requeue, "error", err)
		if ackErr := d.Nack(false, requeue); ackErr != nil {
			r.logger.Warn(ctx, "nack failed", "document_id", job.DocumentID, "error", ackErr)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		r.logger.Warn(ctx, "ack failed", "document_id", job.DocumentID, "error", err)
	}
}

// shouldRequeue keeps jobs interrupted by shutdown or by a transient fault
// on the queue. Everything else already exhausted its retries.
func shouldRequeue(err error) bool {
	return errors.Is(err, context.Canceled) || ingest.IsTransient(err)
}

func (r *RabbitMQ) Close() error {
	err := r.ch.Close()
	if r.conn != nil {
		err = multierr.Append(err, r.conn.Close())
	}
	return err
}
