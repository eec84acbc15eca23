package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// RabbitQueue publishes jobs to a durable queue and consumes them with
// manual acknowledgement.
type RabbitQueue struct {
	url   string
	queue string
	log   zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitQueue(url, queue string, log zerolog.Logger) (*RabbitQueue, error) {
	q := &RabbitQueue{url: url, queue: queue, log: log}
	if err := q.connect(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *RabbitQueue) connect() error {
	conn, err := amqp.Dial(q.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(q.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	q.conn, q.ch = conn, ch
	return nil
}

// Enqueue publishes job as a persistent message, reconnecting once if the
// channel has been closed underneath.
func (q *RabbitQueue) Enqueue(ctx context.Context, job Job) error {
	msg, err := encode(job)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ch == nil || q.ch.IsClosed() {
		if err := q.connect(); err != nil {
			return err
		}
	}
	if err := q.ch.PublishWithContext(ctx, "", q.queue, false, false, msg); err != nil {
		q.log.Error().Err(err).Str("job_id", job.ID).Msg("rabbitmq publish failed")
		return err
	}
	return nil
}

// Consume delivers jobs to d until ctx is cancelled, reconnecting with
// backoff when the broker goes away. Failed jobs are rejected without
// requeue.
func (q *RabbitQueue) Consume(ctx context.Context, d *Dispatcher, prefetch int) error {
	backoff := time.Second
	for {
		err := q.consumeOnce(ctx, d, prefetch)
		if ctx.Err() != nil {
			return nil
		}
		q.log.Warn().Err(err).Dur("retry_in", backoff).Msg("rabbitmq consumer stopped")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (q *RabbitQueue) consumeOnce(ctx context.Context, d *Dispatcher, prefetch int) error {
	conn, err := amqp.Dial(q.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		q.log.Warn().Err(err).Msg("rabbitmq qos failed")
	}
	if _, err := ch.QueueDeclare(q.queue, true, false, false, false, nil); err != nil {
		return err
	}
	deliveries, err := ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case dv, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			job, err := decode(dv.Body)
			if err != nil {
				q.log.Error().Err(err).Msg("rabbitmq: undecodable message")
				_ = dv.Nack(false, false)
				continue
			}
			if err := d.run(ctx, job); err != nil {
				_ = dv.Nack(false, false)
				continue
			}
			_ = dv.Ack(false)
		}
	}
}

func (q *RabbitQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

func encode(job Job) (amqp.Publishing, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode job: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Type:         string(job.Kind),
		Timestamp:    job.EnqueuedAt,
		Body:         body,
	}, nil
}

func decode(body []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	if job.Kind == "" {
		return Job{}, errors.New("decode job: missing kind")
	}
	return job, nil
}
