package queue

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQReceiver adapts a push-style consumer to the batch Receive/Ack
// contract. Deliveries that are still unacknowledged when the next batch is
// requested are requeued, which mirrors an SQS visibility timeout expiring.
type RabbitMQReceiver struct {
	client   *RabbitMQ
	prefetch int
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
	pending    map[uint64]amqp.Delivery
}

func NewRabbitMQReceiver(client *RabbitMQ, prefetch int, logger *zap.Logger) *RabbitMQReceiver {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RabbitMQReceiver{
		client:   client,
		prefetch: ClampBatch(prefetch),
		logger:   logger,
		now:      time.Now,
		pending:  make(map[uint64]amqp.Delivery),
	}
}

func (r *RabbitMQReceiver) Receive(ctx context.Context, maxMessages int, wait time.Duration) ([]Message, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("receiver is not initialized")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureConsumer(ctx); err != nil {
		return nil, err
	}
	r.releasePending()

	maxMessages = ClampBatch(maxMessages)
	messages := make([]Message, 0, maxMessages)

	timer := time.NewTimer(ClampWait(wait))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return messages, nil
	case <-timer.C:
		return messages, nil
	case d, ok := <-r.deliveries:
		if !ok {
			r.resetConsumer()
			return nil, fmt.Errorf("delivery channel closed")
		}
		messages = append(messages, r.track(d))
	}

	for len(messages) < maxMessages {
		select {
		case d, ok := <-r.deliveries:
			if !ok {
				r.resetConsumer()
				return messages, nil
			}
			messages = append(messages, r.track(d))
		default:
			return messages, nil
		}
	}

	return messages, nil
}

func (r *RabbitMQReceiver) Ack(ctx context.Context, msg Message) error {
	tag, err := strconv.ParseUint(msg.ReceiptHandle, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid receipt handle %q: %w", msg.ReceiptHandle, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.pending[tag]
	if !ok {
		return fmt.Errorf("receipt handle %q is no longer valid", msg.ReceiptHandle)
	}
	delete(r.pending, tag)

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("failed to ack delivery %q: %w", msg.ID, err)
	}
	return nil
}

// DeadLetterDepth reads the message count of the dead-letter queue with a
// passive declare.
func (r *RabbitMQReceiver) DeadLetterDepth(ctx context.Context) (int, error) {
	ch, err := r.client.channel(ctx)
	if err != nil {
		return 0, err
	}
	defer ch.Close() //nolint:errcheck // best-effort channel close

	dlqName := DLQName(r.client.Queue())
	q, err := ch.QueueDeclarePassive(dlqName, true, false, false, false, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect dlq %q: %w", dlqName, err)
	}
	return q.Messages, nil
}

func (r *RabbitMQReceiver) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

func (r *RabbitMQReceiver) Close() error {
	if r == nil || r.client == nil {
		return nil
	}

	r.mu.Lock()
	r.releasePending()
	r.resetConsumer()
	r.mu.Unlock()

	return r.client.Close()
}

func (r *RabbitMQReceiver) ensureConsumer(ctx context.Context) error {
	if r.ch != nil && !r.ch.IsClosed() {
		return nil
	}
	r.resetConsumer()

	ch, err := r.client.channel(ctx)
	if err != nil {
		return err
	}

	if err := ch.Qos(r.prefetch, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		r.client.Queue(),
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to consume queue %q: %w", r.client.Queue(), err)
	}

	r.ch = ch
	r.deliveries = deliveries
	return nil
}

func (r *RabbitMQReceiver) resetConsumer() {
	if r.ch != nil && !r.ch.IsClosed() {
		_ = r.ch.Close()
	}
	r.ch = nil
	r.deliveries = nil
	// Delivery tags are scoped to the channel.
	r.pending = make(map[uint64]amqp.Delivery)
}

func (r *RabbitMQReceiver) releasePending() {
	for tag, d := range r.pending {
		if err := d.Nack(false, true); err != nil {
			r.logger.Warn("failed to requeue unacknowledged delivery",
				zap.Uint64("deliveryTag", tag),
				zap.Error(err),
			)
		}
		delete(r.pending, tag)
	}
}

func (r *RabbitMQReceiver) track(d amqp.Delivery) Message {
	r.pending[d.DeliveryTag] = d

	tag := strconv.FormatUint(d.DeliveryTag, 10)
	id := d.MessageId
	if id == "" {
		id = tag
	}

	return Message{
		ID:            id,
		ReceiptHandle: tag,
		Body:          d.Body,
		ReceiveCount:  deliveryCount(d.Headers) + 1,
		ReceivedAt:    r.now().UTC(),
	}
}

// deliveryCount reads the x-delivery-count header quorum queues attach to
// redelivered messages.
func deliveryCount(headers amqp.Table) int {
	switch v := headers["x-delivery-count"].(type) {
	case int64:
		return int(v)
	case int32:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
