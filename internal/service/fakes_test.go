package service

import (
	"context"
	"sync"
	"time"

	"github.com/yantech/notify-dispatcher/internal/domain"
	"github.com/yantech/notify-dispatcher/internal/queue"
)

type fakeResolver struct {
	resolveFn func(ctx context.Context, applicationID string) (*domain.ApplicationConfig, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, applicationID string) (*domain.ApplicationConfig, error) {
	if f.resolveFn != nil {
		return f.resolveFn(ctx, applicationID)
	}
	return nil, nil
}

type fakeGateway struct {
	mu          sync.Mutex
	calls       int
	sendEmailFn func(ctx context.Context, senderIdentity string, recipients []string, subject string, body string) (string, error)
	publishFn   func(ctx context.Context, topic string, subject string, body string) (string, error)
}

func (f *fakeGateway) SendEmail(ctx context.Context, senderIdentity string, recipients []string, subject string, body string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.sendEmailFn != nil {
		return f.sendEmailFn(ctx, senderIdentity, recipients, subject, body)
	}
	return "email-1", nil
}

func (f *fakeGateway) Publish(ctx context.Context, topic string, subject string, body string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.publishFn != nil {
		return f.publishFn(ctx, topic, subject, body)
	}
	return "publish-1", nil
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDeliveryLog struct {
	mu       sync.Mutex
	records  []domain.DeliveryRecord
	appendFn func(ctx context.Context, record domain.DeliveryRecord) error
}

func (f *fakeDeliveryLog) Append(ctx context.Context, record domain.DeliveryRecord) error {
	f.mu.Lock()
	f.records = append(f.records, record)
	f.mu.Unlock()
	if f.appendFn != nil {
		return f.appendFn(ctx, record)
	}
	return nil
}

func (f *fakeDeliveryLog) snapshot() []domain.DeliveryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.DeliveryRecord(nil), f.records...)
}

type fakeRateLimiter struct {
	waitFn func(ctx context.Context, key string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, key string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, key)
	}
	return nil
}

type receiveResult struct {
	messages []queue.Message
	err      error
}

// fakeReceiver replays scripted Receive results and then blocks until ctx is
// done.
type fakeReceiver struct {
	mu       sync.Mutex
	results  []receiveResult
	receives int
	acked    []string
	ackFn    func(ctx context.Context, msg queue.Message) error
	onDrain  func()
}

func (f *fakeReceiver) Receive(ctx context.Context, maxMessages int, wait time.Duration) ([]queue.Message, error) {
	f.mu.Lock()
	f.receives++
	if len(f.results) > 0 {
		next := f.results[0]
		f.results = f.results[1:]
		f.mu.Unlock()
		return next.messages, next.err
	}
	onDrain := f.onDrain
	f.mu.Unlock()

	if onDrain != nil {
		onDrain()
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeReceiver) Ack(ctx context.Context, msg queue.Message) error {
	if f.ackFn != nil {
		if err := f.ackFn(ctx, msg); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, msg.ID)
	return nil
}

func (f *fakeReceiver) Close() error { return nil }

func (f *fakeReceiver) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

type fakeProcessor struct {
	processFn func(ctx context.Context, msg queue.Message) error
}

func (f *fakeProcessor) Process(ctx context.Context, msg queue.Message) error {
	if f.processFn != nil {
		return f.processFn(ctx, msg)
	}
	return nil
}

type fakeDeadLetterCounter struct {
	depthFn func(ctx context.Context) (int, error)
}

func (f *fakeDeadLetterCounter) DeadLetterDepth(ctx context.Context) (int, error) {
	if f.depthFn != nil {
		return f.depthFn(ctx)
	}
	return 0, nil
}
