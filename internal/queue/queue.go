package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxBatchSize is the largest batch a single Receive may return.
	MaxBatchSize = 10
	// MaxWait is the longest long-poll wait a single Receive may block for.
	MaxWait = 20 * time.Second
)

// Receiver fetches notification jobs from a queue and removes them once they
// have been delivered. Jobs that are never acknowledged become visible again
// and are eventually moved to the dead-letter queue by the broker.
type Receiver interface {
	Receive(ctx context.Context, maxMessages int, wait time.Duration) ([]Message, error)
	Ack(ctx context.Context, msg Message) error
	Close() error
}

// DeadLetterCounter reports how many messages sit in the dead-letter queue.
type DeadLetterCounter interface {
	DeadLetterDepth(ctx context.Context) (int, error)
}

// Pinger checks broker reachability for readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DLQName returns the dead-letter queue name for a work queue, e.g.
// dlq.notifications.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", strings.ToLower(strings.TrimSpace(queue)))
}

// ClampBatch bounds a requested batch size to 1..MaxBatchSize.
func ClampBatch(maxMessages int) int {
	if maxMessages < 1 {
		return 1
	}
	if maxMessages > MaxBatchSize {
		return MaxBatchSize
	}
	return maxMessages
}

// ClampWait bounds a requested long-poll wait to 0..MaxWait.
func ClampWait(wait time.Duration) time.Duration {
	if wait < 0 {
		return 0
	}
	if wait > MaxWait {
		return MaxWait
	}
	return wait
}
