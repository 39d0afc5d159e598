package health

import (
	"sync"
	"time"
)

const StatusHealthy = "healthy"

// Snapshot is a consistent, point-in-time view of the worker's health state.
type Snapshot struct {
	Status                 string     `json:"status"`
	UptimeSeconds          float64    `json:"uptimeSeconds"`
	MessagesProcessed      int64      `json:"messagesProcessed"`
	ErrorsCount            int64      `json:"errorsCount"`
	DLQMessagesCount       int        `json:"dlqMessagesCount"`
	LastMessageProcessedAt *time.Time `json:"lastMessageProcessedAt"`
	Timestamp              time.Time  `json:"timestamp"`
}

// Recorder holds process-local counters read by the health probe. It is safe
// for concurrent use.
type Recorder struct {
	mu sync.Mutex

	startTime         time.Time
	messagesProcessed int64
	errorsCount       int64
	dlqMessagesCount  int
	lastProcessedAt   time.Time
}

func NewRecorder(startTime time.Time) *Recorder {
	return &Recorder{startTime: startTime.UTC()}
}

func (r *Recorder) RecordProcessed(at time.Time) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.messagesProcessed++
	r.lastProcessedAt = at.UTC()
}

func (r *Recorder) RecordError() {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.errorsCount++
}

func (r *Recorder) SetDeadLetterDepth(depth int) {
	if r == nil {
		return
	}
	if depth < 0 {
		depth = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.dlqMessagesCount = depth
}

// Snapshot copies every field under a single lock so readers never observe a
// partially applied update.
func (r *Recorder) Snapshot(now time.Time) Snapshot {
	now = now.UTC()
	if r == nil {
		return Snapshot{Status: StatusHealthy, Timestamp: now}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := Snapshot{
		Status:            StatusHealthy,
		UptimeSeconds:     now.Sub(r.startTime).Seconds(),
		MessagesProcessed: r.messagesProcessed,
		ErrorsCount:       r.errorsCount,
		DLQMessagesCount:  r.dlqMessagesCount,
		Timestamp:         now,
	}
	if snapshot.UptimeSeconds < 0 {
		snapshot.UptimeSeconds = 0
	}
	if !r.lastProcessedAt.IsZero() {
		last := r.lastProcessedAt
		snapshot.LastMessageProcessedAt = &last
	}

	return snapshot
}
