package queue

import "time"

// Message is one fetched queue entry. ReceiptHandle is opaque to callers and
// is consumed by a single Ack.
type Message struct {
	ID            string
	ReceiptHandle string
	Body          []byte
	ReceiveCount  int
	ReceivedAt    time.Time
}
