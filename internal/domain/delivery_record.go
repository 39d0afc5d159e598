package domain

import "time"

// DeliveryStatus is the outcome of one processing attempt.
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "Delivered"
	DeliveryFailed    DeliveryStatus = "Failed"
)

func (s DeliveryStatus) String() string { return string(s) }

// UnknownApplication is logged when the job body could not be decoded far
// enough to read its application id.
const UnknownApplication = "unknown"

// DeliveryRecord is an immutable audit entry for a single attempt. A job that
// is redelivered produces one record per attempt.
type DeliveryRecord struct {
	ApplicationID string
	Timestamp     time.Time
	Status        DeliveryStatus
	Payload       string
	Error         string
}
