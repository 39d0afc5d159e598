package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OutputType represents the delivery channel requested for a job.
type OutputType string

const (
	OutputEmail OutputType = "EMAIL"
	OutputSMS   OutputType = "SMS"
	OutputPush  OutputType = "PUSH"
)

func (t OutputType) String() string { return string(t) }

func (t OutputType) IsValid() bool {
	switch t {
	case OutputEmail, OutputSMS, OutputPush:
		return true
	}
	return false
}

// ParseOutputType normalizes case and surrounding whitespace before matching.
func ParseOutputType(s string) (OutputType, error) {
	t := OutputType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOutputType, s)
	}
	return t, nil
}

// NotificationJob is one unit of work pulled from the queue.
type NotificationJob struct {
	ApplicationID      string
	OutputType         OutputType
	RecipientAddresses []string
	Subject            string
	Message            string
	ReceivedAt         time.Time
}

// jobPayload is the queue wire format written by the intake service.
type jobPayload struct {
	Application    string   `json:"Application"`
	OutputType     string   `json:"OutputType"`
	EmailAddresses []string `json:"EmailAddresses,omitempty"`
	PhoneNumber    string   `json:"PhoneNumber,omitempty"`
	PushToken      string   `json:"PushToken,omitempty"`
	Subject        string   `json:"Subject,omitempty"`
	Message        string   `json:"Message"`
}

// DecodeJob decodes a raw queue body. Only malformed JSON is reported here;
// field-level checks are done by Validate so the application id is still
// available for the delivery log.
func DecodeJob(body []byte, receivedAt time.Time) (*NotificationJob, error) {
	var p jobPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: decode job body: %v", ErrValidation, err)
	}

	job := &NotificationJob{
		ApplicationID: strings.TrimSpace(p.Application),
		OutputType:    OutputType(strings.ToUpper(strings.TrimSpace(p.OutputType))),
		Subject:       p.Subject,
		Message:       p.Message,
		ReceivedAt:    receivedAt,
	}

	switch job.OutputType {
	case OutputEmail:
		job.RecipientAddresses = compactAddresses(p.EmailAddresses)
	case OutputSMS:
		job.RecipientAddresses = compactAddresses([]string{p.PhoneNumber})
	case OutputPush:
		job.RecipientAddresses = compactAddresses([]string{p.PushToken})
	}

	return job, nil
}

// Validate checks the fields required before any configuration lookup.
// Output-type checks are left to routing.
func (j *NotificationJob) Validate() error {
	if j.ApplicationID == "" {
		return fmt.Errorf("%w: Application is required", ErrValidation)
	}
	if strings.TrimSpace(j.Message) == "" {
		return fmt.Errorf("%w: Message is required", ErrValidation)
	}
	return nil
}

// Payload renders the job back into its queue wire format for the delivery log.
func (j *NotificationJob) Payload() string {
	p := jobPayload{
		Application: j.ApplicationID,
		OutputType:  j.OutputType.String(),
		Subject:     j.Subject,
		Message:     j.Message,
	}

	switch j.OutputType {
	case OutputEmail:
		p.EmailAddresses = j.RecipientAddresses
	case OutputSMS:
		p.PhoneNumber = firstAddress(j.RecipientAddresses)
	case OutputPush:
		p.PushToken = firstAddress(j.RecipientAddresses)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(raw)
}

func compactAddresses(addresses []string) []string {
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func firstAddress(addresses []string) string {
	if len(addresses) == 0 {
		return ""
	}
	return addresses[0]
}
