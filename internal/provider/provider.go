package provider

import (
	"context"
	"fmt"
)

// EmailSender delivers one email on behalf of an application's sender
// identity and returns the provider's message id.
type EmailSender interface {
	SendEmail(ctx context.Context, senderIdentity string, recipients []string, subject string, body string) (string, error)
}

// TopicPublisher publishes one SMS or push message to an application's
// notification topic. An empty subject is omitted.
type TopicPublisher interface {
	Publish(ctx context.Context, topic string, subject string, body string) (string, error)
}

// Gateway is the outbound delivery port used by the dispatcher.
type Gateway interface {
	EmailSender
	TopicPublisher
}

type composite struct {
	EmailSender
	TopicPublisher
}

// Compose joins independent email and publish backends into a Gateway.
func Compose(email EmailSender, publisher TopicPublisher) (Gateway, error) {
	if email == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("topic publisher is required")
	}
	return composite{EmailSender: email, TopicPublisher: publisher}, nil
}
