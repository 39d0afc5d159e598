package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes SMS and push messages to an application's SNS topic.
type SNSPublisher struct {
	client snsAPI
}

func NewSNSPublisher(client *sns.Client) (*SNSPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("sns client is required")
	}
	return newSNSPublisher(client), nil
}

func newSNSPublisher(client snsAPI) *SNSPublisher {
	return &SNSPublisher{client: client}
}

func (p *SNSPublisher) Publish(ctx context.Context, topic string, subject string, body string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", &ProviderError{Message: "topic is required"}
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(topic),
		Message:  aws.String(body),
	}
	if subject != "" {
		input.Subject = aws.String(subject)
	}

	out, err := p.client.Publish(ctx, input)
	if err != nil {
		return "", wrapAWSError("sns publish", err)
	}
	return aws.ToString(out.MessageId), nil
}
