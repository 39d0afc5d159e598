package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// SQSReceiver long-polls an SQS queue. Redrive to the dead-letter queue is
// configured on the queue itself; the receiver only withholds DeleteMessage
// for failed jobs.
type SQSReceiver struct {
	client   sqsAPI
	queueURL string
	dlqURL   string
	now      func() time.Time
}

func NewSQSReceiver(client *sqs.Client, queueURL string, dlqURL string) (*SQSReceiver, error) {
	if client == nil {
		return nil, fmt.Errorf("sqs client is required")
	}
	return newSQSReceiver(client, queueURL, dlqURL)
}

func newSQSReceiver(client sqsAPI, queueURL string, dlqURL string) (*SQSReceiver, error) {
	if strings.TrimSpace(queueURL) == "" {
		return nil, fmt.Errorf("sqs queue url is required")
	}

	return &SQSReceiver{
		client:   client,
		queueURL: queueURL,
		dlqURL:   strings.TrimSpace(dlqURL),
		now:      time.Now,
	}, nil
}

func (r *SQSReceiver) Receive(ctx context.Context, maxMessages int, wait time.Duration) ([]Message, error) {
	out, err := r.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(r.queueURL),
		MaxNumberOfMessages: int32(ClampBatch(maxMessages)),
		WaitTimeSeconds:     int32(ClampWait(wait) / time.Second),
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive from sqs: %w", err)
	}

	receivedAt := r.now().UTC()
	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, Message{
			ID:            aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Body:          []byte(aws.ToString(m.Body)),
			ReceiveCount:  receiveCount(m.Attributes),
			ReceivedAt:    receivedAt,
		})
	}
	return messages, nil
}

func (r *SQSReceiver) Ack(ctx context.Context, msg Message) error {
	if msg.ReceiptHandle == "" {
		return fmt.Errorf("receipt handle is required")
	}

	_, err := r.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(r.queueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete sqs message %q: %w", msg.ID, err)
	}
	return nil
}

// DeadLetterDepth returns ApproximateNumberOfMessages of the configured DLQ,
// or zero when no DLQ URL is set.
func (r *SQSReceiver) DeadLetterDepth(ctx context.Context) (int, error) {
	if r.dlqURL == "" {
		return 0, nil
	}

	out, err := r.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(r.dlqURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read dlq attributes: %w", err)
	}

	raw := out.Attributes[string(types.QueueAttributeNameApproximateNumberOfMessages)]
	if raw == "" {
		return 0, nil
	}
	depth, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid dlq depth %q: %w", raw, err)
	}
	return depth, nil
}

func (r *SQSReceiver) Ping(ctx context.Context) error {
	_, err := r.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(r.queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return fmt.Errorf("sqs queue unreachable: %w", err)
	}
	return nil
}

func (r *SQSReceiver) Close() error {
	return nil
}

func receiveCount(attributes map[string]string) int {
	raw, ok := attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]
	if !ok {
		return 0
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return count
}
