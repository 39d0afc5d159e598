package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/yantech/notify-dispatcher/internal/domain"
)

type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// applicationItem mirrors a row of the Applications table written by the
// registration service.
type applicationItem struct {
	Application    string `dynamodbav:"Application"`
	SenderIdentity string `dynamodbav:"SES-Domain-ARN"`
	Topic          string `dynamodbav:"SNS-Topic-ARN"`
	Status         string `dynamodbav:"Status,omitempty"`
}

type deliveryLogItem struct {
	Application string `dynamodbav:"Application"`
	Timestamp   string `dynamodbav:"Timestamp"`
	Status      string `dynamodbav:"Status"`
	Payload     string `dynamodbav:"Payload"`
	Error       string `dynamodbav:"Error,omitempty"`
}

var _ ConfigResolver = (*DynamoApplicationRepo)(nil)

type DynamoApplicationRepo struct {
	client dynamoAPI
	table  string
}

func NewDynamoApplicationRepo(client *dynamodb.Client, table string) (*DynamoApplicationRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("dynamodb client is required")
	}
	return newDynamoApplicationRepo(client, table)
}

func newDynamoApplicationRepo(client dynamoAPI, table string) (*DynamoApplicationRepo, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("applications table name is required")
	}
	return &DynamoApplicationRepo{client: client, table: table}, nil
}

func (r *DynamoApplicationRepo) Resolve(ctx context.Context, applicationID string) (*domain.ApplicationConfig, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"Application": &types.AttributeValueMemberS{Value: applicationID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load application %q: %w", applicationID, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item applicationItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to decode application %q: %w", applicationID, err)
	}

	return &domain.ApplicationConfig{
		ApplicationID:       item.Application,
		EmailSenderIdentity: item.SenderIdentity,
		NotificationTopic:   item.Topic,
		Status:              domain.ParseApplicationStatus(item.Status),
	}, nil
}

func (r *DynamoApplicationRepo) Ping(ctx context.Context) error {
	return describeTable(ctx, r.client, r.table)
}

var _ DeliveryLog = (*DynamoDeliveryLogRepo)(nil)

type DynamoDeliveryLogRepo struct {
	client dynamoAPI
	table  string
}

func NewDynamoDeliveryLogRepo(client *dynamodb.Client, table string) (*DynamoDeliveryLogRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("dynamodb client is required")
	}
	return newDynamoDeliveryLogRepo(client, table)
}

func newDynamoDeliveryLogRepo(client dynamoAPI, table string) (*DynamoDeliveryLogRepo, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("request log table name is required")
	}
	return &DynamoDeliveryLogRepo{client: client, table: table}, nil
}

func (r *DynamoDeliveryLogRepo) Append(ctx context.Context, record domain.DeliveryRecord) error {
	item, err := attributevalue.MarshalMap(deliveryLogItem{
		Application: record.ApplicationID,
		Timestamp:   record.Timestamp.UTC().Format(time.RFC3339Nano),
		Status:      record.Status.String(),
		Payload:     record.Payload,
		Error:       record.Error,
	})
	if err != nil {
		return fmt.Errorf("failed to encode delivery log: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to append delivery log: %w", err)
	}
	return nil
}

func describeTable(ctx context.Context, client dynamoAPI, table string) error {
	if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}); err != nil {
		return fmt.Errorf("dynamodb table %q unreachable: %w", table, err)
	}
	return nil
}
