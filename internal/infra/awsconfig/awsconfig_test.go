package awsconfig

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func TestLoadAppliesRegionAndEndpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg, err := Load(context.Background(), "eu-west-1", " http://localhost:4566 ")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Region != "eu-west-1" {
		t.Fatalf("Region = %q, want eu-west-1", cfg.Region)
	}
	if aws.ToString(cfg.BaseEndpoint) != "http://localhost:4566" {
		t.Fatalf("BaseEndpoint = %q, want http://localhost:4566", aws.ToString(cfg.BaseEndpoint))
	}

	clients := NewClients(cfg)
	if clients.SQS == nil || clients.SES == nil || clients.SNS == nil || clients.DynamoDB == nil {
		t.Fatalf("NewClients() = %+v, want all clients set", clients)
	}
}

func TestLoadWithoutEndpointOverride(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_ENDPOINT_URL", "")

	cfg, err := Load(context.Background(), "us-east-1", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseEndpoint != nil {
		t.Fatalf("BaseEndpoint = %q, want nil", aws.ToString(cfg.BaseEndpoint))
	}
}
