package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultWebhookTimeout = 10 * time.Second

type webhookRequest struct {
	Kind    string   `json:"kind"`
	Sender  string   `json:"sender,omitempty"`
	To      []string `json:"to,omitempty"`
	Topic   string   `json:"topic,omitempty"`
	Subject string   `json:"subject,omitempty"`
	Content string   `json:"content"`
}

// WebhookProvider posts deliveries to a webhook.site-compatible endpoint. It
// serves both gateway operations and is meant for local runs.
type WebhookProvider struct {
	client   *resty.Client
	endpoint string
}

func NewWebhookProvider(endpoint string) (*WebhookProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return NewWebhookProviderWithClient(endpoint, client)
}

func NewWebhookProviderWithClient(endpoint string, client *resty.Client) (*WebhookProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookProvider{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (p *WebhookProvider) SendEmail(ctx context.Context, senderIdentity string, recipients []string, subject string, body string) (string, error) {
	if len(recipients) == 0 {
		return "", &ProviderError{Message: "at least one recipient is required"}
	}

	return p.post(ctx, webhookRequest{
		Kind:    "email",
		Sender:  senderIdentity,
		To:      recipients,
		Subject: subject,
		Content: body,
	})
}

func (p *WebhookProvider) Publish(ctx context.Context, topic string, subject string, body string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", &ProviderError{Message: "topic is required"}
	}

	return p.post(ctx, webhookRequest{
		Kind:    "publish",
		Topic:   topic,
		Subject: subject,
		Content: body,
	})
}

func (p *WebhookProvider) post(ctx context.Context, reqBody webhookRequest) (string, error) {
	if p == nil || p.client == nil {
		return "", fmt.Errorf("provider is not initialized")
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(p.endpoint)
	if err != nil {
		return "", &ProviderError{
			Message:   "provider request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return "", &ProviderError{
			Message:   "provider returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return providerMessageID(response), nil
	}

	return "", &ProviderError{
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func providerMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Request-ID", "X-Request-Id", "X-Correlation-ID", "X-Correlation-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
