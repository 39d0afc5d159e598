package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const charsetUTF8 = "UTF-8"

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESEmailSender sends plain-text email through Amazon SES. The sender
// identity of an application authorizes the shared From address.
type SESEmailSender struct {
	client      sesAPI
	fromAddress string
}

func NewSESEmailSender(client *sesv2.Client, fromAddress string) (*SESEmailSender, error) {
	if client == nil {
		return nil, fmt.Errorf("ses client is required")
	}
	return newSESEmailSender(client, fromAddress)
}

func newSESEmailSender(client sesAPI, fromAddress string) (*SESEmailSender, error) {
	fromAddress = strings.TrimSpace(fromAddress)
	if fromAddress == "" {
		return nil, fmt.Errorf("ses from address is required")
	}
	return &SESEmailSender{client: client, fromAddress: fromAddress}, nil
}

func (s *SESEmailSender) SendEmail(ctx context.Context, senderIdentity string, recipients []string, subject string, body string) (string, error) {
	if len(recipients) == 0 {
		return "", &ProviderError{Message: "at least one recipient is required"}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String(charsetUTF8)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String(charsetUTF8)},
				},
			},
		},
	}
	if isARN(senderIdentity) {
		input.FromEmailAddressIdentityArn = aws.String(senderIdentity)
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return "", wrapAWSError("ses send email", err)
	}
	return aws.ToString(out.MessageId), nil
}

func isARN(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "arn:")
}
