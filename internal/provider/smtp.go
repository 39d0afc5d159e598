package provider

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	gomail "github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Encryption  string
	FromAddress string
}

// SMTPEmailSender delivers email through a relay. Applications whose sender
// identity is a plain address send as themselves; others use FromAddress.
type SMTPEmailSender struct {
	config SMTPConfig
	send   func(ctx context.Context, msg *gomail.Msg) error
}

func NewSMTPEmailSender(config SMTPConfig) (*SMTPEmailSender, error) {
	if strings.TrimSpace(config.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(config.FromAddress) == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}

	s := &SMTPEmailSender{config: config}
	s.send = s.dialAndSend
	return s, nil
}

func (s *SMTPEmailSender) SendEmail(ctx context.Context, senderIdentity string, recipients []string, subject string, body string) (string, error) {
	msg, err := s.buildMessage(senderIdentity, recipients, subject, body)
	if err != nil {
		return "", &ProviderError{Message: "invalid email", Cause: err}
	}

	if err := s.send(ctx, msg); err != nil {
		return "", &ProviderError{Message: "smtp delivery failed", Transient: true, Cause: err}
	}
	return msg.GetMessageID(), nil
}

func (s *SMTPEmailSender) buildMessage(senderIdentity string, recipients []string, subject string, body string) (*gomail.Msg, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	m := gomail.NewMsg()
	if err := m.From(s.fromFor(senderIdentity)); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	for _, r := range recipients {
		if err := m.AddTo(r); err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", r, err)
		}
	}

	m.Subject(subject)
	m.SetBodyString(gomail.TypeTextPlain, body)
	m.SetMessageID()

	return m, nil
}

func (s *SMTPEmailSender) fromFor(senderIdentity string) string {
	identity := strings.TrimSpace(senderIdentity)
	if identity != "" && !isARN(identity) {
		if _, err := mail.ParseAddress(identity); err == nil {
			return identity
		}
	}
	return s.config.FromAddress
}

func (s *SMTPEmailSender) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	opts := []gomail.Option{
		gomail.WithPort(s.config.Port),
		gomail.WithTLSPolicy(tlsPolicyFromEncryption(s.config.Encryption)),
	}
	if s.config.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.config.Username),
			gomail.WithPassword(s.config.Password),
		)
	}

	c, err := gomail.NewClient(s.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	return c.DialAndSendWithContext(ctx, msg)
}

func tlsPolicyFromEncryption(enc string) gomail.TLSPolicy {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "ssl_tls":
		return gomail.TLSMandatory
	case "starttls":
		return gomail.TLSOpportunistic
	default:
		return gomail.NoTLS
	}
}
