package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseOutputType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    OutputType
		wantErr bool
	}{
		{name: "valid uppercase", input: "EMAIL", want: OutputEmail},
		{name: "valid lowercase with spaces", input: " sms ", want: OutputSMS},
		{name: "mixed case", input: "Push", want: OutputPush},
		{name: "invalid", input: "FAX", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseOutputType(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedOutputType) {
					t.Fatalf("ParseOutputType() error = %v, want ErrUnsupportedOutputType", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseOutputType() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseOutputType() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeJobRecipientsByOutputType(t *testing.T) {
	t.Parallel()

	receivedAt := time.Unix(1_700_000_000, 0).UTC()

	tests := []struct {
		name       string
		body       string
		wantType   OutputType
		wantRcpts  []string
		wantSubjct string
	}{
		{
			name:       "email uses EmailAddresses",
			body:       `{"Application":"acme","OutputType":"EMAIL","EmailAddresses":["a@x.com"," ","b@x.com"],"Subject":"Hi","Message":"Body"}`,
			wantType:   OutputEmail,
			wantRcpts:  []string{"a@x.com", "b@x.com"},
			wantSubjct: "Hi",
		},
		{
			name:      "sms uses PhoneNumber",
			body:      `{"Application":"acme","OutputType":"sms","PhoneNumber":"+1555","Message":"Hi"}`,
			wantType:  OutputSMS,
			wantRcpts: []string{"+1555"},
		},
		{
			name:      "push uses PushToken",
			body:      `{"Application":"acme","OutputType":"Push","PushToken":"tok-1","Message":"Hi"}`,
			wantType:  OutputPush,
			wantRcpts: []string{"tok-1"},
		},
		{
			name:      "unknown type keeps normalized value and no recipients",
			body:      `{"Application":"acme","OutputType":"fax","Message":"Hi"}`,
			wantType:  OutputType("FAX"),
			wantRcpts: []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job, err := DecodeJob([]byte(tt.body), receivedAt)
			if err != nil {
				t.Fatalf("DecodeJob() unexpected error = %v", err)
			}
			if job.OutputType != tt.wantType {
				t.Fatalf("OutputType = %s, want %s", job.OutputType, tt.wantType)
			}
			if len(job.RecipientAddresses) != len(tt.wantRcpts) {
				t.Fatalf("RecipientAddresses = %v, want %v", job.RecipientAddresses, tt.wantRcpts)
			}
			for i := range tt.wantRcpts {
				if job.RecipientAddresses[i] != tt.wantRcpts[i] {
					t.Fatalf("RecipientAddresses[%d] = %q, want %q", i, job.RecipientAddresses[i], tt.wantRcpts[i])
				}
			}
			if job.Subject != tt.wantSubjct {
				t.Fatalf("Subject = %q, want %q", job.Subject, tt.wantSubjct)
			}
			if !job.ReceivedAt.Equal(receivedAt) {
				t.Fatalf("ReceivedAt = %v, want %v", job.ReceivedAt, receivedAt)
			}
		})
	}
}

func TestDecodeJobMalformedBody(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`not-json`, `[1,2]`, `{"Application":`} {
		_, err := DecodeJob([]byte(body), time.Now())
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("DecodeJob(%q) error = %v, want ErrValidation", body, err)
		}
	}
}

func TestNotificationJobValidate(t *testing.T) {
	t.Parallel()

	base := NotificationJob{
		ApplicationID:      "acme",
		OutputType:         OutputSMS,
		RecipientAddresses: []string{"+1555"},
		Message:            "hello",
	}

	tests := []struct {
		name    string
		mutate  func(*NotificationJob)
		wantErr bool
	}{
		{name: "valid job", mutate: func(j *NotificationJob) {}},
		{
			name:    "missing application",
			mutate:  func(j *NotificationJob) { j.ApplicationID = "" },
			wantErr: true,
		},
		{
			name:    "blank message",
			mutate:  func(j *NotificationJob) { j.Message = "   " },
			wantErr: true,
		},
		{
			name:   "unsupported output type is left to routing",
			mutate: func(j *NotificationJob) { j.OutputType = OutputType("FAX") },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			current := base
			tt.mutate(&current)

			err := current.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestNotificationJobPayloadRoundTripsWireKeys(t *testing.T) {
	t.Parallel()

	job := NotificationJob{
		ApplicationID:      "acme",
		OutputType:         OutputSMS,
		RecipientAddresses: []string{"+1555"},
		Message:            "hello",
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(job.Payload()), &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got["Application"] != "acme" {
		t.Fatalf("Application = %v, want acme", got["Application"])
	}
	if got["PhoneNumber"] != "+1555" {
		t.Fatalf("PhoneNumber = %v, want +1555", got["PhoneNumber"])
	}
	if _, ok := got["EmailAddresses"]; ok {
		t.Fatal("EmailAddresses should be omitted for SMS payloads")
	}
}

func TestParseApplicationStatus(t *testing.T) {
	t.Parallel()

	if got := ParseApplicationStatus(""); got != ApplicationActive {
		t.Fatalf("ParseApplicationStatus(\"\") = %s, want ACTIVE", got)
	}
	if got := ParseApplicationStatus(" suspended "); got != ApplicationSuspended {
		t.Fatalf("ParseApplicationStatus(suspended) = %s, want SUSPENDED", got)
	}

	cfg := &ApplicationConfig{Status: ApplicationSuspended}
	if cfg.IsActive() {
		t.Fatal("suspended config should not be active")
	}
}
