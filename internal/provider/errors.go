package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

// ProviderError classifies provider call failures as transient/permanent.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
	Transient  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 5)
	parts = append(parts, "provider error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether a provider failure is likely to succeed on a
// later redelivery.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// Reason returns a short metrics label for a provider failure.
func Reason(err error) string {
	if err == nil {
		return "none"
	}
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}

var throttlingCodes = map[string]struct{}{
	"Throttling":                             {},
	"ThrottlingException":                    {},
	"ThrottledException":                     {},
	"TooManyRequestsException":               {},
	"RequestLimitExceeded":                   {},
	"ProvisionedThroughputExceededException": {},
	"ServiceUnavailable":                     {},
	"InternalError":                          {},
	"InternalFailure":                        {},
}

// wrapAWSError converts an AWS SDK failure into a ProviderError, keeping the
// HTTP status and API error code for classification.
func wrapAWSError(operation string, err error) error {
	if err == nil {
		return nil
	}

	providerErr := &ProviderError{
		Message: fmt.Sprintf("%s failed", operation),
		Cause:   err,
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		providerErr.StatusCode = respErr.HTTPStatusCode()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		providerErr.Code = apiErr.ErrorCode()
		if apiErr.ErrorFault() == smithy.FaultServer {
			providerErr.Transient = true
		}
	}

	if _, ok := throttlingCodes[providerErr.Code]; ok {
		providerErr.Transient = true
	}
	if isTransientHTTPStatus(providerErr.StatusCode) {
		providerErr.Transient = true
	}
	// Transport failures never reached the service.
	if providerErr.StatusCode == 0 && providerErr.Code == "" {
		providerErr.Transient = !errors.Is(err, context.Canceled)
	}

	return providerErr
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}
