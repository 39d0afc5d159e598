package repository

import (
	"context"

	"github.com/yantech/notify-dispatcher/internal/domain"
)

// ConfigResolver looks up an application's delivery configuration. An unknown
// application yields (nil, nil); errors are reserved for lookup failures.
type ConfigResolver interface {
	Resolve(ctx context.Context, applicationID string) (*domain.ApplicationConfig, error)
}

// DeliveryLog appends one immutable record per delivery attempt.
type DeliveryLog interface {
	Append(ctx context.Context, record domain.DeliveryRecord) error
}
