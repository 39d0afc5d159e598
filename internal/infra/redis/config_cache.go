package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/yantech/notify-dispatcher/internal/domain"
	"github.com/yantech/notify-dispatcher/internal/repository"
	"go.uber.org/zap"
)

const configCacheKeyPrefix = "dispatcher:appconfig"

var _ repository.ConfigResolver = (*CachedConfigResolver)(nil)

type cachedConfig struct {
	ApplicationID       string `json:"applicationId"`
	EmailSenderIdentity string `json:"emailSenderIdentity"`
	NotificationTopic   string `json:"notificationTopic"`
	Status              string `json:"status"`
}

// CachedConfigResolver is a read-through cache in front of another resolver.
// Only found configurations are cached, so a newly registered application is
// picked up on the next job. Cache failures fall back to the wrapped resolver.
type CachedConfigResolver struct {
	next   repository.ConfigResolver
	client *goredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedConfigResolver(next repository.ConfigResolver, client *goredis.Client, ttl time.Duration, logger *zap.Logger) (*CachedConfigResolver, error) {
	if next == nil {
		return nil, fmt.Errorf("config resolver is required")
	}
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CachedConfigResolver{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (c *CachedConfigResolver) Resolve(ctx context.Context, applicationID string) (*domain.ApplicationConfig, error) {
	key := configCacheKey(applicationID)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedConfig
		if decodeErr := json.Unmarshal(raw, &cached); decodeErr == nil {
			return &domain.ApplicationConfig{
				ApplicationID:       cached.ApplicationID,
				EmailSenderIdentity: cached.EmailSenderIdentity,
				NotificationTopic:   cached.NotificationTopic,
				Status:              domain.ParseApplicationStatus(cached.Status),
			}, nil
		}
		c.logger.Warn("discarding undecodable cached config", zap.String("application", applicationID))
	case errors.Is(err, goredis.Nil):
	default:
		c.logger.Warn("config cache read failed", zap.String("application", applicationID), zap.Error(err))
	}

	cfg, err := c.next.Resolve(ctx, applicationID)
	if err != nil || cfg == nil {
		return cfg, err
	}

	c.store(ctx, key, cfg)
	return cfg, nil
}

// Invalidate drops the cached configuration of one application.
func (c *CachedConfigResolver) Invalidate(ctx context.Context, applicationID string) error {
	if err := c.client.Del(ctx, configCacheKey(applicationID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate config cache: %w", err)
	}
	return nil
}

func (c *CachedConfigResolver) store(ctx context.Context, key string, cfg *domain.ApplicationConfig) {
	raw, err := json.Marshal(cachedConfig{
		ApplicationID:       cfg.ApplicationID,
		EmailSenderIdentity: cfg.EmailSenderIdentity,
		NotificationTopic:   cfg.NotificationTopic,
		Status:              cfg.Status.String(),
	})
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("config cache write failed", zap.String("application", cfg.ApplicationID), zap.Error(err))
	}
}

func configCacheKey(applicationID string) string {
	return fmt.Sprintf("%s:%s", configCacheKeyPrefix, applicationID)
}
