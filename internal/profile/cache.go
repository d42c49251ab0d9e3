package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "confia/pkg/domain"
)

const defaultCacheTTL = 5 * time.Minute

// CachedSource wraps a Source with a Redis read-through cache. Cache
// failures are logged and fall through to the underlying source: a Redis
// outage degrades latency, never correctness.
type CachedSource struct {
	next   Source
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type CachedSourceOption func(*CachedSource)

func WithTTL(ttl time.Duration) CachedSourceOption {
	return func(s *CachedSource) {
		s.ttl = ttl
	}
}

func WithCacheLogger(logger *slog.Logger) CachedSourceOption {
	return func(s *CachedSource) {
		s.logger = logger
	}
}

func NewCachedSource(next Source, client *redis.Client, opts ...CachedSourceOption) *CachedSource {
	s := &CachedSource{
		next:   next,
		client: client,
		ttl:    defaultCacheTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CachedSource) key(providerID id.ProviderID) string {
	return fmt.Sprintf("profile:%s:snapshot", providerID)
}

func (s *CachedSource) Snapshot(ctx context.Context, providerID id.ProviderID) (Snapshot, error) {
	key := s.key(providerID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var snapshot Snapshot
		if err := json.Unmarshal(data, &snapshot); err == nil {
			return snapshot, nil
		}
		s.logger.WarnContext(ctx, "discarding unreadable cached profile snapshot", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "profile cache read failed", "key", key, "error", err)
	}

	snapshot, err := s.next.Snapshot(ctx, providerID)
	if err != nil {
		return Snapshot{}, err
	}

	if data, err := json.Marshal(snapshot); err == nil {
		if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
			s.logger.WarnContext(ctx, "profile cache write failed", "key", key, "error", err)
		}
	}
	return snapshot, nil
}

// Invalidate drops the cached snapshot so the next read hits the source.
func (s *CachedSource) Invalidate(ctx context.Context, providerID id.ProviderID) error {
	return s.client.Del(ctx, s.key(providerID)).Err()
}
