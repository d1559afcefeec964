// Package cache provides the QR token cache backing handover
// verification. Each live secret is kept under two keys, token to
// delivery and delivery to token, since the database stores only a
// digest. Scanned-token resolution still degrades to a digest lookup
// when the cache is cold; rebuilding the QR payload does not, and a
// lost plaintext means the buyer requests a fresh secret.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisTokenStore implements delivery.TokenStore on Redis, for
// deployments where several instances verify handovers
type RedisTokenStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTokenStore creates a Redis-backed token store and verifies
// the connection
func NewRedisTokenStore(cfg RedisConfig) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTokenStore{
		client:    client,
		keyPrefix: "delivery:qr:",
	}, nil
}

// NewRedisTokenStoreWithClient creates a store with an existing Redis
// client, useful when sharing a client across components
func NewRedisTokenStoreWithClient(client *redis.Client, keyPrefix string) *RedisTokenStore {
	if keyPrefix == "" {
		keyPrefix = "delivery:qr:"
	}
	return &RedisTokenStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Link stores a live token under both directions for the secret's
// lifetime, replacing any previous token for the delivery
func (s *RedisTokenStore) Link(ctx context.Context, deliveryID uuid.UUID, token string, ttl time.Duration) error {
	if prior, err := s.client.Get(ctx, s.byDeliveryKey(deliveryID)).Result(); err == nil && prior != "" {
		s.client.Del(ctx, s.byTokenKey(prior))
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.byTokenKey(token), deliveryID.String(), ttl)
	pipe.Set(ctx, s.byDeliveryKey(deliveryID), token, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to link token: %w", err)
	}
	return nil
}

// Resolve looks up the delivery for a scanned token. A missing key is
// a cache miss, not an error; callers fall back to the database.
func (s *RedisTokenStore) Resolve(ctx context.Context, token string) (uuid.UUID, bool, error) {
	value, err := s.client.Get(ctx, s.byTokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("failed to resolve token: %w", err)
	}

	deliveryID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt token mapping: %w", err)
	}
	return deliveryID, true, nil
}

// TokenFor returns the live plaintext token for a delivery, if any
func (s *RedisTokenStore) TokenFor(ctx context.Context, deliveryID uuid.UUID) (string, bool, error) {
	token, err := s.client.Get(ctx, s.byDeliveryKey(deliveryID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to look up token: %w", err)
	}
	return token, true, nil
}

// Invalidate removes a delivery's consumed or reissued token
func (s *RedisTokenStore) Invalidate(ctx context.Context, deliveryID uuid.UUID) error {
	keys := []string{s.byDeliveryKey(deliveryID)}
	if token, err := s.client.Get(ctx, s.byDeliveryKey(deliveryID)).Result(); err == nil && token != "" {
		keys = append(keys, s.byTokenKey(token))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) byTokenKey(token string) string {
	return s.keyPrefix + "token:" + token
}

func (s *RedisTokenStore) byDeliveryKey(deliveryID uuid.UUID) string {
	return s.keyPrefix + "delivery:" + deliveryID.String()
}

// Close releases the underlying Redis connection
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}
