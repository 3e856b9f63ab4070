package anomaly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/authwatch/authwatch/pkg/infra/breaker"
	"github.com/go-redis/redis/v8"
)

const (
	profileKeyPattern = "authwatch:profile:%s"
	profileKeyPrefix  = "authwatch:profile:"
	scanBatchSize     = 100
)

// RedisStore keeps profiles as JSON documents with a TTL, so a multi-instance
// deployment can share behavioral state through a distributed cache. Calls go
// through a circuit breaker: when Redis is down the engine fails open instead
// of stalling the login hot path.
type RedisStore struct {
	client  *redis.Client
	breaker breaker.CircuitBreaker
	ttl     time.Duration
}

// NewRedisStore creates a Redis-backed ProfileStore. ttl bounds how long an
// idle profile survives; 0 keeps profiles until Redis evicts them.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:  client,
		breaker: breaker.NewCircuitBreaker("anomaly-profile-store", 30*time.Second, 5),
		ttl:     ttl,
	}
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*Profile, error) {
	key := fmt.Sprintf(profileKeyPattern, userID)

	var data []byte
	err := s.breaker.Execute(func() error {
		b, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) Put(ctx context.Context, p *Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	key := fmt.Sprintf(profileKeyPattern, p.UserID)
	return s.breaker.Execute(func() error {
		return s.client.Set(ctx, key, data, s.ttl).Err()
	})
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	key := fmt.Sprintf(profileKeyPattern, userID)
	return s.breaker.Execute(func() error {
		return s.client.Del(ctx, key).Err()
	})
}

func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.breaker.Execute(func() error {
		var cursor uint64
		for {
			keys, next, err := s.client.Scan(ctx, cursor, profileKeyPrefix+"*", scanBatchSize).Result()
			if err != nil {
				return fmt.Errorf("error scanning profile keys: %w", err)
			}
			for _, key := range keys {
				ids = append(ids, strings.TrimPrefix(key, profileKeyPrefix))
			}
			cursor = next
			if cursor == 0 {
				return nil
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
