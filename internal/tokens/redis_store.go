package tokens

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

const defaultKeyPrefix = "contentpipeline:token:"

// RedisStore keeps tokens in Redis so refreshed credentials survive restarts.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ ports.TokenStore = (*RedisStore)(nil)

// NewRedisStore wraps client; an empty prefix uses the default one.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, platform domain.Platform) (domain.Token, error) {
	raw, err := s.client.Get(ctx, s.key(platform)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Token{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Token{}, fmt.Errorf("redis get token: %w", err)
	}

	var token domain.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return domain.Token{}, fmt.Errorf("decode token: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Put(ctx context.Context, token domain.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := s.client.Set(ctx, s.key(token.Platform), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (s *RedisStore) key(platform domain.Platform) string {
	return s.prefix + string(platform)
}
