// Package redis keeps keeper documents in one Redis hash. Each hash field is
// a document name and its value the document content.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
)

// DefaultKey is the hash used when none is configured.
const DefaultKey = "keeper:documents"

type Store struct {
	client redis.Cmdable
	key    string
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w: %w", domain.ErrStoreUnavailable, err)
	}

	return client, nil
}

func NewStore(client redis.Cmdable, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Fetch returns every field of the hash. A missing hash is an empty mapping.
func (s *Store) Fetch(ctx context.Context) (map[string]string, error) {
	files, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w: %w", s.key, domain.ErrStoreUnavailable, err)
	}
	return files, nil
}

func (s *Store) Replace(ctx context.Context, name, content string) error {
	if err := s.client.HSet(ctx, s.key, name, content).Err(); err != nil {
		return fmt.Errorf("hset %s %s: %w: %w", s.key, name, domain.ErrStoreUnavailable, err)
	}
	return nil
}
