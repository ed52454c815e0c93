// Package rediskv provides a credentials.KV backend on Redis, for clients
// sharing session state across processes.
package rediskv

import (
	"context"

	"github.com/loyaltyhub/go-auth-client/credentials"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ credentials.KV = (*Store)(nil)

type Store struct {
	client *redis.Client
}

// New wraps an existing Redis client.
func New(client *redis.Client) (*Store, error) {
	if client == nil {
		return nil, errors.New("[New] redis client is required")
	}
	return &Store{client: client}, nil
}

// NewFromURL connects to Redis at url and verifies connectivity.
func NewFromURL(ctx context.Context, url string) (*Store, error) {
	if url == "" {
		return nil, errors.New("[NewFromURL] redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "[NewFromURL] parsing redis url")
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "[NewFromURL] pinging redis")
	}

	return &Store{client: client}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", credentials.ErrKeyNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[Get] redis get")
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrap(err, "[Set] redis set")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "[Delete] redis del")
	}
	return nil
}
