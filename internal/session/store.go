package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/config"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/model"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

// CredentialStore persists the per-session access credential. Only the
// Manager writes to it; everything else reads through Manager.Token.
type CredentialStore interface {
	Get(ctx context.Context, sessionID string) (*model.Credential, error)
	Put(ctx context.Context, sessionID string, cred *model.Credential) error
	Delete(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	client *redis.Client
	cfg    *config.Config
}

func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisStore{
		client: rdb,
		cfg:    cfg,
	}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.cfg.Redis.SessionPrefix + sessionID
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*model.Credential, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, errors.ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	var cred model.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	return &cred, nil
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, cred *model.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, s.key(sessionID), data, s.cfg.Redis.SessionTTL).Err()
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
