package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionNS = "portal:session"
	redisTokenNS   = "portal:session-token"
)

// RedisStore keeps sessions in redis so several portal instances share them.
// Keys expire with the session, so PurgeExpired has nothing to do.
type RedisStore struct {
	client redis.UniversalClient
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addrs      []string
	Password   string
	DB         int
	UseCluster bool
}

// NewRedisClient connects to a single node or, with UseCluster and more than
// one address, to a cluster
func NewRedisClient(cfg RedisConfig) redis.UniversalClient {
	if cfg.UseCluster && len(cfg.Addrs) > 1 {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	}
	addr := "localhost:6379"
	if len(cfg.Addrs) > 0 {
		addr = cfg.Addrs[0]
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisStore creates a new redis-backed store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Ping checks the connection
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Save stores s with a TTL matching its lifetime and indexes it by token
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(s.ExpiresAt)
	if s.ExpiresAt.IsZero() {
		ttl = 0
	} else if ttl <= 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(s.ID), data, ttl)
	pipe.SAdd(ctx, tokenKey(s.AccessToken), s.ID)
	if ttl > 0 {
		pipe.Expire(ctx, tokenKey(s.AccessToken), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get retrieves a session by id
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// Delete removes a session
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, tokenKey(s.AccessToken), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByAccessToken removes every session holding token
func (r *RedisStore) DeleteByAccessToken(ctx context.Context, token string) ([]int64, error) {
	ids, err := r.client.SMembers(ctx, tokenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions by token: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// Index entries can outlive their session keys; only live ones count.
	var users []int64
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, s.User.ID)
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, tokenKey(token))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return nil, fmt.Errorf("failed to delete sessions by token: %w", err)
	}
	return users, nil
}

// PurgeExpired is a no-op; redis expires session keys itself
func (r *RedisStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func sessionKey(id string) string {
	return redisSessionNS + ":" + id
}

func tokenKey(token string) string {
	return redisTokenNS + ":" + token
}
