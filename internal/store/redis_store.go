package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// срок жизни снапшота: брошенные партии не живут в redis вечно
const snapshotTTL = 24 * time.Hour

const snapshotKeyPrefix = "arcade:session:"

// RedisStore хранит снапшоты партий в redis, переживает рестарт процесса.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis недоступен: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func snapshotKey(sessionID string) string {
	return snapshotKeyPrefix + sessionID
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, blob []byte) error {
	return s.client.Set(ctx, snapshotKey(sessionID), blob, snapshotTTL).Err()
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	blob, err := s.client.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, snapshotKey(sessionID)).Err()
}
