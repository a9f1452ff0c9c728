package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bangla-rag-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

// SessionSnapshotRepository stores the session snapshot as one JSON value under a fixed key.
type SessionSnapshotRepository struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewSessionSnapshotRepository keeps the snapshot for ttl after the last save. A zero ttl never expires.
func NewSessionSnapshotRepository(rdb *redis.Client, key string, ttl time.Duration) *SessionSnapshotRepository {
	return &SessionSnapshotRepository{rdb: rdb, key: key, ttl: ttl}
}

func (r *SessionSnapshotRepository) Load(ctx context.Context) (*store.Snapshot, error) {
	data, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session snapshot: %w", err)
	}
	return &snap, nil
}

func (r *SessionSnapshotRepository) Save(ctx context.Context, snap *store.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

// NewClient parses url as a redis:// URL, falling back to a bare host:port address.
func NewClient(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	return redis.NewClient(opt)
}
