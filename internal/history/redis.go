package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"classplanner/internal/models"
)

// RedisBuffer keeps the deletion history in a Redis list so it survives
// restarts and is shared between replicas. Index 0 is the newest entry
type RedisBuffer struct {
	rdb      *goredis.Client
	key      string
	capacity int
	now      func() time.Time
}

// NewRedisClient connects to addr and checks the connection
func NewRedisClient(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewRedisBuffer stores up to capacity entries under key
func NewRedisBuffer(rdb *goredis.Client, key string, capacity int) *RedisBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisBuffer{rdb: rdb, key: key, capacity: capacity, now: time.Now}
}

func (b *RedisBuffer) Push(ctx context.Context, s models.Session) error {
	raw, err := json.Marshal(Entry{Session: s, DeletedAt: b.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode history entry: %w", err)
	}

	pipe := b.rdb.TxPipeline()
	pipe.LPush(ctx, b.key, raw)
	pipe.LTrim(ctx, b.key, 0, int64(b.capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push history entry: %w", err)
	}
	return nil
}

func (b *RedisBuffer) Get(ctx context.Context, id string) (models.Session, error) {
	entry, _, err := b.find(ctx, id)
	if err != nil {
		return models.Session{}, err
	}
	return entry.Session, nil
}

func (b *RedisBuffer) Remove(ctx context.Context, id string) error {
	_, raw, err := b.find(ctx, id)
	if err != nil {
		return err
	}
	removed, err := b.rdb.LRem(ctx, b.key, 1, raw).Result()
	if err != nil {
		return fmt.Errorf("failed to remove history entry: %w", err)
	}
	if removed == 0 {
		// another replica restored it first
		return ErrNotFound
	}
	return nil
}

func (b *RedisBuffer) List(ctx context.Context) ([]Entry, error) {
	raws, err := b.rdb.LRange(ctx, b.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (b *RedisBuffer) find(ctx context.Context, id string) (Entry, string, error) {
	raws, err := b.rdb.LRange(ctx, b.key, 0, -1).Result()
	if err != nil {
		return Entry{}, "", fmt.Errorf("failed to read history: %w", err)
	}
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		if e.Session.ID == id {
			return e, raw, nil
		}
	}
	return Entry{}, "", ErrNotFound
}
