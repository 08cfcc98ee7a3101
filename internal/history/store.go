package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists scan records. Load returns them oldest first.
type Store interface {
	Load(ctx context.Context) ([]ScanRecord, error)
	Save(ctx context.Context, records []ScanRecord) error
	Append(ctx context.Context, record ScanRecord) error
	Clear(ctx context.Context) error
}

// FileStore keeps the history as a JSON array in a single file.
type FileStore struct {
	path     string
	capacity int
	mu       sync.Mutex
}

// NewFileStore returns a store writing to path and keeping at most capacity
// records.
func NewFileStore(path string, capacity int) *FileStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &FileStore{path: path, capacity: capacity}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) ([]ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() ([]ScanRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []ScanRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return []ScanRecord{}, nil
	}

	var records []ScanRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode history file %s: %w", s.path, err)
	}
	return tail(records, s.capacity), nil
}

func (s *FileStore) Save(_ context.Context, records []ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(records)
}

func (s *FileStore) save(records []ScanRecord) error {
	if records == nil {
		records = []ScanRecord{}
	}
	data, err := json.MarshalIndent(tail(records, s.capacity), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

func (s *FileStore) Append(_ context.Context, record ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(records, record))
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove history file: %w", err)
	}
	return nil
}

// RedisStore keeps the history in a Redis list, newest at the head.
//
// Key structure:
//
//	{prefix}:history - list of JSON-encoded scan records
type RedisStore struct {
	redis    *redis.Client
	key      string
	capacity int
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL, prefix string, capacity int) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisStoreFromClient(client, prefix, capacity), nil
}

// NewRedisStoreFromClient wraps an existing Redis connection.
func NewRedisStoreFromClient(client *redis.Client, prefix string, capacity int) *RedisStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if prefix == "" {
		prefix = "lognorm"
	}
	return &RedisStore{
		redis:    client,
		key:      fmt.Sprintf("%s:history", prefix),
		capacity: capacity,
	}
}

// Key returns the Redis list key.
func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Load(ctx context.Context) ([]ScanRecord, error) {
	values, err := s.redis.LRange(ctx, s.key, 0, int64(s.capacity-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	records := make([]ScanRecord, 0, len(values))
	// newest first in the list; reverse to oldest first
	for i := len(values) - 1; i >= 0; i-- {
		var rec ScanRecord
		if err := json.Unmarshal([]byte(values[i]), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode history entry: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *RedisStore) Save(ctx context.Context, records []ScanRecord) error {
	records = tail(records, s.capacity)

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, s.key)
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode history entry: %w", err)
		}
		pipe.LPush(ctx, s.key, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

func (s *RedisStore) Append(ctx context.Context, record ScanRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode history entry: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, int64(s.capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}

func tail(records []ScanRecord, n int) []ScanRecord {
	if len(records) <= n {
		return records
	}
	return records[len(records)-n:]
}
