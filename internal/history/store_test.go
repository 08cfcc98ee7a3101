package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func scan(n int) ScanRecord {
	return ScanRecord{
		ID:           fmt.Sprintf("scan-%d", n),
		URL:          fmt.Sprintf("https://site%d.example.com", n),
		Timestamp:    time.Date(2025, 6, 1, 12, n, 0, 0, time.UTC),
		OverallScore: 50 + n,
		Results:      []CheckResult{{Title: "HTTPS", Status: "pass", Score: 50 + n}},
	}
}

func ids(records []ScanRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

// storeContract runs the behaviour every Store implementation must share.
func storeContract(t *testing.T, newStore func(capacity int) Store) {
	ctx := context.Background()

	t.Run("empty load", func(t *testing.T) {
		s := newStore(3)
		records, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("append keeps oldest first", func(t *testing.T) {
		s := newStore(3)
		for i := 1; i <= 2; i++ {
			require.NoError(t, s.Append(ctx, scan(i)))
		}

		records, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"scan-1", "scan-2"}, ids(records))
		assert.Equal(t, scan(1).Timestamp, records[0].Timestamp)
		assert.Equal(t, scan(1).Results, records[0].Results)
	})

	t.Run("append trims to capacity", func(t *testing.T) {
		s := newStore(3)
		for i := 1; i <= 5; i++ {
			require.NoError(t, s.Append(ctx, scan(i)))
		}

		records, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"scan-3", "scan-4", "scan-5"}, ids(records))
	})

	t.Run("save replaces", func(t *testing.T) {
		s := newStore(3)
		require.NoError(t, s.Append(ctx, scan(9)))
		require.NoError(t, s.Save(ctx, []ScanRecord{scan(1), scan(2), scan(3), scan(4)}))

		records, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"scan-2", "scan-3", "scan-4"}, ids(records))
	})

	t.Run("clear", func(t *testing.T) {
		s := newStore(3)
		require.NoError(t, s.Append(ctx, scan(1)))
		require.NoError(t, s.Clear(ctx))

		records, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)

		// clearing twice is fine
		require.NoError(t, s.Clear(ctx))
	})
}

func TestFileStore(t *testing.T) {
	storeContract(t, func(capacity int) Store {
		return NewFileStore(filepath.Join(t.TempDir(), "nested", "history.json"), capacity)
	})
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path, 10).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestFileStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	records, err := NewFileStore(path, 10).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRedisStore(t *testing.T) {
	storeContract(t, func(capacity int) Store {
		_, client := setupTestRedis(t)
		return NewRedisStoreFromClient(client, "test", capacity)
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewRedisStoreFromClient(client, "", 2)
	assert.Equal(t, "lognorm:history", s.Key())

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Append(ctx, scan(i)))
	}

	values, err := mr.List("lognorm:history")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Contains(t, values[0], `"id":"scan-3"`)
	assert.Contains(t, values[1], `"id":"scan-2"`)
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := NewRedisStore(ctx, "redis://"+mr.Addr()+"/0", "lognorm", 5)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(ctx, scan(1)))
	assert.True(t, mr.Exists("lognorm:history"))

	_, err = NewRedisStore(ctx, "://bad", "lognorm", 5)
	assert.Error(t, err)
}

func TestRedisStore_LoadDecodeError(t *testing.T) {
	mr, client := setupTestRedis(t)
	_, err := mr.Lpush("test:history", "not json")
	require.NoError(t, err)

	_, err = NewRedisStoreFromClient(client, "test", 5).Load(context.Background())
	assert.Error(t, err)
}
