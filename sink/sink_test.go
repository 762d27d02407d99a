package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/jobscout/config"
)

func TestFile_PutCreatesDirAndReplaces(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	f := NewFile(dir)
	ctx := context.Background()

	require.NoError(t, f.Put(ctx, "results.json", []byte("[]")))
	require.NoError(t, f.Put(ctx, "results.json", []byte(`[{"title":"x"}]`)))

	got, err := os.ReadFile(filepath.Join(dir, "results.json"))
	require.NoError(t, err)
	assert.Equal(t, `[{"title":"x"}]`, string(got))

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFile_RejectsEscapingKeys(t *testing.T) {
	f := NewFile(t.TempDir())
	for _, key := range []string{"", "../evil", "/etc/passwd"} {
		assert.Error(t, f.Put(context.Background(), key, []byte("x")), key)
	}
}

func TestFile_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewFile(dir).Put(ctx, "a.txt", []byte("x")), context.Canceled)
	_, err := os.Stat(filepath.Join(dir, "a.txt"))
	assert.True(t, os.IsNotExist(err))
}

type fakeRedis struct {
	key    string
	value  any
	ttl    time.Duration
	err    error
	closed bool
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.key, f.value, f.ttl = key, value, expiration
	return redis.NewStatusResult("OK", f.err)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedis_PrefixAndTTL(t *testing.T) {
	fake := &fakeRedis{}
	r := &Redis{client: fake, prefix: "jobscout:", ttl: time.Hour}

	require.NoError(t, r.Put(context.Background(), "results.json", []byte("[]")))
	assert.Equal(t, "jobscout:results.json", fake.key)
	assert.Equal(t, []byte("[]"), fake.value)
	assert.Equal(t, time.Hour, fake.ttl)

	require.NoError(t, r.Close())
	assert.True(t, fake.closed)
}

func TestRedis_SetError(t *testing.T) {
	r := &Redis{client: &fakeRedis{err: errors.New("down")}, prefix: "p:"}
	err := r.Put(context.Background(), "k", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "p:k")
}

func TestMemory_CopiesAndOrders(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	buf := []byte("one")
	require.NoError(t, m.Put(ctx, "b", buf))
	require.NoError(t, m.Put(ctx, "a", []byte("two")))
	buf[0] = 'X'

	got, ok := m.Get("b")
	require.True(t, ok)
	assert.Equal(t, "one", string(got))
	assert.Equal(t, []string{"b", "a"}, m.Order())
	assert.Equal(t, []string{"a", "b"}, m.Keys())

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	for name, want := range map[string]string{"file": "file", "redis": "redis", "memory": "memory"} {
		cfg.Output.Sink = name
		s, err := New(cfg)
		require.NoError(t, err)
		assert.Equal(t, want, s.Name())
		_ = s.Close()
	}

	cfg.Output.Sink = "s3"
	_, err := New(cfg)
	assert.Error(t, err)
}
