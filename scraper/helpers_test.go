package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/use-agent/jobscout/config"
	"github.com/use-agent/jobscout/engine/enginetest"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Navigator.NavigationTimeout = 500 * time.Millisecond
	cfg.Navigator.ReadinessTimeout = 40 * time.Millisecond
	cfg.Navigator.GraceDelay = time.Millisecond
	cfg.Extractor.Timeout = time.Second
	cfg.Output.Sink = "memory"
	return cfg
}

// configuredSession acquires and configures a session on fe, released at
// test cleanup.
func configuredSession(t *testing.T, fe *enginetest.Engine) *Session {
	t.Helper()
	ctx := context.Background()
	s, err := NewSessionManager(fe, config.Default().Browser).Acquire(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Release() })
	require.NoError(t, s.Configure(ctx, 1366, 768, config.DefaultUserAgent))
	return s
}

// recordingSleep counts grace delays instead of sleeping.
type recordingSleep struct {
	calls []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) {
	r.calls = append(r.calls, d)
}
