package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/jobscout/config"
	"github.com/use-agent/jobscout/engine"
	"github.com/use-agent/jobscout/engine/enginetest"
	"github.com/use-agent/jobscout/models"
)

func TestSessionManager_LaunchOptions(t *testing.T) {
	fe := &enginetest.Engine{}
	cfg := config.Default().Browser
	cfg.AcceptLanguage = "en-IN"

	s, err := NewSessionManager(fe, cfg).Acquire(context.Background())
	require.NoError(t, err)
	defer s.Release()

	opts := fe.LastLaunch.Load().(engine.LaunchOptions)
	assert.True(t, opts.Headless)
	assert.True(t, opts.NoSandbox)
	assert.True(t, opts.DisableGPU)
	assert.True(t, opts.DisableDevShm)
	assert.True(t, opts.Stealth)
	assert.Equal(t, map[string]string{"Accept-Language": "en-IN"}, opts.ExtraHeaders)
}

func TestSessionManager_LaunchFailure(t *testing.T) {
	fe := &enginetest.Engine{LaunchErr: errors.New("no chrome")}
	_, err := NewSessionManager(fe, config.Default().Browser).Acquire(context.Background())

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeLaunch, se.Code)
	assert.Equal(t, models.StageLaunch, se.Stage)
	assert.Equal(t, int32(0), fe.Closes.Load())
}

func TestSessionManager_PageFailureClosesBrowser(t *testing.T) {
	fe := &enginetest.Engine{PageErr: errors.New("target crashed")}
	_, err := NewSessionManager(fe, config.Default().Browser).Acquire(context.Background())

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeLaunch, se.Code)
	assert.Equal(t, int32(1), fe.Closes.Load())
}

func TestSession_ConfigureOnce(t *testing.T) {
	fe := &enginetest.Engine{}
	s, err := NewSessionManager(fe, config.Default().Browser).Acquire(context.Background())
	require.NoError(t, err)
	defer s.Release()

	assert.False(t, s.Configured())
	require.NoError(t, s.Configure(context.Background(), 1366, 768, "ua/1"))
	assert.True(t, s.Configured())

	err = s.Configure(context.Background(), 800, 600, "ua/2")
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeSessionConfig, se.Code)

	assert.Equal(t, [][2]int{{1366, 768}}, fe.Viewports())
	assert.Equal(t, []string{"ua/1"}, fe.UserAgents())
}

func TestSession_ConfigureFailure(t *testing.T) {
	fe := &enginetest.Engine{ConfigErr: errors.New("emulation unsupported")}
	s, err := NewSessionManager(fe, config.Default().Browser).Acquire(context.Background())
	require.NoError(t, err)
	defer s.Release()

	err = s.Configure(context.Background(), 1366, 768, "ua")
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeSessionConfig, se.Code)
	assert.False(t, s.Configured())
}

func TestSession_ReleaseExactlyOnce(t *testing.T) {
	fe := &enginetest.Engine{}
	s, err := NewSessionManager(fe, config.Default().Browser).Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Release())
	require.NoError(t, s.Release())
	assert.Equal(t, int32(1), fe.Closes.Load())
}
