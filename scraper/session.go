package scraper

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/use-agent/jobscout/config"
	"github.com/use-agent/jobscout/engine"
	"github.com/use-agent/jobscout/models"
)

// SessionManager hands out one isolated browser session per run.
type SessionManager struct {
	eng  engine.Engine
	opts engine.LaunchOptions
}

// NewSessionManager creates a SessionManager that launches browsers through
// eng with the hardening flags from cfg.
func NewSessionManager(eng engine.Engine, cfg config.BrowserConfig) *SessionManager {
	opts := engine.LaunchOptions{
		Headless:      cfg.Headless,
		NoSandbox:     cfg.NoSandbox,
		DisableGPU:    cfg.DisableGPU,
		DisableDevShm: cfg.DisableDevShm,
		Stealth:       cfg.Stealth,
		BrowserBin:    cfg.BrowserBin,
	}
	if cfg.AcceptLanguage != "" {
		opts.ExtraHeaders = map[string]string{"Accept-Language": cfg.AcceptLanguage}
	}
	return &SessionManager{eng: eng, opts: opts}
}

// Acquire launches a browser and opens its single page. The returned
// session must be released by the caller.
func (m *SessionManager) Acquire(ctx context.Context) (*Session, error) {
	browser, err := m.eng.Launch(ctx, m.opts)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeLaunch, "failed to launch browser", err).At(models.StageLaunch)
	}

	page, err := browser.NewPage(ctx)
	if err != nil {
		if cerr := browser.Close(); cerr != nil {
			slog.Warn("browser close after page failure", "error", cerr)
		}
		return nil, models.NewScrapeError(models.ErrCodeLaunch, "failed to open page", err).At(models.StageLaunch)
	}

	slog.Debug("session acquired", "engine", m.eng.Name())
	return &Session{browser: browser, page: page}, nil
}

// Session is one browser plus its active page, owned by a single run.
type Session struct {
	browser engine.Browser
	page    engine.Page

	mu         sync.Mutex
	configured bool

	releaseOnce sync.Once
	releaseErr  error
}

var (
	errAlreadyConfigured = errors.New("session already configured")
	errNotConfigured     = errors.New("session not configured")
)

// Configure sets the viewport and user agent. It may be called once, before
// the first navigation.
func (s *Session) Configure(ctx context.Context, width, height int, userAgent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configured {
		return models.NewScrapeError(models.ErrCodeSessionConfig, "configure called twice", errAlreadyConfigured).At(models.StageConfigure)
	}
	if err := s.page.SetViewport(ctx, width, height); err != nil {
		return models.NewScrapeError(models.ErrCodeSessionConfig, "failed to set viewport", err).At(models.StageConfigure)
	}
	if userAgent != "" {
		if err := s.page.SetUserAgent(ctx, userAgent); err != nil {
			return models.NewScrapeError(models.ErrCodeSessionConfig, "failed to set user agent", err).At(models.StageConfigure)
		}
	}
	s.configured = true
	return nil
}

// Configured reports whether Configure has succeeded.
func (s *Session) Configured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configured
}

// Page returns the session's page.
func (s *Session) Page() engine.Page { return s.page }

// Release closes the browser. Only the first call does anything; later calls
// return the first call's result.
func (s *Session) Release() error {
	s.releaseOnce.Do(func() {
		s.releaseErr = s.browser.Close()
		if s.releaseErr != nil {
			slog.Warn("browser close failed", "error", s.releaseErr)
			return
		}
		slog.Debug("session released")
	})
	return s.releaseErr
}
