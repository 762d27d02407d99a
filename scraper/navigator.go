package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/jobscout/config"
	"github.com/use-agent/jobscout/models"
)

// BuildAddress appends the query to searchRoot as
// ?keywords=<kw>&location=<loc>, percent-encoding both values the way a
// browser's encodeURIComponent does (space becomes %20).
func BuildAddress(searchRoot string, q models.SearchQuery) (string, error) {
	root, err := url.Parse(searchRoot)
	if err != nil {
		return "", fmt.Errorf("parse search root: %w", err)
	}
	if !root.IsAbs() || root.Host == "" {
		return "", fmt.Errorf("search root %q is not an absolute URL", searchRoot)
	}
	root.RawQuery = ""
	root.Fragment = ""
	return root.String() + "?keywords=" + encodeComponent(q.Keyword) + "&location=" + encodeComponent(q.Location), nil
}

// encodeComponent escapes s for use as a query value. QueryEscape encodes
// space as "+", which is swapped for %20 so the result decodes the same
// under both query and path rules.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Navigator drives a configured session to the results page and decides
// when the page is ready to extract from.
type Navigator struct {
	cfg     config.NavigatorConfig
	layouts []Layout

	// sleep waits d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// NewNavigator creates a Navigator racing the ready selectors of table.
func NewNavigator(cfg config.NavigatorConfig, table *Table) *Navigator {
	return &Navigator{
		cfg:     cfg,
		layouts: table.Layouts,
		sleep:   sleepCtx,
	}
}

// Navigate loads target and returns once the DOM content has loaded.
func (n *Navigator) Navigate(ctx context.Context, s *Session, target string) error {
	if !s.Configured() {
		return models.NewScrapeError(models.ErrCodeSessionConfig, "navigate on unconfigured session", errNotConfigured).At(models.StageNavigate)
	}

	navCtx, cancel := context.WithTimeout(ctx, n.cfg.NavigationTimeout)
	defer cancel()

	start := time.Now()
	if err := s.Page().Navigate(navCtx, target); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return models.NewScrapeError(models.ErrCodeNavTimeout,
				fmt.Sprintf("DOM content not loaded within %s", n.cfg.NavigationTimeout), err).At(models.StageNavigate)
		}
		return models.NewScrapeError(models.ErrCodeNavigation, "navigation to target URL failed", err).At(models.StageNavigate)
	}
	slog.Debug("navigation complete", "url", target, "elapsed", time.Since(start))
	return nil
}

// AwaitReadiness races the ready selector of every known layout. The first
// one to appear wins and the rest are cancelled. If none appears within the
// readiness timeout the grace delay is applied once instead. It never fails:
// an unready page is still handed to the extractor.
func (n *Navigator) AwaitReadiness(ctx context.Context, s *Session) *models.Readiness {
	start := time.Now()

	if winner, ok := n.race(ctx, s); ok {
		slog.Info("page ready", "layout", winner.Name, "selector", winner.ReadySelector)
		return &models.Readiness{
			Layout:   winner.Name,
			Selector: winner.ReadySelector,
			WaitedMs: time.Since(start).Milliseconds(),
		}
	}

	slog.Warn("no ready selector appeared, applying grace delay",
		"timeout", n.cfg.ReadinessTimeout, "grace", n.cfg.GraceDelay)
	n.sleep(ctx, n.cfg.GraceDelay)
	return &models.Readiness{
		Fallback: true,
		WaitedMs: time.Since(start).Milliseconds(),
	}
}

// race returns the layout whose ready selector appeared first. Every waiter
// has returned by the time race does.
func (n *Navigator) race(ctx context.Context, s *Session) (Layout, bool) {
	if len(n.layouts) == 0 {
		return Layout{}, false
	}

	type raceResult struct {
		layout Layout
		err    error
	}

	raceCtx, raceCancel := context.WithTimeout(ctx, n.cfg.ReadinessTimeout)
	defer raceCancel()

	results := make(chan raceResult, len(n.layouts))
	var wg sync.WaitGroup
	for _, l := range n.layouts {
		wg.Add(1)
		go func(l Layout) {
			defer wg.Done()
			err := s.Page().WaitForSelector(raceCtx, l.ReadySelector)
			results <- raceResult{layout: l, err: err}
		}(l)
	}

	var (
		winner Layout
		won    bool
	)
	for range n.layouts {
		rr := <-results
		if rr.err != nil {
			slog.Debug("ready selector lost", "layout", rr.layout.Name, "error", rr.err)
			continue
		}
		winner, won = rr.layout, true
		break
	}

	// First success wins; cancel the rest and wait for them to return.
	raceCancel()
	wg.Wait()
	return winner, won
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
