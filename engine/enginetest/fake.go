// Package enginetest provides a scriptable in-memory engine for tests.
package enginetest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/jobscout/engine"
)

// PNG is the screenshot payload the fake returns by default.
var PNG = []byte("\x89PNG\r\n\x1a\nfake")

// Engine is a fake engine.Engine. Configure the exported fields before use;
// the counters are safe to read concurrently.
type Engine struct {
	// LaunchErr fails Launch.
	LaunchErr error
	// PageErr fails Browser.NewPage.
	PageErr error
	// ConfigErr fails SetViewport.
	ConfigErr error

	// NavigateErr fails Navigate immediately.
	NavigateErr error
	// NavigateBlocks makes Navigate wait until its ctx is done.
	NavigateBlocks bool

	// Selectors maps a selector to the delay after which it "appears".
	// Selectors not in the map never appear.
	Selectors map[string]time.Duration

	// Candidates is what the in-page extraction returns: one map per
	// candidate, field name to raw value. The fake ignores the cap on
	// purpose so callers have to bound the result themselves.
	Candidates []map[string]string
	// EvalErr fails Eval.
	EvalErr error
	// EvalHook, when set, observes the script argument.
	EvalHook func(arg any)

	// ScreenshotErr fails Screenshot.
	ScreenshotErr error
	// Document is returned by HTML.
	Document string

	Launches   atomic.Int32
	Closes     atomic.Int32
	Navigates  atomic.Int32
	LastURL    atomic.Value // string
	LastLaunch atomic.Value // engine.LaunchOptions

	mu        sync.Mutex
	viewports [][2]int
	agents    []string
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return "fake" }

// Launch implements engine.Engine.
func (e *Engine) Launch(ctx context.Context, opts engine.LaunchOptions) (engine.Browser, error) {
	if e.LaunchErr != nil {
		return nil, e.LaunchErr
	}
	e.Launches.Add(1)
	e.LastLaunch.Store(opts)
	return &browser{e: e}, nil
}

// Viewports returns every SetViewport call as {width, height}.
func (e *Engine) Viewports() [][2]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][2]int(nil), e.viewports...)
}

// UserAgents returns every SetUserAgent call.
func (e *Engine) UserAgents() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.agents...)
}

type browser struct {
	e *Engine
}

func (b *browser) NewPage(ctx context.Context) (engine.Page, error) {
	if b.e.PageErr != nil {
		return nil, b.e.PageErr
	}
	return &page{e: b.e}, nil
}

func (b *browser) Close() error {
	b.e.Closes.Add(1)
	return nil
}

type page struct {
	e *Engine
}

func (p *page) SetViewport(ctx context.Context, width, height int) error {
	if p.e.ConfigErr != nil {
		return p.e.ConfigErr
	}
	p.e.mu.Lock()
	p.e.viewports = append(p.e.viewports, [2]int{width, height})
	p.e.mu.Unlock()
	return nil
}

func (p *page) SetUserAgent(ctx context.Context, userAgent string) error {
	p.e.mu.Lock()
	p.e.agents = append(p.e.agents, userAgent)
	p.e.mu.Unlock()
	return nil
}

func (p *page) Navigate(ctx context.Context, url string) error {
	p.e.Navigates.Add(1)
	p.e.LastURL.Store(url)
	if p.e.NavigateErr != nil {
		return p.e.NavigateErr
	}
	if p.e.NavigateBlocks {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *page) WaitForSelector(ctx context.Context, selector string) error {
	delay, ok := p.e.Selectors[selector]
	if !ok {
		<-ctx.Done()
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *page) Eval(ctx context.Context, js string, arg any, out any) error {
	if p.e.EvalHook != nil {
		p.e.EvalHook(arg)
	}
	if p.e.EvalErr != nil {
		return p.e.EvalErr
	}
	candidates := p.e.Candidates
	if candidates == nil {
		candidates = []map[string]string{}
	}
	raw, err := json.Marshal(candidates)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *page) Screenshot(ctx context.Context) ([]byte, error) {
	if p.e.ScreenshotErr != nil {
		return nil, p.e.ScreenshotErr
	}
	return PNG, nil
}

func (p *page) HTML(ctx context.Context) (string, error) {
	if p.e.Document == "" {
		return "", errors.New("enginetest: no document")
	}
	return p.e.Document, nil
}

// Candidate builds a fully resolvable candidate for index i.
func Candidate(title, company, location, link string) map[string]string {
	c := map[string]string{}
	if title != "" {
		c["title"] = title
	}
	if company != "" {
		c["company"] = company
	}
	if location != "" {
		c["location"] = location
	}
	if link != "" {
		c["link"] = link
	}
	return c
}
