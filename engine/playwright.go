package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/stealth"
	"github.com/playwright-community/playwright-go"
)

// PlaywrightEngine drives Chromium through the Playwright driver.
// The driver and browsers must be installed (`playwright install chromium`).
type PlaywrightEngine struct{}

// NewPlaywrightEngine creates a PlaywrightEngine.
func NewPlaywrightEngine() *PlaywrightEngine { return &PlaywrightEngine{} }

func (e *PlaywrightEngine) Name() string { return "playwright" }

func (e *PlaywrightEngine) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright driver: %w", err)
	}

	var args []string
	if opts.NoSandbox {
		args = append(args, "--no-sandbox", "--disable-setuid-sandbox")
	}
	if opts.DisableDevShm {
		args = append(args, "--disable-dev-shm-usage")
	}
	if opts.DisableGPU {
		args = append(args, "--disable-gpu")
	}
	if opts.Stealth {
		args = append(args, "--disable-blink-features=AutomationControlled")
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     args,
	}
	if opts.BrowserBin != "" {
		launchOpts.ExecutablePath = playwright.String(opts.BrowserBin)
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	slog.Debug("browser launched", "engine", e.Name(), "version", browser.Version())

	return &pwBrowser{pw: pw, browser: browser, stealth: opts.Stealth, headers: opts.ExtraHeaders}, nil
}

type pwBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	stealth bool
	headers map[string]string
}

func (b *pwBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := b.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	if b.stealth {
		if err := page.AddInitScript(playwright.Script{Content: playwright.String(stealth.JS)}); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}
	p := &pwPage{page: page, headers: map[string]string{}}
	for k, v := range b.headers {
		p.headers[k] = v
	}
	if len(p.headers) > 0 {
		if err := page.SetExtraHTTPHeaders(p.headers); err != nil {
			slog.Warn("failed to set extra headers", "error", err)
		}
	}
	return p, nil
}

func (b *pwBrowser) Close() error {
	err := b.browser.Close()
	if stopErr := b.pw.Stop(); err == nil {
		err = stopErr
	}
	return err
}

type pwPage struct {
	page    playwright.Page
	headers map[string]string
}

func (p *pwPage) SetViewport(ctx context.Context, width, height int) error {
	return p.page.SetViewportSize(width, height)
}

// SetUserAgent rides on the extra headers since Playwright only accepts a
// user agent when the browser context is created.
func (p *pwPage) SetUserAgent(ctx context.Context, userAgent string) error {
	p.headers["User-Agent"] = userAgent
	return p.page.SetExtraHTTPHeaders(p.headers)
}

func (p *pwPage) Navigate(ctx context.Context, url string) error {
	_, err := await(ctx, func() (struct{}, error) {
		_, err := p.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   timeoutMs(ctx),
		})
		return struct{}{}, err
	})
	return err
}

func (p *pwPage) WaitForSelector(ctx context.Context, selector string) error {
	_, err := await(ctx, func() (struct{}, error) {
		return struct{}{}, p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: timeoutMs(ctx),
		})
	})
	return err
}

func (p *pwPage) Eval(ctx context.Context, js string, arg any, out any) error {
	res, err := await(ctx, func() (any, error) {
		return p.page.Evaluate(js, arg)
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode eval result: %w", err)
	}
	return json.Unmarshal(raw, out)
}

func (p *pwPage) Screenshot(ctx context.Context) ([]byte, error) {
	return await(ctx, func() ([]byte, error) {
		return p.page.Screenshot(playwright.PageScreenshotOptions{
			Type:    playwright.ScreenshotTypePng,
			Timeout: timeoutMs(ctx),
		})
	})
}

func (p *pwPage) HTML(ctx context.Context) (string, error) {
	return await(ctx, p.page.Content)
}

// await runs a blocking Playwright call and returns early when ctx is done.
// Playwright calls cannot be cancelled; each one is also given the ctx
// deadline as its own timeout so an abandoned call ends on its own.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return r.v, ctx.Err()
		}
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// timeoutMs converts the ctx deadline into Playwright's millisecond timeout.
// nil means "use Playwright's default".
func timeoutMs(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	remaining := time.Until(deadline)
	if remaining < time.Millisecond {
		remaining = time.Millisecond
	}
	return playwright.Float(float64(remaining.Milliseconds()))
}
