package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// RodEngine drives Chromium over CDP with go-rod.
type RodEngine struct{}

// NewRodEngine creates a RodEngine.
func NewRodEngine() *RodEngine { return &RodEngine{} }

func (e *RodEngine) Name() string { return "rod" }

// Launch starts a local Chromium with the hardening flags from opts and
// connects to it.
func (e *RodEngine) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox)

	if opts.BrowserBin != "" {
		l = l.Bin(opts.BrowserBin)
	}

	// ── Hardening flags ──────────────────────────────────────────────
	if opts.NoSandbox {
		l.Set(flags.Flag("disable-setuid-sandbox"))
	}
	if opts.DisableDevShm {
		l.Set(flags.Flag("disable-dev-shm-usage"))
	}
	if opts.DisableGPU {
		l.Set(flags.Flag("disable-gpu"))
	}
	if opts.Stealth {
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
	}
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("disable-extensions"))

	// The launcher context covers the binary lookup and the wait for the
	// DevTools URL; the started process is not bound to it.
	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	slog.Debug("browser launched", "engine", e.Name(), "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	return &rodBrowser{
		launcher: l,
		browser:  browser,
		stealth:  opts.Stealth,
		headers:  opts.ExtraHeaders,
	}, nil
}

type rodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	stealth  bool
	headers  map[string]string
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	// Detach the page from the creation context; callers bind their own
	// deadlines per operation.
	page = page.Context(context.Background())

	// Stealth must be installed before the first navigation to take effect.
	if b.stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if len(b.headers) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(b.headers)}).Call(page); err != nil {
			slog.Warn("failed to set extra headers", "error", err)
		}
	}

	return &rodPage{page: page}, nil
}

// Close kills the browser process and removes its profile directory.
func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	if err != nil {
		b.launcher.Kill()
	}
	b.launcher.Cleanup()
	return err
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) SetViewport(ctx context.Context, width, height int) error {
	return p.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

func (p *rodPage) SetUserAgent(ctx context.Context, userAgent string) error {
	return p.page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: userAgent,
	})
}

// Navigate registers the DOMContentLoaded waiter before navigating so the
// event cannot be missed, then blocks until it fires or ctx is done.
func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	wait := pg.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

func (p *rodPage) WaitForSelector(ctx context.Context, selector string) error {
	_, err := p.page.Context(ctx).Element(selector)
	return err
}

func (p *rodPage) Eval(ctx context.Context, js string, arg any, out any) error {
	res, err := p.page.Context(ctx).Eval(js, arg)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(res.Value.JSON("", "")), out)
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
