package engine

import (
	"context"
	"errors"
)

// Engine is the interface that all browser automation backends implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "rod", "playwright").
	Name() string

	// Launch starts one isolated browser instance.
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// LaunchOptions are the process-level settings of a browser instance.
type LaunchOptions struct {
	Headless      bool
	NoSandbox     bool
	DisableGPU    bool
	DisableDevShm bool
	Stealth       bool
	BrowserBin    string

	// ExtraHeaders are sent with every request of every page.
	ExtraHeaders map[string]string
}

// Browser is a running browser instance.
type Browser interface {
	// NewPage opens a tab. Stealth, when enabled, is installed before it
	// is returned so it applies to the first navigation.
	NewPage(ctx context.Context) (Page, error)

	// Close terminates the browser and every page it owns.
	Close() error
}

// Page is one tab. Every blocking call is bounded by ctx.
type Page interface {
	SetViewport(ctx context.Context, width, height int) error
	SetUserAgent(ctx context.Context, userAgent string) error

	// Navigate loads url and returns once the DOM content has been parsed.
	// It does not wait for subresources.
	Navigate(ctx context.Context, url string) error

	// WaitForSelector blocks until an element matching selector is attached
	// or ctx is done.
	WaitForSelector(ctx context.Context, selector string) error

	// Eval runs the JS function js with the single JSON-serialisable arg and
	// decodes its JSON result into out.
	Eval(ctx context.Context, js string, arg any, out any) error

	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// HTML returns the serialised current DOM.
	HTML(ctx context.Context) (string, error)
}

// New returns the engine registered under name.
func New(name string) (Engine, error) {
	switch name {
	case "rod", "":
		return NewRodEngine(), nil
	case "playwright":
		return NewPlaywrightEngine(), nil
	default:
		return nil, errors.New("engine: unknown engine " + name)
	}
}
