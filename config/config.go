package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Search    SearchConfig    `yaml:"search"`
	Browser   BrowserConfig   `yaml:"browser"`
	Navigator NavigatorConfig `yaml:"navigator"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Output    OutputConfig    `yaml:"output"`
	Redis     RedisConfig     `yaml:"redis"`
	Notify    NotifyConfig    `yaml:"notify"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// SearchConfig describes what a run searches for.
type SearchConfig struct {
	// SearchRoot is the results page the query string is appended to.
	SearchRoot string `yaml:"search_root"` // default: "https://www.linkedin.com/jobs/search/"

	Keyword  string `yaml:"keyword"`  // default: "devops"
	Location string `yaml:"location"` // default: "India"
}

// BrowserConfig controls the browser session.
type BrowserConfig struct {
	// Engine selects the automation backend: "rod" or "playwright".
	Engine string `yaml:"engine"` // default: "rod"

	Headless bool `yaml:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox and setuid sandbox (needed in containers).
	NoSandbox bool `yaml:"no_sandbox"` // default: true

	// DisableGPU and DisableDevShm harden the process for small hosts.
	DisableGPU    bool `yaml:"disable_gpu"`     // default: true
	DisableDevShm bool `yaml:"disable_dev_shm"` // default: true

	// Stealth injects the stealth script before any navigation.
	Stealth bool `yaml:"stealth"` // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"browser_bin"`

	ViewportWidth  int    `yaml:"viewport_width"`  // default: 1366
	ViewportHeight int    `yaml:"viewport_height"` // default: 768
	UserAgent      string `yaml:"user_agent"`

	// AcceptLanguage is sent as an extra header when set.
	AcceptLanguage string `yaml:"accept_language"`
}

// NavigatorConfig controls navigation and readiness timing.
type NavigatorConfig struct {
	// NavigationTimeout bounds the wait for DOMContentLoaded.
	NavigationTimeout time.Duration `yaml:"navigation_timeout"` // default: 30s

	// ReadinessTimeout bounds the race between ready selectors.
	ReadinessTimeout time.Duration `yaml:"readiness_timeout"` // default: 10s

	// GraceDelay is applied once when no ready selector appears.
	GraceDelay time.Duration `yaml:"grace_delay"` // default: 3s
}

// ExtractorConfig controls record extraction.
type ExtractorConfig struct {
	// MaxResults caps the number of candidates considered per run.
	MaxResults int `yaml:"max_results"` // default: 2

	// Timeout bounds the in-page evaluation.
	Timeout time.Duration `yaml:"timeout"` // default: 10s
}

// OutputConfig controls where run artifacts go.
type OutputConfig struct {
	// Sink is "file", "redis" or "memory".
	Sink string `yaml:"sink"` // default: "file"

	// Dir is the file sink's root directory.
	Dir string `yaml:"dir"` // default: "."

	ScreenshotName string `yaml:"screenshot_name"` // default: "render-test-screenshot.png"
	ResultsName    string `yaml:"results_name"`    // default: "results.json"

	// HTMLName enables the page HTML snapshot when non-empty.
	HTMLName string `yaml:"html_name"`
}

// RedisConfig controls the redis sink.
type RedisConfig struct {
	Addr   string        `yaml:"addr"`   // default: "localhost:6379"
	Prefix string        `yaml:"prefix"` // default: "jobscout:"
	TTL    time.Duration `yaml:"ttl"`    // default: 24h, 0 keeps keys forever
}

// NotifyConfig controls optional post-run notifications.
type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`

	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// ServerConfig controls the HTTP server used by `jobscout serve`.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"

	// RunHistory is how many run results GET /runs/:id can still serve.
	RunHistory int `yaml:"run_history"` // default: 100

	// APIKeys guard the /runs routes. Empty leaves them open.
	APIKeys []string `yaml:"api_keys"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "text"
}

// DefaultUserAgent is the identity string sessions present unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			SearchRoot: "https://www.linkedin.com/jobs/search/",
			Keyword:    "devops",
			Location:   "India",
		},
		Browser: BrowserConfig{
			Engine:         "rod",
			Headless:       true,
			NoSandbox:      true,
			DisableGPU:     true,
			DisableDevShm:  true,
			Stealth:        true,
			ViewportWidth:  1366,
			ViewportHeight: 768,
			UserAgent:      DefaultUserAgent,
		},
		Navigator: NavigatorConfig{
			NavigationTimeout: 30 * time.Second,
			ReadinessTimeout:  10 * time.Second,
			GraceDelay:        3 * time.Second,
		},
		Extractor: ExtractorConfig{
			MaxResults: 2,
			Timeout:    10 * time.Second,
		},
		Output: OutputConfig{
			Sink:           "file",
			Dir:            ".",
			ScreenshotName: "render-test-screenshot.png",
			ResultsName:    "results.json",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "jobscout:",
			TTL:    24 * time.Hour,
		},
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8080,
			Mode:       "release",
			RunHistory: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration in layers: defaults, then the YAML file at
// path (skipped when path is empty), then a .env file if present, then
// JOBSCOUT_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	s := &cfg.Search
	s.SearchRoot = envOr("JOBSCOUT_SEARCH_ROOT", s.SearchRoot)
	s.Keyword = envOr("JOBSCOUT_KEYWORD", s.Keyword)
	s.Location = envOr("JOBSCOUT_LOCATION", s.Location)

	b := &cfg.Browser
	b.Engine = envOr("JOBSCOUT_ENGINE", b.Engine)
	b.Headless = envBoolOr("JOBSCOUT_HEADLESS", b.Headless)
	b.NoSandbox = envBoolOr("JOBSCOUT_NO_SANDBOX", b.NoSandbox)
	b.DisableGPU = envBoolOr("JOBSCOUT_DISABLE_GPU", b.DisableGPU)
	b.DisableDevShm = envBoolOr("JOBSCOUT_DISABLE_DEV_SHM", b.DisableDevShm)
	b.Stealth = envBoolOr("JOBSCOUT_STEALTH", b.Stealth)
	b.BrowserBin = envOr("JOBSCOUT_BROWSER_BIN", b.BrowserBin)
	b.ViewportWidth = envIntOr("JOBSCOUT_VIEWPORT_WIDTH", b.ViewportWidth)
	b.ViewportHeight = envIntOr("JOBSCOUT_VIEWPORT_HEIGHT", b.ViewportHeight)
	b.UserAgent = envOr("JOBSCOUT_USER_AGENT", b.UserAgent)
	b.AcceptLanguage = envOr("JOBSCOUT_ACCEPT_LANGUAGE", b.AcceptLanguage)

	n := &cfg.Navigator
	n.NavigationTimeout = envDurationOr("JOBSCOUT_NAV_TIMEOUT", n.NavigationTimeout)
	n.ReadinessTimeout = envDurationOr("JOBSCOUT_READY_TIMEOUT", n.ReadinessTimeout)
	n.GraceDelay = envDurationOr("JOBSCOUT_GRACE_DELAY", n.GraceDelay)

	e := &cfg.Extractor
	e.MaxResults = envIntOr("JOBSCOUT_MAX_RESULTS", e.MaxResults)
	e.Timeout = envDurationOr("JOBSCOUT_EXTRACT_TIMEOUT", e.Timeout)

	o := &cfg.Output
	o.Sink = envOr("JOBSCOUT_SINK", o.Sink)
	o.Dir = envOr("JOBSCOUT_OUTPUT_DIR", o.Dir)
	o.ScreenshotName = envOr("JOBSCOUT_SCREENSHOT_NAME", o.ScreenshotName)
	o.ResultsName = envOr("JOBSCOUT_RESULTS_NAME", o.ResultsName)
	o.HTMLName = envOr("JOBSCOUT_HTML_NAME", o.HTMLName)

	r := &cfg.Redis
	r.Addr = envOr("JOBSCOUT_REDIS_ADDR", r.Addr)
	r.Prefix = envOr("JOBSCOUT_REDIS_PREFIX", r.Prefix)
	r.TTL = envDurationOr("JOBSCOUT_REDIS_TTL", r.TTL)

	nt := &cfg.Notify
	nt.TelegramToken = envOr("TELEGRAM_BOT_TOKEN", nt.TelegramToken)
	nt.TelegramChatID = envInt64Or("TELEGRAM_CHAT_ID", nt.TelegramChatID)
	nt.WebhookURL = envOr("JOBSCOUT_WEBHOOK_URL", nt.WebhookURL)
	nt.WebhookSecret = envOr("JOBSCOUT_WEBHOOK_SECRET", nt.WebhookSecret)

	sv := &cfg.Server
	sv.Host = envOr("JOBSCOUT_HOST", sv.Host)
	sv.Port = envIntOr("JOBSCOUT_PORT", sv.Port)
	sv.Mode = envOr("JOBSCOUT_MODE", sv.Mode)
	sv.RunHistory = envIntOr("JOBSCOUT_RUN_HISTORY", sv.RunHistory)
	sv.APIKeys = envSliceOr("JOBSCOUT_API_KEYS", sv.APIKeys)

	l := &cfg.Log
	l.Level = envOr("JOBSCOUT_LOG_LEVEL", l.Level)
	l.Format = envOr("JOBSCOUT_LOG_FORMAT", l.Format)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Browser.Engine {
	case "rod", "playwright":
	default:
		return fmt.Errorf("unknown browser engine %q (want rod or playwright)", c.Browser.Engine)
	}
	switch c.Output.Sink {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("unknown output sink %q (want file, redis or memory)", c.Output.Sink)
	}
	if c.Search.SearchRoot == "" {
		return errors.New("search root is required")
	}
	if c.Navigator.NavigationTimeout <= 0 || c.Navigator.ReadinessTimeout <= 0 || c.Extractor.Timeout <= 0 {
		return errors.New("navigation, readiness and extraction timeouts must be positive")
	}
	if c.Navigator.GraceDelay < 0 {
		return errors.New("grace delay must not be negative")
	}
	if c.Extractor.MaxResults < 0 {
		return errors.New("max results must not be negative")
	}
	if c.Output.ScreenshotName == "" || c.Output.ResultsName == "" {
		return errors.New("screenshot and results names are required")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return errors.New("viewport dimensions must be positive")
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
