package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/jobscout/models"
)

// SignatureHeader carries the HMAC-SHA256 of the body as "sha256=<hex>".
const SignatureHeader = "X-Jobscout-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string            `json:"type"` // "run.completed"
	RunID     string            `json:"run_id"`
	Timestamp int64             `json:"timestamp"`
	Data      *models.RunResult `json:"data"`
}

// Webhook POSTs a signed JSON event per run.
type Webhook struct {
	url    string
	secret string
	client *http.Client

	// retryDelays are waited before each retry; one attempt per entry plus
	// the first.
	retryDelays []time.Duration
}

// NewWebhook creates a Webhook notifier. The body is signed when secret is
// non-empty.
func NewWebhook(url, secret string) *Webhook {
	return &Webhook{
		url:         url,
		secret:      secret,
		client:      &http.Client{Timeout: 10 * time.Second},
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

// Notify delivers a run.completed event, retrying on failure until the
// retries run out or ctx is done.
func (w *Webhook) Notify(ctx context.Context, run *models.RunResult) error {
	event := &Event{
		Type:      "run.completed",
		RunID:     run.RunID,
		Timestamp: time.Now().Unix(),
		Data:      run,
	}

	err := w.deliver(ctx, event)
	for attempt, delay := range w.retryDelays {
		if err == nil {
			break
		}
		slog.Warn("webhook delivery failed",
			"url", w.url,
			"run_id", run.RunID,
			"attempt", attempt+1,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		err = w.deliver(ctx, event)
	}
	if err != nil {
		return err
	}
	slog.Info("webhook delivered", "url", w.url, "run_id", run.RunID)
	return nil
}

func (w *Webhook) deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Jobscout-Webhook/1.0")
	if w.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
