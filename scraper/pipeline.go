package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/jobscout/config"
	"github.com/use-agent/jobscout/engine"
	"github.com/use-agent/jobscout/models"
	"github.com/use-agent/jobscout/notify"
	"github.com/use-agent/jobscout/sink"
)

// Runner executes the scrape pipeline. It holds no per-run state, so one
// Runner may serve any number of sequential runs.
type Runner struct {
	cfg       *config.Config
	engName   string
	table     *Table
	sessions  *SessionManager
	navigator *Navigator
	extractor *Extractor
	sink      sink.Sink
	notifier  notify.Notifier
}

// Option customises a Runner.
type Option func(*Runner)

// WithNotifier announces successful runs through n.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithTable replaces the default selector table.
func WithTable(t *Table) Option {
	return func(r *Runner) { r.table = t }
}

// NewRunner wires the pipeline stages for eng and snk.
func NewRunner(cfg *config.Config, eng engine.Engine, snk sink.Sink, opts ...Option) (*Runner, error) {
	r := &Runner{
		cfg:      cfg,
		engName:  eng.Name(),
		sessions: NewSessionManager(eng, cfg.Browser),
		table:    DefaultTable(),
		sink:     snk,
	}
	for _, opt := range opts {
		opt(r)
	}
	ext, err := NewExtractor(r.table, cfg.Extractor.Timeout)
	if err != nil {
		return nil, err
	}
	r.extractor = ext
	r.navigator = NewNavigator(cfg.Navigator, r.table)
	slog.Debug("runner ready", "engine", r.engName, "sink", snk.Name(), "table", r.table.String())
	return r, nil
}

// Extractor returns the runner's extractor.
func (r *Runner) Extractor() *Extractor { return r.extractor }

// RunOnce runs the pipeline for q with the configured result cap.
func (r *Runner) RunOnce(ctx context.Context, q models.SearchQuery) *models.RunResult {
	return r.Run(ctx, q, r.cfg.Extractor.MaxResults)
}

// Run executes one full pipeline run:
//
//  1. Acquire       – launch a browser and open its page
//  2. DEFER release – the session is closed on every exit path below
//  3. Configure     – viewport and user agent, before navigation
//  4. Navigate      – wait for DOMContentLoaded under the navigation timeout
//  5. Readiness     – race the ready selectors, fall back to the grace delay
//  6. Extract       – one in-page evaluation, at most maxResults records
//  7. Persist       – screenshot first, then the results file
//  8. Notify        – successful runs only, after the session is released
//
// Every failure is recorded in the returned RunResult; Run never panics on
// a stage failure and never writes a partial results file.
func (r *Runner) Run(ctx context.Context, q models.SearchQuery, maxResults int) *models.RunResult {
	run := &models.RunResult{
		RunID:     uuid.NewString(),
		Query:     q,
		Engine:    r.engName,
		StartedAt: time.Now(),
	}
	log := slog.With("run_id", run.RunID)

	r.execute(ctx, log, run, maxResults)
	run.FinishedAt = time.Now()
	run.DurationMs = run.FinishedAt.Sub(run.StartedAt).Milliseconds()

	if !run.Success {
		return run
	}
	log.Info("run complete", "records", len(run.Records), "duration", run.FinishedAt.Sub(run.StartedAt))

	// ── 8. Notify ──────────────────────────────────────────────────────
	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, run); err != nil {
			log.Warn("notification failed", "notifier", r.notifier.Name(), "error", err)
		}
	}
	return run
}

// execute runs steps 1 to 7. The session is released before it returns.
func (r *Runner) execute(ctx context.Context, log *slog.Logger, run *models.RunResult, maxResults int) {
	target, err := BuildAddress(r.cfg.Search.SearchRoot, run.Query)
	if err != nil {
		r.fail(log, run, models.NewScrapeError(models.ErrCodeInvalidInput, "cannot build target URL", err).At(models.StageNavigate))
		return
	}
	run.URL = target

	// ── 1. Acquire ─────────────────────────────────────────────────────
	session, err := r.sessions.Acquire(ctx)
	if err != nil {
		r.fail(log, run, asScrapeError(err, models.StageLaunch))
		return
	}
	// ── 2. Release on every exit path ──────────────────────────────────
	defer session.Release()

	// ── 3. Configure ───────────────────────────────────────────────────
	b := r.cfg.Browser
	if err := session.Configure(ctx, b.ViewportWidth, b.ViewportHeight, b.UserAgent); err != nil {
		r.fail(log, run, asScrapeError(err, models.StageConfigure))
		return
	}

	// ── 4. Navigate ────────────────────────────────────────────────────
	log.Info("navigating", "url", target)
	if err := r.navigator.Navigate(ctx, session, target); err != nil {
		r.fail(log, run, asScrapeError(err, models.StageNavigate))
		return
	}

	// ── 5. Readiness ───────────────────────────────────────────────────
	run.Readiness = r.navigator.AwaitReadiness(ctx, session)

	// ── 6. Extract ─────────────────────────────────────────────────────
	records, err := r.extractor.Extract(ctx, session, maxResults)
	if err != nil {
		r.fail(log, run, asScrapeError(err, models.StageExtract))
		return
	}
	if len(records) == 0 && run.Readiness.Fallback {
		log.Warn("extracted nothing from an unready page", "url", target)
	}

	// ── 7. Persist ─────────────────────────────────────────────────────
	if serr := r.persist(ctx, log, session, run, records); serr != nil {
		r.fail(log, run, serr)
		return
	}

	run.Success = true
	run.Records = records
	for i, rec := range records {
		log.Info("job",
			"index", i+1,
			"title", rec.Title,
			"company", rec.Company,
			"location", rec.Location,
			"url", rec.Link,
		)
	}
}

// persist writes the screenshot, then the results file, then the optional
// HTML snapshot. The results file is only written once the screenshot is
// stored.
func (r *Runner) persist(ctx context.Context, log *slog.Logger, s *Session, run *models.RunResult, records models.ResultSet) *models.ScrapeError {
	out := r.cfg.Output

	png, err := s.Page().Screenshot(ctx)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeSnapshot, "failed to capture screenshot", err).At(models.StageSnapshot)
	}
	if err := r.sink.Put(ctx, out.ScreenshotName, png); err != nil {
		return models.NewScrapeError(models.ErrCodePersist, "failed to store screenshot", err).At(models.StagePersist)
	}
	run.Artifacts.Screenshot = out.ScreenshotName
	log.Info("screenshot saved", "sink", r.sink.Name(), "key", out.ScreenshotName, "bytes", len(png))

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return models.NewScrapeError(models.ErrCodePersist, "failed to encode results", err).At(models.StagePersist)
	}
	if err := r.sink.Put(ctx, out.ResultsName, data); err != nil {
		return models.NewScrapeError(models.ErrCodePersist, "failed to store results", err).At(models.StagePersist)
	}
	run.Artifacts.Results = out.ResultsName
	log.Info("results saved", "sink", r.sink.Name(), "key", out.ResultsName, "records", len(records))

	if out.HTMLName != "" {
		doc, err := s.Page().HTML(ctx)
		if err == nil {
			err = r.sink.Put(ctx, out.HTMLName, []byte(doc))
		}
		if err != nil {
			log.Warn("html snapshot skipped", "error", err)
		} else {
			run.Artifacts.HTML = out.HTMLName
		}
	}
	return nil
}

func (r *Runner) fail(log *slog.Logger, run *models.RunResult, err *models.ScrapeError) {
	run.Fail(err)
	log.Error("run failed", "stage", err.Stage, "code", err.Code, "error", err.Error())
}

// asScrapeError returns err as a *ScrapeError, wrapping foreign errors as
// INTERNAL_ERROR at stage.
func asScrapeError(err error, stage string) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		if se.Stage == "" {
			se.Stage = stage
		}
		return se
	}
	return models.NewScrapeError(models.ErrCodeInternal, "unexpected failure", err).At(stage)
}
