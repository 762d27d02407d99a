package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/jobscout/config"
	"github.com/use-agent/jobscout/engine/enginetest"
	"github.com/use-agent/jobscout/models"
	"github.com/use-agent/jobscout/sink"
)

var devopsIndia = models.SearchQuery{Keyword: "devops", Location: "India"}

func newRunner(t *testing.T, cfg *config.Config, fe *enginetest.Engine, opts ...Option) (*Runner, *sink.Memory) {
	t.Helper()
	mem := sink.NewMemory()
	r, err := NewRunner(cfg, fe, mem, opts...)
	require.NoError(t, err)
	return r, mem
}

type countingNotifier struct {
	runs []*models.RunResult
	err  error
}

func (c *countingNotifier) Name() string { return "counting" }
func (c *countingNotifier) Notify(ctx context.Context, run *models.RunResult) error {
	c.runs = append(c.runs, run)
	return c.err
}

func TestRunOnce_CurrentLayout(t *testing.T) {
	fe := &enginetest.Engine{
		Selectors:  map[string]time.Duration{".jobs-search__results-list": time.Millisecond},
		Candidates: candidates(5),
	}
	r, mem := newRunner(t, testConfig(), fe)

	run := r.RunOnce(context.Background(), devopsIndia)

	require.True(t, run.Success, "run error: %v", run.Err())
	assert.NoError(t, run.Err())
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, "fake", run.Engine)
	assert.Equal(t, "https://www.linkedin.com/jobs/search/?keywords=devops&location=India", run.URL)
	assert.Equal(t, run.URL, fe.LastURL.Load())
	require.NotNil(t, run.Readiness)
	assert.Equal(t, "current", run.Readiness.Layout)
	assert.False(t, run.Readiness.Fallback)
	assert.Len(t, run.Records, 2)
	assert.Equal(t, int32(1), fe.Closes.Load())

	assert.Equal(t, [][2]int{{1366, 768}}, fe.Viewports())
	assert.Equal(t, []string{config.DefaultUserAgent}, fe.UserAgents())

	assert.Equal(t, []string{"render-test-screenshot.png", "results.json"}, mem.Order())
	png, _ := mem.Get("render-test-screenshot.png")
	assert.Equal(t, enginetest.PNG, png)

	data, ok := mem.Get("results.json")
	require.True(t, ok)
	want, err := json.MarshalIndent(run.Records, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(data))
	assert.Contains(t, string(data), "\n  {\n    \"title\": \"Job A\",")

	assert.Equal(t, models.Artifacts{Screenshot: "render-test-screenshot.png", Results: "results.json"}, run.Artifacts)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestRunOnce_FallbackWithNoCards(t *testing.T) {
	fe := &enginetest.Engine{}
	r, mem := newRunner(t, testConfig(), fe)

	run := r.RunOnce(context.Background(), devopsIndia)

	require.True(t, run.Success)
	require.NotNil(t, run.Readiness)
	assert.True(t, run.Readiness.Fallback)
	assert.Empty(t, run.Records)
	assert.Equal(t, int32(1), fe.Closes.Load())

	data, ok := mem.Get("results.json")
	require.True(t, ok)
	assert.Equal(t, "[]", string(data))
}

func TestRunOnce_NavigationTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Navigator.NavigationTimeout = 20 * time.Millisecond
	fe := &enginetest.Engine{NavigateBlocks: true, Candidates: candidates(2)}
	r, mem := newRunner(t, cfg, fe)

	run := r.RunOnce(context.Background(), devopsIndia)

	assert.False(t, run.Success)
	assert.Nil(t, run.Records)
	assert.Equal(t, models.StageNavigate, run.FailedStage)
	require.NotNil(t, run.Error)
	assert.Equal(t, models.ErrCodeNavTimeout, run.Error.Code)
	assert.Equal(t, int32(1), fe.Closes.Load())
	assert.Empty(t, mem.Keys())

	var se *models.ScrapeError
	require.ErrorAs(t, run.Err(), &se)
	assert.Equal(t, models.ErrCodeNavTimeout, se.Code)
}

func TestRunOnce_StageFailures(t *testing.T) {
	tests := []struct {
		name       string
		fe         *enginetest.Engine
		wantCode   string
		wantStage  string
		wantCloses int32
		wantKeys   []string
	}{
		{
			name:       "launch",
			fe:         &enginetest.Engine{LaunchErr: errors.New("chrome not found")},
			wantCode:   models.ErrCodeLaunch,
			wantStage:  models.StageLaunch,
			wantCloses: 0,
		},
		{
			name:       "page",
			fe:         &enginetest.Engine{PageErr: errors.New("target closed")},
			wantCode:   models.ErrCodeLaunch,
			wantStage:  models.StageLaunch,
			wantCloses: 1,
		},
		{
			name:       "configure",
			fe:         &enginetest.Engine{ConfigErr: errors.New("no emulation")},
			wantCode:   models.ErrCodeSessionConfig,
			wantStage:  models.StageConfigure,
			wantCloses: 1,
		},
		{
			name:       "navigate",
			fe:         &enginetest.Engine{NavigateErr: errors.New("net::ERR_CONNECTION_RESET")},
			wantCode:   models.ErrCodeNavigation,
			wantStage:  models.StageNavigate,
			wantCloses: 1,
		},
		{
			name:       "extract",
			fe:         &enginetest.Engine{EvalErr: errors.New("context destroyed")},
			wantCode:   models.ErrCodeExtraction,
			wantStage:  models.StageExtract,
			wantCloses: 1,
		},
		{
			name:       "snapshot",
			fe:         &enginetest.Engine{ScreenshotErr: errors.New("capture failed"), Candidates: candidates(2)},
			wantCode:   models.ErrCodeSnapshot,
			wantStage:  models.StageSnapshot,
			wantCloses: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &countingNotifier{}
			r, mem := newRunner(t, testConfig(), tt.fe, WithNotifier(notifier))

			run := r.RunOnce(context.Background(), devopsIndia)

			assert.False(t, run.Success)
			assert.Nil(t, run.Records)
			assert.Equal(t, tt.wantStage, run.FailedStage)
			require.NotNil(t, run.Error)
			assert.Equal(t, tt.wantCode, run.Error.Code)
			assert.Equal(t, tt.wantCloses, tt.fe.Closes.Load())
			_, wrote := mem.Get("results.json")
			assert.False(t, wrote, "no data file on failure")
			assert.Empty(t, notifier.runs)
		})
	}
}

type failingSink struct {
	*sink.Memory
	failKey string
}

func (f *failingSink) Put(ctx context.Context, key string, data []byte) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.Memory.Put(ctx, key, data)
}

func TestRunOnce_PersistFailure(t *testing.T) {
	fe := &enginetest.Engine{Candidates: candidates(2)}
	snk := &failingSink{Memory: sink.NewMemory(), failKey: "results.json"}
	r, err := NewRunner(testConfig(), fe, snk)
	require.NoError(t, err)

	run := r.RunOnce(context.Background(), devopsIndia)

	assert.False(t, run.Success)
	assert.Equal(t, models.ErrCodePersist, run.Error.Code)
	assert.Equal(t, models.StagePersist, run.FailedStage)
	assert.Equal(t, int32(1), fe.Closes.Load())
}

func TestRun_CapOverride(t *testing.T) {
	fe := &enginetest.Engine{Candidates: candidates(5)}
	r, _ := newRunner(t, testConfig(), fe)

	run := r.Run(context.Background(), devopsIndia, 4)
	require.True(t, run.Success)
	assert.Len(t, run.Records, 4)
}

func TestRunOnce_HTMLSnapshot(t *testing.T) {
	cfg := testConfig()
	cfg.Output.HTMLName = "page.html"
	fe := &enginetest.Engine{Candidates: candidates(1), Document: "<html>ok</html>"}
	r, mem := newRunner(t, cfg, fe)

	run := r.RunOnce(context.Background(), devopsIndia)
	require.True(t, run.Success)
	assert.Equal(t, "page.html", run.Artifacts.HTML)
	doc, _ := mem.Get("page.html")
	assert.Equal(t, "<html>ok</html>", string(doc))
}

func TestRunOnce_HTMLSnapshotFailureIsNotFatal(t *testing.T) {
	cfg := testConfig()
	cfg.Output.HTMLName = "page.html"
	fe := &enginetest.Engine{Candidates: candidates(1)}
	r, _ := newRunner(t, cfg, fe)

	run := r.RunOnce(context.Background(), devopsIndia)
	require.True(t, run.Success)
	assert.Empty(t, run.Artifacts.HTML)
}

func TestRunOnce_NotifierFailureDoesNotFailRun(t *testing.T) {
	notifier := &countingNotifier{err: errors.New("telegram down")}
	fe := &enginetest.Engine{Candidates: candidates(2)}
	r, _ := newRunner(t, testConfig(), fe, WithNotifier(notifier))

	run := r.RunOnce(context.Background(), devopsIndia)
	require.True(t, run.Success)
	require.Len(t, notifier.runs, 1)
	assert.Same(t, run, notifier.runs[0])
}

// snapshotNotifier records what the run looked like when Notify was called.
type snapshotNotifier struct {
	fe         *enginetest.Engine
	finishedAt time.Time
	durationMs int64
	closes     int32
}

func (s *snapshotNotifier) Name() string { return "snapshot" }
func (s *snapshotNotifier) Notify(ctx context.Context, run *models.RunResult) error {
	s.finishedAt = run.FinishedAt
	s.durationMs = run.DurationMs
	s.closes = s.fe.Closes.Load()
	return nil
}

func TestRunOnce_NotifiesFinishedRunAfterRelease(t *testing.T) {
	fe := &enginetest.Engine{Candidates: candidates(2)}
	snap := &snapshotNotifier{fe: fe}
	r, _ := newRunner(t, testConfig(), fe, WithNotifier(snap))

	run := r.RunOnce(context.Background(), devopsIndia)
	require.True(t, run.Success)

	assert.False(t, snap.finishedAt.IsZero(), "finished_at must be stamped before notifying")
	assert.Equal(t, run.FinishedAt, snap.finishedAt)
	assert.Equal(t, run.DurationMs, snap.durationMs)
	assert.GreaterOrEqual(t, snap.durationMs, int64(0))
	assert.Equal(t, int32(1), snap.closes, "browser must be closed before notifying")
}

func TestRunOnce_SequentialRunsAreIndependent(t *testing.T) {
	fe := &enginetest.Engine{Candidates: candidates(2)}
	r, _ := newRunner(t, testConfig(), fe)

	first := r.RunOnce(context.Background(), devopsIndia)
	second := r.RunOnce(context.Background(), models.SearchQuery{Keyword: "sre", Location: "Remote"})

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, int32(2), fe.Launches.Load())
	assert.Equal(t, int32(2), fe.Closes.Load())
	assert.Contains(t, second.URL, "keywords=sre&location=Remote")
}

func TestNewRunner_InvalidTable(t *testing.T) {
	tbl := DefaultTable()
	tbl.Layouts = nil
	_, err := NewRunner(testConfig(), &enginetest.Engine{}, sink.NewMemory(), WithTable(tbl))
	assert.Error(t, err)
}

func TestRunOnce_InvalidSearchRoot(t *testing.T) {
	cfg := testConfig()
	cfg.Search.SearchRoot = "jobs/search"
	fe := &enginetest.Engine{}
	r, _ := newRunner(t, cfg, fe)

	run := r.RunOnce(context.Background(), devopsIndia)
	assert.False(t, run.Success)
	assert.Equal(t, models.ErrCodeInvalidInput, run.Error.Code)
	assert.Equal(t, int32(0), fe.Launches.Load())
}
