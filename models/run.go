package models

import "time"

// Readiness describes how the navigator decided the page was ready.
type Readiness struct {
	// Layout is the name of the layout whose ready selector appeared first.
	// Empty when Fallback is true.
	Layout string `json:"layout,omitempty"`

	// Selector is the ready selector that won the race.
	Selector string `json:"selector,omitempty"`

	// Fallback is true when no ready selector appeared in time and the
	// grace delay was applied instead.
	Fallback bool `json:"fallback"`

	// WaitedMs is the total time spent waiting, grace delay included.
	WaitedMs int64 `json:"waited_ms"`
}

// Artifacts lists the sink keys written by a run.
type Artifacts struct {
	Screenshot string `json:"screenshot,omitempty"`
	Results    string `json:"results,omitempty"`
	HTML       string `json:"html,omitempty"`
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	RunID       string       `json:"run_id"`
	Query       SearchQuery  `json:"query"`
	URL         string       `json:"url"`
	Engine      string       `json:"engine"`
	Success     bool         `json:"success"`
	Readiness   *Readiness   `json:"readiness,omitempty"`
	Records     ResultSet    `json:"records"`
	Artifacts   Artifacts    `json:"artifacts"`
	FailedStage string       `json:"failed_stage,omitempty"`
	Error       *ErrorDetail `json:"error,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	DurationMs  int64        `json:"duration_ms"`

	err *ScrapeError
}

// Fail marks the run as failed with err. Records are discarded so a failed
// run never reports a partial result set.
func (r *RunResult) Fail(err *ScrapeError) {
	r.Success = false
	r.Records = nil
	r.FailedStage = err.Stage
	r.Error = err.ToDetail()
	r.err = err
}

// Err returns the error that ended the run, or nil on success.
func (r *RunResult) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}
