package models

import "fmt"

// Error codes used in run results, API responses and internal error handling.
const (
	ErrCodeLaunch        = "LAUNCH_FAILURE"
	ErrCodeSessionConfig = "SESSION_CONFIG_FAILED"
	ErrCodeNavTimeout    = "NAVIGATION_TIMEOUT"
	ErrCodeNavigation    = "NAVIGATION_FAILED"
	ErrCodeExtraction    = "EXTRACTION_ANOMALY"
	ErrCodeSnapshot      = "SNAPSHOT_FAILED"
	ErrCodePersist       = "PERSIST_FAILED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeRunInProgress = "RUN_IN_PROGRESS"
	ErrCodeNotFound      = "RUN_NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// Pipeline stage names, used in logs and in RunResult.FailedStage.
const (
	StageLaunch    = "launch"
	StageConfigure = "configure"
	StageNavigate  = "navigate"
	StageReadiness = "readiness"
	StageExtract   = "extract"
	StageSnapshot  = "snapshot"
	StagePersist   = "persist"
)

// ErrorDetail is the structured error in API responses and run results.
type ErrorDetail struct {
	Code    string `json:"code"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code and the
// pipeline stage it was raised in.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Stage   string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	prefix := e.Code
	if e.Stage != "" {
		prefix = e.Stage + ": " + e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// At records the stage the error surfaced in and returns the same error.
func (e *ScrapeError) At(stage string) *ScrapeError {
	e.Stage = stage
	return e
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return &ErrorDetail{Code: e.Code, Stage: e.Stage, Message: msg}
}
