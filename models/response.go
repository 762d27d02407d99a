package models

// RunResponse is the response for POST /api/v1/runs and GET /api/v1/runs/:id.
type RunResponse struct {
	Success bool         `json:"success"`
	Run     *RunResult   `json:"run,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "busy"
	Uptime  string `json:"uptime"`
	Engine  string `json:"engine"`
	Running bool   `json:"running"`
	Version string `json:"version"`
}
