package models

// RunRequest is the optional payload for POST /api/v1/runs.
// Empty fields fall back to the configured search.
type RunRequest struct {
	Keyword  string `json:"keyword,omitempty"`
	Location string `json:"location,omitempty"`

	// MaxResults overrides the configured cap for this run.
	MaxResults *int `json:"max_results,omitempty" binding:"omitempty,min=0,max=100"`
}

// Defaults fills empty fields from the configured query and cap.
func (r *RunRequest) Defaults(q SearchQuery, maxResults int) {
	if r.Keyword == "" {
		r.Keyword = q.Keyword
	}
	if r.Location == "" {
		r.Location = q.Location
	}
	if r.MaxResults == nil {
		m := maxResults
		r.MaxResults = &m
	}
}

// Query returns the search query described by the request.
func (r *RunRequest) Query() SearchQuery {
	return SearchQuery{Keyword: r.Keyword, Location: r.Location}
}
