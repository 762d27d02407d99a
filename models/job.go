package models

// UnknownField is substituted for optional job fields the page did not provide.
const UnknownField = "Unknown"

// SearchQuery is the keyword/location pair a run searches for.
type SearchQuery struct {
	Keyword  string `json:"keyword"`
	Location string `json:"location"`
}

// JobRecord is one validated job listing.
//
// Title and Link are always present (Link is an absolute URL); Company and
// Location fall back to UnknownField.
type JobRecord struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Link     string `json:"link"`
}

// ResultSet is the ordered, capped list of records produced by one run.
// Order is document order on the source page.
type ResultSet []JobRecord
