package scraper

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/jobscout/models"
)

func TestDefaultTable_Valid(t *testing.T) {
	tbl := DefaultTable()
	require.NoError(t, tbl.Validate())
	assert.Equal(t, ".jobs-search__results-list > li, ul.jobs-search-results__list > li", tbl.containers())
	assert.Equal(t, "2 layouts, 4 fields", tbl.String())
}

func TestTable_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Table)
	}{
		{"no layouts", func(t *Table) { t.Layouts = nil }},
		{"bad ready selector", func(t *Table) { t.Layouts[0].ReadySelector = "ul[" }},
		{"bad field selector", func(t *Table) { t.Fields[1].Selectors = []string{"h3:nth-child("} }},
		{"duplicate layout", func(t *Table) { t.Layouts[1].Name = t.Layouts[0].Name }},
		{"duplicate field", func(t *Table) { t.Fields[1].Name = FieldTitle }},
		{"unknown source", func(t *Table) { t.Fields[0].Source = "attr" }},
		{"no selectors", func(t *Table) { t.Fields[2].Selectors = nil }},
		{"link optional", func(t *Table) { t.Fields[3].Required = false }},
		{"title missing", func(t *Table) { t.Fields = t.Fields[1:] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := DefaultTable()
			tt.mutate(tbl)
			assert.Error(t, tbl.Validate())
		})
	}
}

func TestNormalize_CapAndOrder(t *testing.T) {
	raw := []map[string]string{
		{"title": "A", "link": "https://x.test/a"},
		{"title": "B", "link": "https://x.test/b"},
		{"title": "C", "link": "https://x.test/c"},
	}
	for c, want := range map[int][]string{0: {}, 1: {"A"}, 2: {"A", "B"}, 5: {"A", "B", "C"}} {
		set := DefaultTable().normalize(raw, c, nil)
		titles := []string{}
		for _, r := range set {
			titles = append(titles, r.Title)
		}
		assert.Equal(t, want, titles, "cap %d", c)
	}
}

func TestNormalize_DropsAndDefaults(t *testing.T) {
	raw := []map[string]string{
		{"title": "  Site Reliability\n   Engineer ", "company": "Acme", "link": "https://x.test/1"},
		{"company": "No Title Inc", "link": "https://x.test/2"},
		{"title": "Relative", "link": "/jobs/view/3"},
		{"title": "Script", "link": "javascript:void(0)"},
		{"title": "Bare", "company": "   ", "link": "https://x.test/5"},
	}
	set := DefaultTable().normalize(raw, 10, nil)
	require.Len(t, set, 2)

	assert.Equal(t, models.JobRecord{
		Title: "Site Reliability Engineer", Company: "Acme", Location: models.UnknownField, Link: "https://x.test/1",
	}, set[0])
	assert.Equal(t, models.JobRecord{
		Title: "Bare", Company: models.UnknownField, Location: models.UnknownField, Link: "https://x.test/5",
	}, set[1])
}

func TestNormalize_ResolvesAgainstBase(t *testing.T) {
	base, err := url.Parse("https://in.linkedin.com/jobs/search/?keywords=go")
	require.NoError(t, err)

	set := DefaultTable().normalize([]map[string]string{{"title": "T", "link": "/jobs/view/9"}}, 2, base)
	require.Len(t, set, 1)
	assert.Equal(t, "https://in.linkedin.com/jobs/view/9", set[0].Link)
}

func TestNormalize_NFC(t *testing.T) {
	set := DefaultTable().normalize([]map[string]string{
		{"title": "Cafe\u0301 Manager", "location": "Mu\u0308nchen", "link": "https://x.test/1"},
	}, 1, nil)
	require.Len(t, set, 1)
	assert.Equal(t, "Caf\u00e9 Manager", set[0].Title)
	assert.Equal(t, "M\u00fcnchen", set[0].Location)
}

func TestResultSet_EmptyMarshalsAsArray(t *testing.T) {
	set := DefaultTable().normalize(nil, 2, nil)
	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
