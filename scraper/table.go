package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/jobscout/models"
	"golang.org/x/text/unicode/norm"
)

// Source says which property of the matched element a field reads.
type Source string

const (
	SourceText Source = "text"
	SourceHref Source = "href"
)

// Field names the extractor maps onto models.JobRecord.
const (
	FieldTitle    = "title"
	FieldCompany  = "company"
	FieldLocation = "location"
	FieldLink     = "link"
)

// Layout is one known variant of the results page.
type Layout struct {
	Name string `json:"name"`

	// ReadySelector appears once the variant's result list is rendered.
	ReadySelector string `json:"ready_selector"`

	// ContainerSelector matches one job card.
	ContainerSelector string `json:"container_selector"`
}

// FieldRule resolves one record field inside a job card. Selectors are
// tried in order; the first one yielding a non-empty value wins.
type FieldRule struct {
	Name      string   `json:"name"`
	Selectors []string `json:"selectors"`
	Source    Source   `json:"source"`
	Required  bool     `json:"required"`
	Default   string   `json:"default,omitempty"`
}

// Table is the declarative description of every page variant the extractor
// understands. Supporting a new variant means adding selectors here.
type Table struct {
	Layouts []Layout
	Fields  []FieldRule
}

// DefaultTable returns the selector table for the LinkedIn public job search
// page in its current and legacy layouts.
func DefaultTable() *Table {
	return &Table{
		Layouts: []Layout{
			{Name: "current", ReadySelector: ".jobs-search__results-list", ContainerSelector: ".jobs-search__results-list > li"},
			{Name: "legacy", ReadySelector: "ul.jobs-search-results__list", ContainerSelector: "ul.jobs-search-results__list > li"},
		},
		Fields: []FieldRule{
			{Name: FieldTitle, Selectors: []string{".base-search-card__title", "h3.base-card__title"}, Source: SourceText, Required: true},
			{Name: FieldCompany, Selectors: []string{".base-search-card__subtitle", ".base-card__subtitle"}, Source: SourceText, Default: models.UnknownField},
			{Name: FieldLocation, Selectors: []string{".job-search-card__location", ".job-card-container__metadata-item"}, Source: SourceText, Default: models.UnknownField},
			{Name: FieldLink, Selectors: []string{"a.base-card__full-link", "a.base-card"}, Source: SourceHref, Required: true},
		},
	}
}

// Validate compiles every selector and checks that the fields a JobRecord
// cannot do without are present and required.
func (t *Table) Validate() error {
	if len(t.Layouts) == 0 {
		return fmt.Errorf("selector table: no layouts")
	}
	seen := make(map[string]bool)
	for _, l := range t.Layouts {
		if l.Name == "" {
			return fmt.Errorf("selector table: layout without a name")
		}
		if seen["layout:"+l.Name] {
			return fmt.Errorf("selector table: duplicate layout %q", l.Name)
		}
		seen["layout:"+l.Name] = true
		for _, sel := range []string{l.ReadySelector, l.ContainerSelector} {
			if _, err := cascadia.Parse(sel); err != nil {
				return fmt.Errorf("selector table: layout %q: invalid selector %q: %w", l.Name, sel, err)
			}
		}
	}

	for _, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("selector table: field without a name")
		}
		if seen["field:"+f.Name] {
			return fmt.Errorf("selector table: duplicate field %q", f.Name)
		}
		seen["field:"+f.Name] = true
		if f.Source != SourceText && f.Source != SourceHref {
			return fmt.Errorf("selector table: field %q: unknown source %q", f.Name, f.Source)
		}
		if len(f.Selectors) == 0 {
			return fmt.Errorf("selector table: field %q has no selectors", f.Name)
		}
		for _, sel := range f.Selectors {
			if _, err := cascadia.Parse(sel); err != nil {
				return fmt.Errorf("selector table: field %q: invalid selector %q: %w", f.Name, sel, err)
			}
		}
	}

	for _, name := range []string{FieldTitle, FieldLink} {
		f, ok := t.field(name)
		if !ok {
			return fmt.Errorf("selector table: missing %q field", name)
		}
		if !f.Required {
			return fmt.Errorf("selector table: %q field must be required", name)
		}
	}
	return nil
}

// String describes the table for log lines.
func (t *Table) String() string {
	return fmt.Sprintf("%d layouts, %d fields", len(t.Layouts), len(t.Fields))
}

// containers is the union of every layout's container selector.
func (t *Table) containers() string {
	sels := make([]string, len(t.Layouts))
	for i, l := range t.Layouts {
		sels[i] = l.ContainerSelector
	}
	return strings.Join(sels, ", ")
}

func (t *Table) field(name string) (FieldRule, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldRule{}, false
}

// normalize turns raw candidates (field name to raw value, missing fields
// absent) into validated records. At most cap candidates are considered.
// Relative links are resolved against base when base is non-nil.
func (t *Table) normalize(raw []map[string]string, cap int, base *url.URL) models.ResultSet {
	if cap < 0 {
		cap = 0
	}
	if len(raw) > cap {
		raw = raw[:cap]
	}

	set := make(models.ResultSet, 0, len(raw))
	for _, cand := range raw {
		values := make(map[string]string, len(t.Fields))
		ok := true
		for _, f := range t.Fields {
			v := cleanText(cand[f.Name])
			if f.Source == SourceHref {
				v = absoluteLink(v, base)
			}
			if v == "" {
				if f.Required {
					ok = false
					break
				}
				v = f.Default
			}
			values[f.Name] = v
		}
		if !ok {
			continue
		}
		set = append(set, models.JobRecord{
			Title:    values[FieldTitle],
			Company:  orUnknown(values[FieldCompany]),
			Location: orUnknown(values[FieldLocation]),
			Link:     values[FieldLink],
		})
	}
	return set
}

// cleanText NFC-normalizes s and collapses whitespace runs to one space.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// absoluteLink returns raw as an absolute URL with a host, or "" when it
// cannot be made one.
func absoluteLink(raw string, base *url.URL) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !u.IsAbs() && base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() || u.Host == "" {
		return ""
	}
	return u.String()
}

func orUnknown(s string) string {
	if s == "" {
		return models.UnknownField
	}
	return s
}
