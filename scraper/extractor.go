package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/jobscout/models"
)

// extractJS runs once per extraction. It is generic over the selector table:
// plan carries the container union, the field rules and the cap.
const extractJS = `(plan) => {
	const out = [];
	const cards = Array.from(document.querySelectorAll(plan.containers)).slice(0, plan.cap);
	for (const card of cards) {
		const rec = {};
		for (const f of plan.fields) {
			for (const sel of f.selectors) {
				const el = card.querySelector(sel);
				if (!el) continue;
				const v = f.source === 'href' ? (el.href || '') : (el.textContent || '');
				if (v.trim()) {
					rec[f.name] = v.trim();
					break;
				}
			}
		}
		out.push(rec);
	}
	return out;
}`

// extractPlan is the argument passed to extractJS.
type extractPlan struct {
	Containers string      `json:"containers"`
	Fields     []FieldRule `json:"fields"`
	Cap        int         `json:"cap"`
}

// Extractor reads job records from a page using a selector table.
type Extractor struct {
	table   *Table
	timeout time.Duration
}

// NewExtractor validates table and returns an Extractor bounded by timeout
// per in-page evaluation.
func NewExtractor(table *Table, timeout time.Duration) (*Extractor, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{table: table, timeout: timeout}, nil
}

// Table returns the selector table the extractor was built with.
func (e *Extractor) Table() *Table { return e.table }

// Extract returns at most cap records from the session's current page, in
// document order. No matching card is not an error.
func (e *Extractor) Extract(ctx context.Context, s *Session, cap int) (models.ResultSet, error) {
	if cap <= 0 {
		return models.ResultSet{}, nil
	}

	evalCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var raw []map[string]string
	arg := extractPlan{Containers: e.table.containers(), Fields: e.table.Fields, Cap: cap}
	if err := s.Page().Eval(evalCtx, extractJS, arg, &raw); err != nil {
		msg := "in-page extraction failed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("in-page extraction did not finish within %s", e.timeout)
		}
		return nil, models.NewScrapeError(models.ErrCodeExtraction, msg, err).At(models.StageExtract)
	}

	set := e.table.normalize(raw, cap, nil)
	if dropped := min(len(raw), cap) - len(set); dropped > 0 {
		slog.Debug("dropped incomplete candidates", "dropped", dropped, "kept", len(set))
	}
	return set, nil
}
