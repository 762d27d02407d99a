package scraper

import (
	"io"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/jobscout/models"
)

// ExtractHTML applies the extractor's selector table to a saved HTML
// document. Relative links are resolved against baseURL, which may be empty
// when the document only carries absolute links.
func (e *Extractor) ExtractHTML(r io.Reader, baseURL string, cap int) (models.ResultSet, error) {
	var base *url.URL
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid base URL", err).At(models.StageExtract)
		}
		base = u
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "failed to parse HTML", err).At(models.StageExtract)
	}

	if cap <= 0 {
		return models.ResultSet{}, nil
	}

	var raw []map[string]string
	doc.Find(e.table.containers()).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		raw = append(raw, e.readCard(card))
		return len(raw) < cap
	})
	return e.table.normalize(raw, cap, base), nil
}

// readCard resolves every field of one card, leaving unresolved fields out.
func (e *Extractor) readCard(card *goquery.Selection) map[string]string {
	rec := make(map[string]string, len(e.table.Fields))
	for _, f := range e.table.Fields {
		for _, sel := range f.Selectors {
			el := card.Find(sel).First()
			if el.Length() == 0 {
				continue
			}
			var v string
			if f.Source == SourceHref {
				v, _ = el.Attr("href")
			} else {
				v = el.Text()
			}
			if cleanText(v) != "" {
				rec[f.Name] = v
				break
			}
		}
	}
	return rec
}
