package scrape

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor pulls (title, link) pairs out of the source page's news list.
type Extractor struct {
	selector string
}

func NewExtractor(selector string) *Extractor {
	return &Extractor{selector: selector}
}

// Run extracts ordered items from raw markup, resolving links against
// baseURL. Entries missing a title or href are skipped. An absent list
// structure yields an empty slice, not an error: upstream treats that as
// "nothing to report this cycle".
func (e *Extractor) Run(data []byte, baseURL string) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	seen := make(map[string]struct{})
	var items []Item

	doc.Find(e.selector).Each(func(i int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Text())
		href, ok := sel.Attr("href")
		href = strings.TrimSpace(href)
		if title == "" || !ok || href == "" {
			slog.Debug("Skipping malformed news entry", "index", i, "title", title)
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			slog.Debug("Skipping entry with unparseable href", "index", i, "href", href)
			return
		}
		link := base.ResolveReference(ref).String()

		// First occurrence wins; a snapshot never holds duplicate links
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		items = append(items, Item{Title: title, Link: link})
	})

	return items, nil
}
