package scrape

import (
	"errors"
)

// ErrFetchFailed wraps both the primary and fallback fetch failures.
// The next scheduled cycle is the retry mechanism.
var ErrFetchFailed = errors.New("source fetch failed")

// Item is a single news entry extracted from the source page.
// Identity is the absolute link.
type Item struct {
	Title string
	Link  string
}
