package scrape

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-shiori/go-readability"
)

const excerptMaxRunes = 300

// ExcerptExtractor pulls a short readable text excerpt from an article page,
// used to enrich notification emails.
type ExcerptExtractor struct{}

func NewExcerptExtractor() *ExcerptExtractor {
	return &ExcerptExtractor{}
}

func (e *ExcerptExtractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	runes := []rune(text)
	if len(runes) > excerptMaxRunes {
		text = strings.TrimSpace(string(runes[:excerptMaxRunes])) + "…"
	}

	slog.Debug("Excerpt extracted", "title", article.Title, "length", len(text))

	return text, nil
}
