package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/articlegen/internal/article"
)

// ErrNoKeywords is returned when the input holds no non-blank lines.
var ErrNoKeywords = errors.New("no keywords")

// ParsePairs reads "keyword | URL" lines. Blank lines are ignored.
func ParsePairs(text string) ([]article.KeywordEntry, error) {
	var entries []article.KeywordEntry
	for _, line := range lines(text) {
		parts := strings.Split(line, "|")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid format: %q, use: keyword | URL", line)
		}
		entries = append(entries, article.KeywordEntry{
			Keyword: strings.TrimSpace(parts[0]),
			URL:     strings.TrimSpace(parts[1]),
		})
	}
	if len(entries) == 0 {
		return nil, ErrNoKeywords
	}
	return entries, nil
}

// ParseBulk pairs every keyword line with the same URL.
func ParseBulk(text, url string) ([]article.KeywordEntry, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("url is required")
	}
	var entries []article.KeywordEntry
	for _, line := range lines(text) {
		entries = append(entries, article.KeywordEntry{Keyword: line, URL: url})
	}
	if len(entries) == 0 {
		return nil, ErrNoKeywords
	}
	return entries, nil
}

func lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
