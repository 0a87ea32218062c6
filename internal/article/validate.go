package article

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultMaxArticlesPerKeyword is the upper bound used when none is configured.
const DefaultMaxArticlesPerKeyword = 10

// Validate checks r against the submit contract. maxPerKeyword <= 0 selects
// DefaultMaxArticlesPerKeyword. known reports whether a provider is registered.
func (r GenerationRequest) Validate(maxPerKeyword int, known func(ProviderName) bool) error {
	if maxPerKeyword <= 0 {
		maxPerKeyword = DefaultMaxArticlesPerKeyword
	}
	if len(r.Keywords) == 0 {
		return &ValidationError{Field: "keywords", Msg: "at least one keyword is required"}
	}
	for i, entry := range r.Keywords {
		if strings.TrimSpace(entry.Keyword) == "" {
			return &ValidationError{Field: "keywords", Msg: fmt.Sprintf("keyword %d is empty", i+1)}
		}
		if !validURL(entry.URL) {
			return &ValidationError{Field: "keywords", Msg: fmt.Sprintf("invalid url %q", entry.URL)}
		}
	}
	if known != nil && !known(r.APIProvider) {
		return &ValidationError{Field: "apiProvider", Msg: fmt.Sprintf("unknown provider %q", r.APIProvider)}
	}
	if strings.TrimSpace(r.APIKey) == "" {
		return &ValidationError{Field: "apiKey", Msg: "api key is required"}
	}
	if r.ArticlesPerKeyword < 1 || r.ArticlesPerKeyword > maxPerKeyword {
		return &ValidationError{
			Field: "articlesPerKeyword",
			Msg:   fmt.Sprintf("must be between 1 and %d", maxPerKeyword),
		}
	}
	return nil
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
