package provider

import "fmt"

// Default article length bounds, in words.
const (
	DefaultMinWords = 900
	DefaultMaxWords = 1000
)

// Prompt renders the instruction sent to every provider.
type Prompt struct {
	MinWords int
	MaxWords int
}

// DefaultPrompt uses the default word bounds.
func DefaultPrompt() Prompt {
	return Prompt{MinWords: DefaultMinWords, MaxWords: DefaultMaxWords}
}

// Build returns the prompt for one keyword/URL pair.
func (p Prompt) Build(keyword, url string) string {
	minWords, maxWords := p.MinWords, p.MaxWords
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	if maxWords < minWords {
		maxWords = minWords
	}
	return fmt.Sprintf("Write %d to %d words article on these keywords \"%s\". "+
		"I am creating this article for link building, this is the website url for helping \"%s\". "+
		"Also give me the title of the article, do not use headings, do not use bullet points, "+
		"do not mention or add website URL, do not use curved apostrophes, "+
		"article and keywords must be in english.",
		minWords, maxWords, keyword, url)
}
