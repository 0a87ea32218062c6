// Package cleaner strips the artifacts language models add around an article
// body: title labels, curly apostrophes, em dashes and ragged whitespace.
package cleaner

import (
	"regexp"
	"strings"
)

var (
	titleLabelLine    = regexp.MustCompile(`(?im)^.*title.*:.*$`)
	titleSentenceLine = regexp.MustCompile(`(?im)^.*the title of the article is.*$`)
	// Every whitespace rune except the line feed.
	horizontalSpace = regexp.MustCompile(`[\t\v\f\r\p{Z}\x{FEFF}]+`)

	punctuation = strings.NewReplacer(
		"\u2018", "",
		"\u2019", "",
		"\u2014", " ",
	)
)

// Clean returns text with provider artifacts removed. It never fails and
// Clean(Clean(x)) == Clean(x) for every x.
//
// Punctuation and whitespace are normalized before title lines are matched so
// a second pass cannot uncover a title line the first one missed.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	cleaned := punctuation.Replace(text)
	cleaned = horizontalSpace.ReplaceAllString(cleaned, " ")
	cleaned = titleLabelLine.ReplaceAllString(cleaned, "")
	cleaned = titleSentenceLine.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
