package feed

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxDigestItems caps the number of papers rendered in one digest.
const MaxDigestItems = 20

const ellipsis = "…"

// Digest renders matched papers as a plain-text message.
type Digest struct {
	Category         string
	Keywords         []string
	WindowHours      int
	AbstractMaxChars int
}

// Format renders the header and up to MaxDigestItems paper blocks separated
// by blank lines.
func (d Digest) Format(papers []Paper) string {
	header := fmt.Sprintf("arXiv %s (last %dh) | keywords: %s\nMatches: %d",
		d.Category, d.WindowHours, strings.Join(d.Keywords, ", "), len(papers))
	if len(papers) == 0 {
		return header + "\nNo matches."
	}

	shown := papers
	if len(shown) > MaxDigestItems {
		shown = shown[:MaxDigestItems]
	}
	blocks := make([]string, 0, len(shown)+1)
	for _, p := range shown {
		blocks = append(blocks, fmt.Sprintf("*%s*\n%s\n%s", p.Title, p.URL, Shorten(p.Summary, d.AbstractMaxChars)))
	}
	if extra := len(papers) - MaxDigestItems; extra > 0 {
		blocks = append(blocks, fmt.Sprintf("... and %d more.", extra))
	}

	return header + "\n\n" + strings.Join(blocks, "\n\n")
}

// Shorten returns text unchanged when it has at most maxChars characters.
// Longer text is cut to maxChars-1 characters, stripped of trailing
// whitespace and terminated with a single ellipsis. maxChars < 1 yields "".
func Shorten(text string, maxChars int) string {
	if maxChars < 1 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	cut := strings.TrimRightFunc(string(runes[:maxChars-1]), unicode.IsSpace)
	return cut + ellipsis
}
