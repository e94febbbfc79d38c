package feed

import (
	"strings"
)

// Paper is one arXiv submission as read from the Atom feed.
type Paper struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	URL       string `json:"url"`
	Published string `json:"published"`
	Updated   string `json:"updated"`
}

// DigestResult is the outcome of one fetch cycle.
type DigestResult struct {
	Query     string
	Fetched   int
	Matches   []Paper
	Text      string
	Delivered bool
}

// NormalizeWhitespace collapses every run of whitespace to a single space and
// trims both ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
