package feed

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// KeywordFilter keeps papers whose title or summary mention any of a set of
// keywords. Matching is case-insensitive and by plain substring, so "3d"
// matches "3dprinting".
//
// An empty keyword set matches nothing. That is intended: a digest with no
// keywords configured reports zero matches rather than the whole category.
// A KeywordFilter is not safe for concurrent use.
type KeywordFilter struct {
	keywords []string
	matcher  *ahocorasick.Matcher
	matchAll bool
}

func NewKeywordFilter(keywords []string) *KeywordFilter {
	kf := &KeywordFilter{}
	for _, kw := range keywords {
		lowered := strings.ToLower(kw)
		if lowered == "" {
			// The empty string is a substring of every text.
			kf.matchAll = true
			continue
		}
		kf.keywords = append(kf.keywords, lowered)
	}
	if len(kf.keywords) > 0 {
		kf.matcher = ahocorasick.NewStringMatcher(kf.keywords)
	}
	return kf
}

// Match reports whether p mentions at least one keyword.
func (kf *KeywordFilter) Match(p Paper) bool {
	if kf.matchAll {
		return true
	}
	if kf.matcher == nil {
		return false
	}
	text := strings.ToLower(p.Title + "\n" + p.Summary)
	return len(kf.matcher.Match([]byte(text))) > 0
}

// Filter returns the matching papers in their original order.
func (kf *KeywordFilter) Filter(papers []Paper) []Paper {
	matched := make([]Paper, 0, len(papers))
	for _, p := range papers {
		if kf.Match(p) {
			matched = append(matched, p)
		}
	}
	return matched
}

// FilterPapers is a shorthand for NewKeywordFilter(keywords).Filter(papers).
func FilterPapers(papers []Paper, keywords []string) []Paper {
	return NewKeywordFilter(keywords).Filter(papers)
}
