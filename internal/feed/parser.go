package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"golang.org/x/net/html/charset"
)

const atomNamespace = "http://www.w3.org/2005/Atom"

// Parse reads an Atom document and returns its entries as papers, in feed
// order. Missing entry fields become empty strings; a payload that is not
// well-formed XML with an Atom feed root is an error.
func Parse(data []byte) ([]Paper, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedFeed)
	}
	if err := checkDocument(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	if feedType := gofeed.DetectFeedType(bytes.NewReader(data)); feedType != gofeed.FeedTypeAtom {
		return nil, fmt.Errorf("%w: not an Atom document", ErrMalformedFeed)
	}

	parser := &atom.Parser{}
	parsed, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	if parsed == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedFeed)
	}

	papers := make([]Paper, 0, len(parsed.Entries))
	for _, entry := range parsed.Entries {
		if entry == nil {
			continue
		}
		papers = append(papers, paperFromEntry(entry))
	}
	return papers, nil
}

// checkDocument reads data with a strict XML decoder; gofeed's parser is
// lenient. It rejects mismatched tags, undefined entities and
// anything but whitespace or comments after the root, and requires the root
// to be an Atom feed element.
func checkDocument(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	depth := 0
	seenRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if seenRoot {
					return fmt.Errorf("unexpected element <%s> after document root", t.Name.Local)
				}
				if t.Name.Space != atomNamespace || t.Name.Local != "feed" {
					return fmt.Errorf("root element {%s}%s is not an Atom feed", t.Name.Space, t.Name.Local)
				}
				seenRoot = true
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return errors.New("text outside document root")
			}
		}
	}
	if !seenRoot {
		return errors.New("no root element")
	}
	return nil
}

func paperFromEntry(entry *atom.Entry) Paper {
	rawID := strings.TrimSpace(entry.ID)
	link := alternateLink(entry.Links)
	if link == "" {
		link = rawID
	}
	return Paper{
		ID:        idFromURL(rawID),
		Title:     NormalizeWhitespace(entry.Title),
		Summary:   NormalizeWhitespace(entry.Summary),
		URL:       link,
		Published: strings.TrimSpace(entry.Published),
		Updated:   strings.TrimSpace(entry.Updated),
	}
}

func alternateLink(links []*atom.Link) string {
	for _, l := range links {
		if l != nil && l.Rel == "alternate" {
			return l.Href
		}
	}
	return ""
}

// idFromURL returns the last path segment of an entry id such as
// http://arxiv.org/abs/2401.00001v1.
func idFromURL(rawID string) string {
	if rawID == "" {
		return ""
	}
	return rawID[strings.LastIndex(rawID, "/")+1:]
}

// isAPIError reports whether p is the pseudo-entry arXiv returns to describe
// a rejected query.
func isAPIError(p Paper) bool {
	return strings.Contains(p.URL, "arxiv.org/api/errors")
}
