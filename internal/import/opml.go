package importfeeds

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// FeedType is the outline type attribute value that marks a syndication feed.
const FeedType = "rss"

// Outcome classifies what the importer did with one outline.
type Outcome string

const (
	OutcomeImported    Outcome = "imported"
	OutcomeNotFeed     Outcome = "not_feed"
	OutcomeUnknownType Outcome = "unknown_type"
	OutcomeIncomplete  Outcome = "incomplete"
)

// ErrMissingBody is returned for OPML documents without a <body> element.
var ErrMissingBody = errors.New("opml document has no body")

type opmlDocument struct {
	XMLName xml.Name  `xml:"opml"`
	Body    *opmlBody `xml:"body"`
}

type opmlBody struct {
	Outlines []Outline `xml:"outline"`
}

// Outline is an OPML outline element. Type and XMLURL are nil when the
// attribute is absent.
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr"`
	Type     *string   `xml:"type,attr"`
	XMLURL   *string   `xml:"xmlUrl,attr"`
	Outlines []Outline `xml:"outline"`
}

// Result is the classification of one outline.
type Result struct {
	Title   string
	URL     string
	Type    string
	Outcome Outcome
}

// ParseOPML decodes an OPML document and returns its top-level outlines.
func ParseOPML(r io.Reader) ([]Outline, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var doc opmlDocument
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed opml document: %w", err)
	}
	if doc.Body == nil {
		return nil, ErrMissingBody
	}

	return doc.Body.Outlines, nil
}

// Classify walks outlines depth first and decides, for each, whether it is an
// importable feed subscription. Children of a category outline are classified
// like top-level ones, so feeds grouped in folders are imported too.
func Classify(outlines []Outline) []Result {
	var results []Result
	var visit func([]Outline)
	visit = func(list []Outline) {
		for _, outline := range list {
			results = append(results, classify(outline))
			visit(outline.Outlines)
		}
	}
	visit(outlines)
	return results
}

// classify decides the outcome of one outline. A feed outline without an
// xmlUrl is incomplete, and so is one with an xmlUrl but neither text nor
// title: the title is the subscription key and an empty one would make every
// untitled feed overwrite the others.
func classify(outline Outline) Result {
	// text may carry markup; it is stored as given
	title := outline.Text
	if strings.TrimSpace(title) == "" {
		title = outline.Title
	}
	res := Result{Title: title}

	if outline.Type == nil {
		res.Outcome = OutcomeUnknownType
		return res
	}
	res.Type = *outline.Type

	if !strings.EqualFold(strings.TrimSpace(res.Type), FeedType) {
		res.Outcome = OutcomeNotFeed
		return res
	}

	if outline.XMLURL == nil || strings.TrimSpace(*outline.XMLURL) == "" || strings.TrimSpace(title) == "" {
		res.Outcome = OutcomeIncomplete
		return res
	}

	res.URL = strings.TrimSpace(*outline.XMLURL)
	res.Outcome = OutcomeImported
	return res
}
