package fetch

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
)

const feedAccept = "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"

// Entry is one item of a parsed feed.
type Entry struct {
	Title string   // empty when the source has no title
	GUID  string   // stable identifier when the format provides one
	Links []string // in source order, first is the primary link
}

// Feed is a parsed syndication document.
type Feed struct {
	Title   string
	Entries []Entry
}

// Fetcher retrieves and parses RSS, Atom and JSON feeds. It is safe for
// concurrent use.
type Fetcher struct {
	client *Client
}

// NewFetcher creates a feed fetcher on top of client.
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchFeed performs a single GET of url and parses the body.
func (f *Fetcher) FetchFeed(ctx context.Context, url string) (*Feed, error) {
	resp, err := f.client.Get(ctx, url, feedAccept)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	feed, err := f.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	return feed, nil
}

// Parse converts a raw feed document into a Feed.
func (f *Fetcher) Parse(data []byte) (*Feed, error) {
	// gofeed parsers keep per-document state.
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	// Translated Atom items only keep alternate and self links.
	var atomLinks [][]string
	if parsed.FeedType == "atom" {
		atomLinks = atomEntryLinks(data)
	}

	feed := &Feed{
		Title:   strings.TrimSpace(parsed.Title),
		Entries: make([]Entry, 0, len(parsed.Items)),
	}
	for i, item := range parsed.Items {
		if item == nil {
			continue
		}
		links := entryLinks(item)
		if i < len(atomLinks) {
			links = atomLinks[i]
		}
		feed.Entries = append(feed.Entries, Entry{
			Title: strings.TrimSpace(item.Title),
			GUID:  strings.TrimSpace(item.GUID),
			Links: links,
		})
	}

	return feed, nil
}

// entryLinks collects the item's link, its alternate links and its enclosures
// without duplicates, keeping the order in which the source lists them.
func entryLinks(item *gofeed.Item) []string {
	links := append([]string{item.Link}, item.Links...)
	for _, enclosure := range item.Enclosures {
		if enclosure != nil {
			links = append(links, enclosure.URL)
		}
	}
	return uniqueLinks(links)
}

// atomEntryLinks returns, per Atom entry, every link href in document order
// whatever its rel. The result is nil when the document cannot be parsed as Atom.
func atomEntryLinks(data []byte) [][]string {
	doc, err := (&atom.Parser{}).Parse(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	out := make([][]string, len(doc.Entries))
	for i, entry := range doc.Entries {
		var hrefs []string
		if entry != nil {
			for _, link := range entry.Links {
				if link != nil {
					hrefs = append(hrefs, link.Href)
				}
			}
		}
		out[i] = uniqueLinks(hrefs)
	}
	return out
}

// uniqueLinks drops blank and repeated links, keeping first occurrences in order.
func uniqueLinks(candidates []string) []string {
	var links []string
	seen := make(map[string]bool)
	for _, link := range candidates {
		link = strings.TrimSpace(link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}
	return links
}
