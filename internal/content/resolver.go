package content

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"plain-rss/aggregator/internal/fetch"
)

const pageAccept = "text/html, application/xhtml+xml;q=0.9, */*;q=0.5"

// Resolver follows an entry's primary link and extracts the linked page as text.
type Resolver struct {
	client *fetch.Client
	width  int
}

// NewResolver creates a resolver that wraps text at DefaultWidth columns.
func NewResolver(client *fetch.Client) *Resolver {
	return &Resolver{
		client: client,
		width:  DefaultWidth,
	}
}

// ResolveEntryContent fetches the first link of entry and returns that link and
// the page converted to plain text. Other links are ignored. An entry without
// links resolves to two empty strings and no error. A non-2xx response is a
// failure even when it carries an HTML error page, and so is a page over the
// client's size cap. On failure the link is still returned so the caller can
// keep the item without content.
func (r *Resolver) ResolveEntryContent(ctx context.Context, entry fetch.Entry) (string, string, error) {
	if len(entry.Links) == 0 {
		return "", "", nil
	}
	url := entry.Links[0]

	resp, err := r.client.Get(ctx, url, pageAccept)
	if err != nil {
		return url, "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	body, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Str("content_type", resp.ContentType).
			Msg("Unknown charset, reading page as UTF-8")
		body = bytes.NewReader(resp.Body)
	}

	text, err := HTMLToText(body, r.width)
	if err != nil {
		return url, "", fmt.Errorf("failed to extract text from %s: %w", url, err)
	}

	return url, text, nil
}
