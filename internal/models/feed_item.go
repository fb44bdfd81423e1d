package models

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"
)

// DefaultItemTitle is stored for entries that carry no title.
const DefaultItemTitle = "(no title)"

// FeedItem represents a row in the FEED_ITEMS table
type FeedItem struct {
	ItemKey   string       `db:"ITEM_KEY"`
	FeedTitle string       `db:"FEED_TITLE"` // TITLE from the 'FEEDS' table
	Title     string       `db:"TITLE"`
	URL       string       `db:"URL"`
	Content   string       `db:"CONTENT"`
	FetchedAt sql.NullTime `db:"FETCHED_AT"`
}

// NewFeedItem creates a new FeedItem for the given feed with default values
func NewFeedItem(feedTitle string) *FeedItem {
	return &FeedItem{
		FeedTitle: feedTitle,
		Title:     DefaultItemTitle,
		FetchedAt: sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
}

// ItemTitle returns title, or DefaultItemTitle when title is blank.
func ItemTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return DefaultItemTitle
	}
	return title
}

// ItemKey derives the dedup key of an item within a feed. The first non-empty
// identifier among guid, url and title is hashed together with the feed title.
func ItemKey(feedTitle, guid, url, title string) string {
	id := guid
	if id == "" {
		id = url
	}
	if id == "" {
		id = title
	}

	hash := sha256.Sum256([]byte(feedTitle + "|" + id))
	return hex.EncodeToString(hash[:])
}
