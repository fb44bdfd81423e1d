package models

import "testing"

func TestItemTitle(t *testing.T) {
	tests := map[string]string{
		"":        DefaultItemTitle,
		"   ":     DefaultItemTitle,
		"Hello":   "Hello",
		" Hello ": " Hello ",
	}
	for in, want := range tests {
		if got := ItemTitle(in); got != want {
			t.Errorf("ItemTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestItemKey(t *testing.T) {
	byURL := ItemKey("Example", "", "http://x/a", "Hello")
	if byURL != ItemKey("Example", "", "http://x/a", "Renamed") {
		t.Error("key must not depend on the title when a URL is present")
	}
	if byURL == ItemKey("Other", "", "http://x/a", "Hello") {
		t.Error("key must depend on the feed title")
	}

	byGUID := ItemKey("Example", "urn:1", "http://x/a", "Hello")
	if byGUID != ItemKey("Example", "urn:1", "http://x/moved", "Hello") {
		t.Error("GUID must take precedence over the URL")
	}

	byTitle := ItemKey("Example", "", "", "Hello")
	if byTitle == ItemKey("Example", "", "", "World") {
		t.Error("entries without GUID and URL are keyed by title")
	}

	if len(byURL) != 64 {
		t.Errorf("expected hex sha256, got %q", byURL)
	}
}

func TestNewFeedItem(t *testing.T) {
	item := NewFeedItem("Example")
	if item.FeedTitle != "Example" || item.Title != DefaultItemTitle {
		t.Errorf("unexpected defaults %+v", item)
	}
	if !item.FetchedAt.Valid {
		t.Error("expected FetchedAt to be set")
	}
}
