package importfeeds

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plain-rss/aggregator/internal/database"
)

const testOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Subscriptions</title></head>
  <body>
    <outline type="rss" text="Example" xmlUrl="http://x/feed" htmlUrl="http://x/"/>
    <outline type="link" text="Homepage" url="http://x/"/>
    <outline text="News">
      <outline type="rss" text="Nested" xmlUrl="http://n/feed"/>
    </outline>
    <outline type="rss" text="Broken"/>
    <outline type="RSS" title="Titled only" xmlUrl="http://t/feed"/>
  </body>
</opml>`

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "feeds.db")))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func subscriptionURLs(t *testing.T, db *database.DB) map[string]string {
	t.Helper()
	subs, err := db.ListSubscriptions(context.Background())
	if err != nil {
		t.Fatalf("ListSubscriptions failed: %v", err)
	}
	urls := make(map[string]string, len(subs))
	for _, s := range subs {
		urls[s.Title] = s.URL
	}
	return urls
}

func TestClassify(t *testing.T) {
	outlines, err := ParseOPML(strings.NewReader(testOPML))
	if err != nil {
		t.Fatalf("ParseOPML failed: %v", err)
	}

	want := []Result{
		{Title: "Example", URL: "http://x/feed", Type: "rss", Outcome: OutcomeImported},
		{Title: "Homepage", Type: "link", Outcome: OutcomeNotFeed},
		{Title: "News", Outcome: OutcomeUnknownType},
		{Title: "Nested", URL: "http://n/feed", Type: "rss", Outcome: OutcomeImported},
		{Title: "Broken", Type: "rss", Outcome: OutcomeIncomplete},
		{Title: "Titled only", URL: "http://t/feed", Type: "RSS", Outcome: OutcomeImported},
	}

	got := Classify(outlines)
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestClassifyNestedOutlines(t *testing.T) {
	const doc = `<opml version="2.0"><body>
  <outline text="Tech">
    <outline type="rss" text="Inner" xmlUrl="http://inner/feed"/>
    <outline text="Deeper">
      <outline type="rss" text="Deepest" xmlUrl="http://deep/feed"/>
    </outline>
  </outline>
</body></opml>`

	outlines, err := ParseOPML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseOPML failed: %v", err)
	}

	want := []Result{
		{Title: "Tech", Outcome: OutcomeUnknownType},
		{Title: "Inner", URL: "http://inner/feed", Type: "rss", Outcome: OutcomeImported},
		{Title: "Deeper", Outcome: OutcomeUnknownType},
		{Title: "Deepest", URL: "http://deep/feed", Type: "rss", Outcome: OutcomeImported},
	}

	got := Classify(outlines)
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestImportSkipsUntitledFeeds(t *testing.T) {
	db := newTestDB(t)

	const doc = `<opml version="2.0"><body>
  <outline type="rss" text="" xmlUrl="http://a/feed"/>
  <outline type="rss" xmlUrl="http://b/feed"/>
  <outline type="rss" text="Named" xmlUrl="http://c/feed"/>
</body></opml>`

	summary, err := NewImporter(db).Import(context.Background(), strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if summary.Imported != 1 || summary.Skipped != 2 {
		t.Errorf("expected 1 imported and 2 skipped, got %d and %d", summary.Imported, summary.Skipped)
	}
	for _, res := range summary.Results[:2] {
		if res.Outcome != OutcomeIncomplete {
			t.Errorf("expected untitled outline to be incomplete, got %+v", res)
		}
	}

	urls := subscriptionURLs(t, db)
	if len(urls) != 1 || urls["Named"] != "http://c/feed" {
		t.Errorf("unexpected subscriptions %v", urls)
	}
}

func TestImport(t *testing.T) {
	db := newTestDB(t)

	summary, err := NewImporter(db).Import(context.Background(), strings.NewReader(testOPML))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if summary.Imported != 3 || summary.Skipped != 3 {
		t.Errorf("unexpected summary: imported=%d skipped=%d", summary.Imported, summary.Skipped)
	}

	urls := subscriptionURLs(t, db)
	if len(urls) != 3 {
		t.Fatalf("expected 3 subscriptions, got %v", urls)
	}
	if urls["Example"] != "http://x/feed" {
		t.Errorf("unexpected Example URL %q", urls["Example"])
	}
	if _, ok := urls["Broken"]; ok {
		t.Error("feed outline without xmlUrl must not be stored")
	}
}

func TestImportTwiceIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	importer := NewImporter(db)

	for i := 0; i < 2; i++ {
		if _, err := importer.Import(context.Background(), strings.NewReader(testOPML)); err != nil {
			t.Fatalf("Import %d failed: %v", i, err)
		}
	}

	if urls := subscriptionURLs(t, db); len(urls) != 3 {
		t.Errorf("expected 3 subscriptions after two imports, got %v", urls)
	}
}

func TestImportUpdatesChangedURL(t *testing.T) {
	db := newTestDB(t)
	importer := NewImporter(db)

	first := `<opml version="1.0"><body><outline type="rss" text="Example" xmlUrl="http://x/feed"/></body></opml>`
	second := `<opml version="1.0"><body><outline type="rss" text="Example" xmlUrl="http://x/feed-v2"/></body></opml>`

	for _, doc := range []string{first, second} {
		if _, err := importer.Import(context.Background(), strings.NewReader(doc)); err != nil {
			t.Fatalf("Import failed: %v", err)
		}
	}

	urls := subscriptionURLs(t, db)
	if len(urls) != 1 || urls["Example"] != "http://x/feed-v2" {
		t.Errorf("expected a single updated row, got %v", urls)
	}
}

func TestImportMalformedDocument(t *testing.T) {
	db := newTestDB(t)

	tests := []struct {
		name string
		doc  string
	}{
		{name: "not xml", doc: "this is not opml"},
		{name: "truncated", doc: `<opml><body><outline type="rss" text="A" xmlUrl="http://a"/>`},
		{name: "wrong root", doc: `<rss><channel/></rss>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewImporter(db).Import(context.Background(), strings.NewReader(tt.doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if urls := subscriptionURLs(t, db); len(urls) != 0 {
		t.Errorf("malformed documents must not write subscriptions, got %v", urls)
	}
}

func TestImportMissingBody(t *testing.T) {
	_, err := ParseOPML(strings.NewReader(`<opml version="2.0"><head/></opml>`))
	if !errors.Is(err, ErrMissingBody) {
		t.Fatalf("expected ErrMissingBody, got %v", err)
	}
}

func TestImportFile(t *testing.T) {
	db := newTestDB(t)
	path := filepath.Join(t.TempDir(), "feeds.opml")
	if err := os.WriteFile(path, []byte(testOPML), 0644); err != nil {
		t.Fatalf("failed to write opml: %v", err)
	}

	summary, err := NewImporter(db).ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if summary.Imported != 3 {
		t.Errorf("expected 3 imported, got %d", summary.Imported)
	}

	if _, err := NewImporter(db).ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.opml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPreviewDoesNotWrite(t *testing.T) {
	summary, err := Preview(strings.NewReader(testOPML))
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if summary.Imported != 3 || len(summary.Results) != 6 {
		t.Errorf("unexpected preview summary %+v", summary)
	}

	var buf bytes.Buffer
	PrintSummary(&buf, summary)
	out := buf.String()
	for _, want := range []string{
		" RSS: Example\n  http://x/feed\n",
		" Not RSS (link): Homepage\n",
		" Unknown type: News\n",
		" No XML URL: Broken\n",
		"3 feeds, 3 outlines skipped\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestParseOPMLLatin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<opml version=\"2.0\"><body><outline type=\"rss\" text=\"Caf\xe9\" xmlUrl=\"http://c/feed\"/></body></opml>"

	outlines, err := ParseOPML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseOPML failed: %v", err)
	}
	if len(outlines) != 1 || outlines[0].Text != "Café" {
		t.Errorf("unexpected outlines %+v", outlines)
	}
}
