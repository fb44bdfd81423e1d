package importfeeds

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"plain-rss/aggregator/internal/database"
)

// Summary reports the outcome of every outline of an imported document.
type Summary struct {
	Results  []Result
	Imported int
	Skipped  int
}

func newSummary(results []Result) *Summary {
	s := &Summary{Results: results}
	for _, res := range results {
		if res.Outcome == OutcomeImported {
			s.Imported++
		} else {
			s.Skipped++
		}
	}
	return s
}

// Importer handles the OPML import process
type Importer struct {
	db *database.DB
}

// NewImporter creates a new OPML importer
func NewImporter(db *database.DB) *Importer {
	return &Importer{db: db}
}

// ImportFile imports the subscriptions listed in the OPML file at path.
func (i *Importer) ImportFile(ctx context.Context, path string) (*Summary, error) {
	log.Info().Str("opml", path).Msg("Starting OPML import")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read opml file: %w", err)
	}
	defer f.Close()

	summary, err := i.Import(ctx, f)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("imported", summary.Imported).
		Int("skipped", summary.Skipped).
		Msg("Import summary")
	return summary, nil
}

// Import parses an OPML document and upserts one subscription per feed
// outline. Outlines that are not feeds, or feeds missing an xmlUrl or a title,
// are reported and skipped. Only a
// malformed document or a store failure aborts the import, in which case no
// subscription of the document is written.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*Summary, error) {
	outlines, err := ParseOPML(r)
	if err != nil {
		return nil, err
	}

	results := Classify(outlines)

	err = i.db.InTx(ctx, func(tx *database.Tx) error {
		for _, res := range results {
			logger := log.With().Str("title", res.Title).Logger()

			switch res.Outcome {
			case OutcomeImported:
				if err := tx.UpsertSubscription(ctx, res.Title, res.URL); err != nil {
					return err
				}
				logger.Info().Str("url", res.URL).Msg("Imported feed")
			case OutcomeNotFeed:
				logger.Info().Str("type", res.Type).Msg("Skipping outline, not a feed")
			case OutcomeUnknownType:
				logger.Info().Msg("Skipping outline, unknown type")
			case OutcomeIncomplete:
				logger.Info().Msg("Skipping feed outline without feed URL or title")
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import feeds: %w", err)
	}

	return newSummary(results), nil
}

// Preview parses an OPML document and classifies its outlines without
// writing anything.
func Preview(r io.Reader) (*Summary, error) {
	outlines, err := ParseOPML(r)
	if err != nil {
		return nil, err
	}
	return newSummary(Classify(outlines)), nil
}

// PrintSummary writes one line per outline followed by totals.
func PrintSummary(w io.Writer, s *Summary) {
	for _, res := range s.Results {
		switch res.Outcome {
		case OutcomeImported:
			fmt.Fprintf(w, " RSS: %s\n  %s\n", res.Title, res.URL)
		case OutcomeNotFeed:
			fmt.Fprintf(w, " Not RSS (%s): %s\n", res.Type, res.Title)
		case OutcomeUnknownType:
			fmt.Fprintf(w, " Unknown type: %s\n", res.Title)
		case OutcomeIncomplete:
			fmt.Fprintf(w, " No XML URL: %s\n", res.Title)
		}
	}
	fmt.Fprintf(w, "%d feeds, %d outlines skipped\n", s.Imported, s.Skipped)
}
