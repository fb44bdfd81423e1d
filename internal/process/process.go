package process

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"plain-rss/aggregator/internal/fetch"
	"plain-rss/aggregator/internal/models"
)

// Store is the persistence used by a refresh.
type Store interface {
	ListSubscriptions(ctx context.Context) ([]models.Subscription, error)
	SaveFeedItems(ctx context.Context, items []models.FeedItem) (inserted, updated int, err error)
}

// FeedFetcher retrieves and parses one feed.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, url string) (*fetch.Feed, error)
}

// ContentResolver turns an entry into its resolved link and plain text.
type ContentResolver interface {
	ResolveEntryContent(ctx context.Context, entry fetch.Entry) (url string, text string, err error)
}

// Stats summarizes one refresh run.
type Stats struct {
	Feeds           int
	FailedFeeds     int
	Items           int
	Inserted        int
	Updated         int
	ContentFailures int
}

// feedResult carries a fetched feed's items from a worker to the writer.
type feedResult struct {
	sub   models.Subscription
	items []models.FeedItem
}

// FeedProcessor refreshes every subscription: it fetches each feed, resolves
// each entry's content and upserts the resulting items.
type FeedProcessor struct {
	store    Store
	fetcher  FeedFetcher
	resolver ContentResolver

	WorkerCount int

	failedFeeds     atomic.Int64
	contentFailures atomic.Int64
}

// NewFeedProcessor creates a processor. With workerCount <= 1 feeds are
// processed one at a time in subscription order.
func NewFeedProcessor(store Store, fetcher FeedFetcher, resolver ContentResolver, workerCount int) (*FeedProcessor, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if fetcher == nil || resolver == nil {
		return nil, fmt.Errorf("fetcher and resolver are required")
	}
	if workerCount < 1 {
		workerCount = 1
	}

	return &FeedProcessor{
		store:       store,
		fetcher:     fetcher,
		resolver:    resolver,
		WorkerCount: workerCount,
	}, nil
}

// Refresh runs one pass over the subscriptions present when it starts. A feed
// that cannot be fetched or parsed is logged and skipped, and so is an entry
// whose page cannot be fetched (its item is kept without content). Only
// failing to list subscriptions, failing to write items, or cancellation of
// ctx end the run with an error.
func (p *FeedProcessor) Refresh(ctx context.Context) (Stats, error) {
	p.failedFeeds.Store(0)
	p.contentFailures.Store(0)

	subs, err := p.store.ListSubscriptions(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	log.Info().Int("feeds", len(subs)).Msg("Found feeds to refresh")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	feedQueue := make(chan models.Subscription)
	resultQueue := make(chan feedResult, p.WorkerCount)

	var workerWg sync.WaitGroup
	for i := 0; i < p.WorkerCount; i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			p.feedWorker(runCtx, feedQueue, resultQueue)
		}()
	}

	go func() {
		workerWg.Wait()
		close(resultQueue)
	}()

	stats := Stats{Feeds: len(subs)}
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- p.databaseWriter(runCtx, resultQueue, &stats, cancel)
	}()

feedLoop:
	for _, sub := range subs {
		select {
		case feedQueue <- sub:
		case <-runCtx.Done():
			break feedLoop
		}
	}
	close(feedQueue)

	err = <-writeErr
	stats.FailedFeeds = int(p.failedFeeds.Load())
	stats.ContentFailures = int(p.contentFailures.Load())

	if err != nil {
		return stats, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stats, ctxErr
	}
	return stats, nil
}

// feedWorker fetches queued subscriptions and resolves their entries.
func (p *FeedProcessor) feedWorker(ctx context.Context, feedQueue <-chan models.Subscription, results chan<- feedResult) {
	for sub := range feedQueue {
		if ctx.Err() != nil {
			continue
		}

		items, err := p.processFeed(ctx, sub)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				p.failedFeeds.Add(1)
				log.Warn().
					Err(err).
					Str("title", sub.Title).
					Str("url", sub.URL).
					Msg("Failed to refresh feed")
			}
			continue
		}

		select {
		case results <- feedResult{sub: sub, items: items}:
		case <-ctx.Done():
		}
	}
}

// processFeed fetches one feed and builds an item per entry.
func (p *FeedProcessor) processFeed(ctx context.Context, sub models.Subscription) ([]models.FeedItem, error) {
	logger := log.With().Str("feed", sub.Title).Logger()
	logger.Debug().Str("url", sub.URL).Msg("Refreshing feed")

	feed, err := p.fetcher.FetchFeed(ctx, sub.URL)
	if err != nil {
		return nil, err
	}

	items := make([]models.FeedItem, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		item := models.NewFeedItem(sub.Title)
		item.Title = models.ItemTitle(entry.Title)

		url, text, err := p.resolver.ResolveEntryContent(ctx, entry)
		if err != nil {
			p.contentFailures.Add(1)
			logger.Warn().
				Err(err).
				Str("item", item.Title).
				Str("url", url).
				Msg("Failed to resolve entry content, keeping item without content")
		}
		item.URL = url
		item.Content = text
		item.ItemKey = models.ItemKey(sub.Title, entry.GUID, url, entry.Title)

		items = append(items, *item)
	}

	return items, nil
}

// databaseWriter serializes all item writes. A write failure cancels the run;
// remaining results are drained so workers can exit.
func (p *FeedProcessor) databaseWriter(ctx context.Context, results <-chan feedResult, stats *Stats, cancel context.CancelFunc) error {
	var firstErr error
	for res := range results {
		if firstErr != nil {
			continue
		}

		start := time.Now()
		inserted, updated, err := p.store.SaveFeedItems(ctx, res.items)
		if err != nil {
			firstErr = fmt.Errorf("failed to save items of %q: %w", res.sub.Title, err)
			log.Error().Err(err).Str("feed", res.sub.Title).Msg("Failed to save feed items")
			cancel()
			continue
		}

		stats.Items += len(res.items)
		stats.Inserted += inserted
		stats.Updated += updated

		log.Info().
			Str("feed", res.sub.Title).
			Int("items", len(res.items)).
			Int("inserted", inserted).
			Int("updated", updated).
			Dur("duration", time.Since(start)).
			Msg("Feed refreshed")
	}
	return firstErr
}
