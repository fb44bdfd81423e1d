package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"plain-rss/aggregator/internal/config"
	"plain-rss/aggregator/internal/content"
	"plain-rss/aggregator/internal/database"
	"plain-rss/aggregator/internal/fetch"
	importfeeds "plain-rss/aggregator/internal/import"
	"plain-rss/aggregator/internal/process"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintln(fs.Output(), "Usage: aggregator [options] <db-path> <opml-path>")
		fmt.Fprintln(fs.Output(), "\nImports the feeds listed in the OPML file into the database, then refreshes them.")
		fmt.Fprintln(fs.Output(), "\nOptions:")
		fs.PrintDefaults()
	}
}

func main() {
	cfg := config.DefaultConfig()

	fs := flag.NewFlagSet("aggregator", flag.ExitOnError)
	fs.Usage = usage(fs)

	var logLevelStr string
	fs.StringVar(&logLevelStr, "log-level", "",
		"Log level: debug, info, warn, error (env: AGGREGATOR_LOG_LEVEL, default: "+config.DefaultLogLevel+")")

	fs.IntVar(&cfg.WorkerCount, "workers", config.GetEnvInt("AGGREGATOR_WORKER_COUNT", config.DefaultWorkerCount),
		"Number of feeds refreshed in parallel (env: AGGREGATOR_WORKER_COUNT)")

	fs.DurationVar(&cfg.HTTPTimeout, "timeout", config.GetEnvDuration("AGGREGATOR_HTTP_TIMEOUT", config.DefaultHTTPTimeout),
		"Timeout of each HTTP request (env: AGGREGATOR_HTTP_TIMEOUT)")

	fs.StringVar(&cfg.UserAgent, "user-agent", config.GetEnvString("AGGREGATOR_USER_AGENT", config.DefaultUserAgent),
		"User-Agent header sent with every request (env: AGGREGATOR_USER_AGENT)")

	var intervalMinutes int
	fs.IntVar(&intervalMinutes, "interval", config.GetEnvInt("AGGREGATOR_INTERVAL", config.DefaultInterval),
		"Minutes between refresh runs, 0 for one-shot mode (env: AGGREGATOR_INTERVAL)")

	fs.BoolVar(&cfg.DryRun, "dry-run", config.GetEnvBool("AGGREGATOR_DRY_RUN", false),
		"Only list the OPML outlines and what would be imported (env: AGGREGATOR_DRY_RUN)")

	fs.Parse(os.Args[1:])

	if err := cfg.SetPaths(fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		os.Exit(1)
	}

	cfg.LogLevel = config.GetEnvLogLevel("AGGREGATOR_LOG_LEVEL", cfg.LogLevel)
	if logLevelStr != "" {
		level, err := zerolog.ParseLevel(strings.ToLower(logLevelStr))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid log level %q\n", logLevelStr)
			os.Exit(1)
		}
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	cfg.Interval = time.Duration(intervalMinutes) * time.Minute

	var err error
	if cfg.DryRun {
		err = runPreview(cfg)
	} else {
		err = run(cfg)
	}
	if err != nil {
		log.Error().Err(err).Msg("Aggregator failed")
		os.Exit(1)
	}
}

// runPreview prints how each OPML outline would be treated without touching the database.
func runPreview(cfg *config.Config) error {
	f, err := os.Open(cfg.OPMLPath)
	if err != nil {
		return fmt.Errorf("unable to read opml file: %w", err)
	}
	defer f.Close()

	summary, err := importfeeds.Preview(f)
	if err != nil {
		return err
	}

	fmt.Printf("OPML path: %s\n", cfg.OPMLPath)
	importfeeds.PrintSummary(os.Stdout, summary)
	return nil
}

// run imports the OPML file and refreshes all subscriptions, once or periodically.
func run(cfg *config.Config) error {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		select {
		case sig := <-shutdown:
			log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	summary, err := importfeeds.NewImporter(db).ImportFile(ctx, cfg.OPMLPath)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d feeds, skipped %d outlines\n", summary.Imported, summary.Skipped)

	client := fetch.NewClient(cfg.HTTPTimeout, cfg.UserAgent, cfg.MaxBodySize)
	processor, err := process.NewFeedProcessor(db, fetch.NewFetcher(client), content.NewResolver(client), cfg.WorkerCount)
	if err != nil {
		return fmt.Errorf("failed to initialize feed processor: %w", err)
	}

	err = refreshLoop(ctx, cfg.Interval, func(ctx context.Context) error {
		return runRefreshCycle(ctx, processor)
	})
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("Refresh canceled by shutdown signal")
		return nil
	}
	return err
}

// refreshLoop runs refresh once and then on every tick of interval until ctx
// is canceled. With a non-positive interval it returns after the first run.
// Any refresh error ends the loop and is returned.
func refreshLoop(ctx context.Context, interval time.Duration, refresh func(context.Context) error) error {
	if err := refresh(ctx); err != nil {
		return err
	}
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Time("next_run", time.Now().Add(interval)).Msg("Waiting for next refresh")

	for {
		select {
		case <-ticker.C:
			if err := refresh(ctx); err != nil {
				return err
			}
			log.Info().Time("next_run", time.Now().Add(interval)).Msg("Waiting for next refresh")

		case <-ctx.Done():
			log.Info().Msg("Shutting down periodic refresh")
			return nil
		}
	}
}

// runRefreshCycle executes a single refresh over all subscriptions.
func runRefreshCycle(ctx context.Context, processor *process.FeedProcessor) error {
	log.Info().Int("worker_count", processor.WorkerCount).Msg("Starting refresh")

	start := time.Now()
	stats, err := processor.Refresh(ctx)

	log.Info().
		Dur("duration", time.Since(start)).
		Int("feeds", stats.Feeds).
		Int("failed_feeds", stats.FailedFeeds).
		Int("items", stats.Items).
		Int("inserted", stats.Inserted).
		Int("updated", stats.Updated).
		Int("content_failures", stats.ContentFailures).
		Msg("Refresh finished")

	if err != nil {
		return fmt.Errorf("refresh error: %w", err)
	}

	fmt.Printf("Refreshed %d of %d feeds: %d items (%d new)\n",
		stats.Feeds-stats.FailedFeeds, stats.Feeds, stats.Items, stats.Inserted)
	return nil
}
