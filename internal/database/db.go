package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"plain-rss/aggregator/internal/database/migrations"
	"plain-rss/aggregator/internal/models"
)

// DB represents the database connection
type DB struct {
	*sqlx.DB
}

// Tx is a transaction scoped to a set of store writes.
type Tx struct {
	*sqlx.Tx
}

// NewDB opens the SQLite database at cfg.DBPath and brings its schema up to date.
// Opening is idempotent: tables are only created when missing.
func NewDB(cfg *Config) (*DB, error) {
	dir := filepath.Dir(cfg.DBPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	cfg.withDefaults()

	// FEED_ITEMS.FEED_TITLE references FEEDS but is not enforced, so that
	// replacing a subscription never fails because of its items.
	dsn := fmt.Sprintf("file:%s?_journal=WAL&_synchronous=NORMAL&_busy_timeout=%d&_foreign_keys=off",
		cfg.DBPath, cfg.BusyTimeoutMS)

	log.Debug().Str("path", cfg.DBPath).Msg("Opening database")

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pragmas := []string{
		fmt.Sprintf("PRAGMA cache_size = %d;", cfg.CacheSizeKB),
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("Failed to set PRAGMA")
		}
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	store := &DB{db}
	if err := store.Initialize(); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug().Str("path", cfg.DBPath).Msg("Database ready")
	return store, nil
}

// Initialize ensures the FEEDS and FEED_ITEMS tables exist by applying any
// pending embedded migrations. It is safe to call on every startup.
func (db *DB) Initialize() error {
	migrationFiles, err := migrations.Embedded()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if err := migrations.RunMigrations(db.DB.DB, migrationFiles); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// InTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (db *DB) InTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil {
				log.Debug().Err(rbErr).Msg("Transaction rollback failed")
			}
			return
		}
		if err = sqlTx.Commit(); err != nil {
			err = fmt.Errorf("failed to commit transaction: %w", err)
		}
	}()

	return fn(&Tx{sqlTx})
}

const upsertSubscriptionQuery = `INSERT OR REPLACE INTO FEEDS (TITLE, URL) VALUES (?, ?)`

// UpsertSubscription inserts a subscription or replaces the row sharing its title.
func (db *DB) UpsertSubscription(ctx context.Context, title, url string) error {
	if _, err := db.ExecContext(ctx, upsertSubscriptionQuery, title, url); err != nil {
		return fmt.Errorf("failed to upsert subscription %q: %w", title, err)
	}
	return nil
}

// UpsertSubscription inserts a subscription or replaces the row sharing its title.
func (tx *Tx) UpsertSubscription(ctx context.Context, title, url string) error {
	if _, err := tx.ExecContext(ctx, upsertSubscriptionQuery, title, url); err != nil {
		return fmt.Errorf("failed to upsert subscription %q: %w", title, err)
	}
	return nil
}

// ListSubscriptions returns every subscription ordered by title.
func (db *DB) ListSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	subs := []models.Subscription{}
	if err := db.SelectContext(ctx, &subs, `SELECT TITLE, URL FROM FEEDS ORDER BY TITLE`); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

const (
	feedItemExistsQuery = `SELECT COUNT(*) FROM FEED_ITEMS WHERE ITEM_KEY = ?`
	upsertFeedItemQuery = `
		INSERT INTO FEED_ITEMS (ITEM_KEY, FEED_TITLE, TITLE, URL, CONTENT, FETCHED_AT)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(ITEM_KEY) DO UPDATE SET
			FEED_TITLE = excluded.FEED_TITLE,
			TITLE = excluded.TITLE,
			URL = excluded.URL,
			CONTENT = excluded.CONTENT,
			FETCHED_AT = excluded.FETCHED_AT`
)

// UpsertFeedItem inserts item, or updates the row sharing its item key.
// It reports whether a new row was created.
func (db *DB) UpsertFeedItem(ctx context.Context, item *models.FeedItem) (bool, error) {
	var inserted bool
	err := db.InTx(ctx, func(tx *Tx) error {
		var err error
		inserted, err = tx.UpsertFeedItem(ctx, item)
		return err
	})
	return inserted, err
}

// UpsertFeedItem inserts item, or updates the row sharing its item key.
func (tx *Tx) UpsertFeedItem(ctx context.Context, item *models.FeedItem) (bool, error) {
	if item.ItemKey == "" {
		return false, fmt.Errorf("feed item %q of %q has no item key", item.Title, item.FeedTitle)
	}

	var existing int
	if err := tx.GetContext(ctx, &existing, feedItemExistsQuery, item.ItemKey); err != nil {
		return false, fmt.Errorf("failed to look up feed item %s: %w", item.ItemKey, err)
	}

	_, err := tx.ExecContext(ctx, upsertFeedItemQuery,
		item.ItemKey, item.FeedTitle, item.Title, item.URL, item.Content, item.FetchedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert feed item %q of %q: %w", item.Title, item.FeedTitle, err)
	}

	return existing == 0, nil
}

// SaveFeedItems upserts all items of one feed in a single transaction and
// returns how many rows were inserted and how many were updated.
func (db *DB) SaveFeedItems(ctx context.Context, items []models.FeedItem) (inserted, updated int, err error) {
	if len(items) == 0 {
		return 0, 0, nil
	}

	err = db.InTx(ctx, func(tx *Tx) error {
		inserted, updated = 0, 0
		for i := range items {
			isNew, err := tx.UpsertFeedItem(ctx, &items[i])
			if err != nil {
				return err
			}
			if isNew {
				inserted++
			} else {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return inserted, updated, nil
}

// ListFeedItems returns the stored items of a feed ordered by title.
func (db *DB) ListFeedItems(ctx context.Context, feedTitle string) ([]models.FeedItem, error) {
	items := []models.FeedItem{}
	err := db.SelectContext(ctx, &items, `
		SELECT COALESCE(ITEM_KEY, '') AS ITEM_KEY, FEED_TITLE, TITLE, URL, CONTENT, FETCHED_AT
		FROM FEED_ITEMS
		WHERE FEED_TITLE = ?
		ORDER BY TITLE, URL`, feedTitle)
	if err != nil {
		return nil, fmt.Errorf("failed to list items of %q: %w", feedTitle, err)
	}
	return items, nil
}

// CountFeedItems returns how many items are stored for a feed.
func (db *DB) CountFeedItems(ctx context.Context, feedTitle string) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM FEED_ITEMS WHERE FEED_TITLE = ?`, feedTitle); err != nil {
		return 0, fmt.Errorf("failed to count items of %q: %w", feedTitle, err)
	}
	return count, nil
}
