package models

// Subscription represents a row in the FEEDS table.
// The title is the primary key; the URL must be unique.
type Subscription struct {
	Title string `db:"TITLE"`
	URL   string `db:"URL"`
}
