package config

import "time"

// Constants defining default values for application configuration
const (
	DefaultWorkerCount = 1 // Feeds are refreshed one at a time unless raised
	DefaultInterval    = 0 // Minutes between refresh runs, 0 means one-shot
	DefaultHTTPTimeout = 30 * time.Second
	DefaultUserAgent   = "plain-rss/1.0 (+https://github.com/plain-rss/aggregator)"
	DefaultMaxBodySize = 10 << 20 // 10MB per response

	DefaultLogLevel = "info"
)
