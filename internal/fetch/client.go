package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
)

// ErrBodyTooLarge is returned when a response body exceeds the client's size cap.
var ErrBodyTooLarge = errors.New("response body too large")

// Response is the body of a successful GET together with its declared content type.
type Response struct {
	URL         string
	ContentType string
	Body        []byte
}

// Client performs single-attempt HTTP GETs bounded by a timeout and a body size cap.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	maxBodySize int64
}

// NewClient creates a client. A zero timeout disables the per-request deadline.
func NewClient(timeout time.Duration, userAgent string, maxBodySize int64) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		userAgent:   userAgent,
		maxBodySize: maxBodySize,
	}
}

// Get fetches url once. Any status outside 2xx is returned as a gofeed.HTTPError,
// and a body larger than the size cap as ErrBodyTooLarge.
func (c *Client) Get(ctx context.Context, url string, accept string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, gofeed.HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	var body io.Reader = resp.Body
	if c.maxBodySize > 0 {
		// one byte past the cap tells a full-size body from an oversized one
		body = io.LimitReader(resp.Body, c.maxBodySize+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if c.maxBodySize > 0 && int64(len(data)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrBodyTooLarge, c.maxBodySize)
	}

	log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("Fetched")

	return &Response{
		URL:         resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}
