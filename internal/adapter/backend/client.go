package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/encore/internal/domain"
)

const (
	defaultTimeout = 20 * time.Second
	maxRetries     = 2
	baseRetryDelay = 300 * time.Millisecond
)

// Collection names on the backend
const (
	TableSongs        = "songs"
	TableSetlists     = "setlists"
	TableSetlistItems = "setlist_items"
)

// Client reads and writes backend records over a PostgREST-style HTTP API.
// Rows are returned as raw JSON so callers can cache them untouched.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *breaker
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewClient creates a new backend API client
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		breaker:    newBreaker("backend-api", logger),
		retryDelay: baseRetryDelay,
		logger:     logger,
	}
}

// doRequest performs an authenticated request through the circuit breaker.
// Transport failures and non-success responses come back wrapping domain.ErrNetwork.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	return c.breaker.execute(func() ([]byte, error) {
		return c.doRequestWithRetry(ctx, method, path, query, body)
	})
}

// doRequestWithRetry retries 5xx responses with exponential backoff
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	reqURL := c.baseURL + path
	if query != nil {
		reqURL = reqURL + "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, contextError(ctx)
		}

		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "url", reqURL)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, contextError(ctx)
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Prefer", "return=minimal")
		}

		c.logger.Debug("backend request", "method", method, "url", reqURL, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, ctx.Err()
			}
			c.logger.Error("backend request failed", "error", err, "path", path)
			return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrNetwork, err)
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, domain.ErrAuthFailed
		}

		if resp.StatusCode >= 500 && resp.StatusCode < 600 {
			lastErr = fmt.Errorf("%w: server error %d", domain.ErrNetwork, resp.StatusCode)
			c.logger.Warn("backend server error, will retry",
				"status", resp.StatusCode,
				"body", string(respBody),
				"attempt", attempt,
				"maxRetries", maxRetries,
				"path", path,
			)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Error("backend request error", "status", resp.StatusCode, "body", string(respBody))
			return nil, fmt.Errorf("%w: unexpected status code %d", domain.ErrNetwork, resp.StatusCode)
		}

		return respBody, nil
	}

	c.logger.Error("backend request failed after retries", "error", lastErr, "path", path)
	return nil, lastErr
}

// contextError reports a caller cancellation as is; an expired deadline means
// the backend was too slow to answer and counts as a network failure.
func contextError(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
	return err
}

// selectRows fetches rows of a collection matching query
func (c *Client) selectRows(ctx context.Context, table string, query url.Values) ([]json.RawMessage, error) {
	if query == nil {
		query = url.Values{}
	}
	if query.Get("select") == "" {
		query.Set("select", "*")
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/rest/v1/"+table, query, nil)
	if err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", table, err)
	}
	return rows, nil
}

// selectByID fetches one row by primary key
func (c *Client) selectByID(ctx context.Context, table, id string) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)

	rows, err := c.selectRows(ctx, table, query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, domain.ErrNotFound)
	}
	return rows[0], nil
}

// FetchSetlist returns the setlist record
func (c *Client) FetchSetlist(ctx context.Context, setlistID string) (json.RawMessage, error) {
	return c.selectByID(ctx, TableSetlists, setlistID)
}

// FetchSetlistItems returns the setlist's items ordered by position
func (c *Client) FetchSetlistItems(ctx context.Context, setlistID string) ([]json.RawMessage, error) {
	query := url.Values{}
	query.Set("setlist_id", "eq."+setlistID)
	query.Set("order", "position.asc")
	return c.selectRows(ctx, TableSetlistItems, query)
}

// FetchSong returns the song record
func (c *Client) FetchSong(ctx context.Context, songID string) (json.RawMessage, error) {
	return c.selectByID(ctx, TableSongs, songID)
}

// FetchSetlists returns all setlists, soonest show first
func (c *Client) FetchSetlists(ctx context.Context) ([]json.RawMessage, error) {
	query := url.Values{}
	query.Set("order", "show_date.asc.nullslast")
	return c.selectRows(ctx, TableSetlists, query)
}

// UpdateSetlist patches fields of one setlist
func (c *Client) UpdateSetlist(ctx context.Context, setlistID string, patch map[string]any) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	query := url.Values{}
	query.Set("id", "eq."+setlistID)

	_, err = c.doRequest(ctx, http.MethodPatch, "/rest/v1/"+TableSetlists, query, body)
	return err
}

// Ping checks that the backend answers at all
func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("select", "id")
	query.Set("limit", "1")
	_, err := c.doRequest(ctx, http.MethodGet, "/rest/v1/"+TableSetlists, query, nil)
	if errors.Is(err, domain.ErrAuthFailed) {
		return nil // Reachable, credentials are a separate problem
	}
	return err
}
