package clickup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://api.clickup.com/api/v2"

// pageSize is the fixed page length the ClickUp task endpoints return.
const pageSize = 100

// Client talks to the ClickUp REST API. It is stateless and safe for
// concurrent use; the token is immutable after construction.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    http.DefaultClient,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (gjson.Result, error) {
	if strings.TrimSpace(c.token) == "" {
		return gjson.Result{}, fmt.Errorf("clickup api token is required: %w", ErrAuth)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Authorization", c.token)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, &TransportError{Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return gjson.ParseBytes(respBody), nil
	case resp.StatusCode == http.StatusNotFound:
		return gjson.Result{}, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return gjson.Result{}, fmt.Errorf("%s %s: %w", method, path, ErrAuth)
	case resp.StatusCode == http.StatusTooManyRequests:
		return gjson.Result{}, fmt.Errorf("%s %s: %w", method, path, ErrRateLimited)
	default:
		return gjson.Result{}, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
}

// parseMillis decodes ClickUp's millisecond-epoch string timestamps.
// Returns the zero time for empty or malformed values.
func parseMillis(raw gjson.Result) time.Time {
	if !raw.Exists() {
		return time.Time{}
	}
	ms := raw.Int()
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// DueDateMillis converts a YYYY-MM-DD date into the millisecond-epoch
// value ClickUp expects, pinned to 23:59:59 UTC of that day.
func DueDateMillis(date string) (int64, error) {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid due date %q: %w", date, err)
	}
	due := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, time.UTC)
	return due.UnixMilli(), nil
}
