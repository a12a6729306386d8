package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/standings/internal/domain/types"
)

// Sentinel kinds for client errors.
var (
	ErrStatus       = errors.New("unexpected status")
	ErrBackpressure = errors.New("server reported backpressure")
)

// Client talks to the standings HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK)
	return err
}

// Sync posts one update. duplicate reports a 200 acknowledgement.
func (c *Client) Sync(ctx context.Context, req types.SyncRequest) (duplicate bool, err error) { //nolint:gocritic // hugeParam: request value
	body, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("marshal sync request: %w", err)
	}
	status, err := c.do(ctx, http.MethodPost, "/sync", body, http.StatusAccepted, http.StatusOK)
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}

// Leaderboard fetches one page.
func (c *Client) Leaderboard(ctx context.Context, category string, page, pageSize int) (types.Page, error) {
	q := url.Values{}
	q.Set("category", category)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	var out types.Page
	return out, c.getJSON(ctx, "/leaderboard?"+q.Encode(), &out)
}

// Rank fetches one entity's position.
func (c *Client) Rank(ctx context.Context, category, id string) (types.Position, error) {
	var out types.Position
	return out, c.getJSON(ctx, "/rank/"+url.PathEscape(id)+"?category="+url.QueryEscape(category), &out)
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, accept ...int) (int, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	for _, code := range accept {
		if resp.StatusCode == code {
			_, _ = io.Copy(io.Discard, resp.Body)
			return code, nil
		}
	}
	return resp.StatusCode, statusError(resp)
}

func statusError(resp *http.Response) error {
	var e types.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&e)
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ErrBackpressure, e.Error)
	}
	return fmt.Errorf("%w %d: %s %s", ErrStatus, resp.StatusCode, e.Code, e.Error)
}
