package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// StatusError is returned by Client when the server answers with a non-2xx
// status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode,
			http.StatusText(e.StatusCode))
	}

	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a Server's HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the server at addr, given as host:port or
// as a full URL. A nil httpClient selects http.DefaultClient.
func NewClient(addr string, httpClient *http.Client) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		base: strings.TrimRight(addr, "/"),
		http: httpClient,
	}
}

// Resolve asks the server to resolve key through its cache.
func (c *Client) Resolve(ctx context.Context, key string) (string, error) {
	var resp ResolveResponse
	err := c.get(ctx, "/v1/resolve/"+url.PathEscape(key), &resp)
	if err != nil {
		return "", err
	}

	return resp.Value, nil
}

// Stats fetches the server's cache statistics.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.get(ctx, "/v1/stats", &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.base+path, nil,
	)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)

		return &StatusError{
			StatusCode: resp.StatusCode,
			Message:    errResp.Error,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
