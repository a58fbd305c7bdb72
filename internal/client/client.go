// Package client is a small HTTP client for the matching API, used by
// helpr-watch as a poller source.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/marketplace"
)

const httpTimeout = 10 * time.Second

// Role selects which snapshot endpoint to poll.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
)

// ParseRole accepts "customer" or "provider".
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleProvider:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q (want customer or provider)", s)
}

// Config configures the Client.
type Config struct {
	BaseURL    string
	UserID     string
	Role       Role
	HTTPClient *http.Client
}

// Client calls the matching API on behalf of one user.
type Client struct {
	baseURL string
	userID  string
	role    Role
	http    *http.Client
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: base url is required")
	}
	if cfg.UserID == "" {
		return nil, fmt.Errorf("client: user id is required")
	}
	if cfg.Role == "" {
		cfg.Role = RoleCustomer
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: httpTimeout}
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		userID:  cfg.UserID,
		role:    cfg.Role,
		http:    hc,
	}, nil
}

// Snapshot fetches the job set for the client's role: GET /jobs for a
// customer, GET /jobs/open for a provider.
func (c *Client) Snapshot(ctx context.Context) ([]marketplace.JobView, error) {
	path := "/jobs"
	if c.role == RoleProvider {
		path = "/jobs/open"
	}
	var views []marketplace.JobView
	if err := c.get(ctx, path, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// Bids lists the bids on a job.
func (c *Client) Bids(ctx context.Context, jobID string) ([]marketplace.Bid, error) {
	var bids []marketplace.Bid
	if err := c.get(ctx, "/jobs/"+jobID+"/bids", &bids); err != nil {
		return nil, err
	}
	return bids, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-user-id", c.userID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: GET %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("client: GET %s: %d %s", path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("client: GET %s: %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}
