// Package backend is the typed client of the Aegis HTTP API. It checks that
// the expected top-level fields are present before decoding them.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aegisai/aegisdash/internal/requester"
	"github.com/aegisai/aegisdash/pkg/types"
	"github.com/tidwall/gjson"
)

// API paths
const (
	PathEmails           = "/api/emails"
	PathBlocked          = "/api/blocked"
	PathLoginLogs        = "/api/login-logs"
	PathBankTransactions = "/api/bank-transactions"
	PathProfile          = "/api/profile"
	PathBlock            = "/api/block"
	PathUnblock          = "/api/unblock"
)

// Errors
var (
	ErrMissingField = errors.New("backend: response missing expected field")
	ErrMalformed    = errors.New("backend: response is not valid JSON")

	// ErrStatsOnly is returned by Emails when the list is missing but the
	// stats object is present; the returned feed carries the stats.
	ErrStatsOnly = fmt.Errorf("%w: emails (stats only)", ErrMissingField)
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s returned %d: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("backend: %s returned %d", e.Path, e.Code)
}

// Client calls the Aegis API over a requester.Client
type Client struct {
	http    *requester.Client
	baseURL string
}

// New creates an API client rooted at baseURL
func New(http *requester.Client, baseURL string) *Client {
	return &Client{
		http:    http,
		baseURL: baseURL,
	}
}

// BaseURL returns the backend root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Emails fetches the scanned email feed and its stats
func (c *Client) Emails(ctx context.Context) (types.EmailFeed, error) {
	var feed types.EmailFeed

	root, err := c.get(ctx, PathEmails)
	if err != nil {
		return feed, err
	}
	stats := root.Get("stats")
	if stats.IsObject() {
		if err := json.Unmarshal([]byte(stats.Raw), &feed.Stats); err != nil {
			return feed, fmt.Errorf("backend: decode stats: %w", err)
		}
	}
	if err := decodeField(root, "emails", &feed.Emails); err != nil {
		if errors.Is(err, ErrMissingField) && stats.IsObject() {
			return feed, ErrStatsOnly
		}
		return feed, err
	}
	return feed, nil
}

// Blocked fetches the block list. A payload without the list is an empty
// block list.
func (c *Client) Blocked(ctx context.Context) ([]types.BlockedSender, error) {
	root, err := c.get(ctx, PathBlocked)
	if err != nil {
		return nil, err
	}

	// A missing or null list means nobody is blocked yet
	blocked := []types.BlockedSender{}
	if r := root.Get("blocked_senders"); !r.Exists() || r.Type == gjson.Null {
		return blocked, nil
	}
	if err := decodeField(root, "blocked_senders", &blocked); err != nil {
		return nil, err
	}
	return blocked, nil
}

// LoginLogs fetches scored login/network events
func (c *Client) LoginLogs(ctx context.Context) ([]types.LoginLogEntry, error) {
	root, err := c.get(ctx, PathLoginLogs)
	if err != nil {
		return nil, err
	}

	var logs []types.LoginLogEntry
	if err := decodeField(root, "logs", &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// BankTransactions fetches the monitored account's transactions
func (c *Client) BankTransactions(ctx context.Context) (types.BankFeed, error) {
	var feed types.BankFeed

	root, err := c.get(ctx, PathBankTransactions)
	if err != nil {
		return feed, err
	}
	if err := decodeField(root, "transactions", &feed.Transactions); err != nil {
		return feed, err
	}
	feed.AccountID = root.Get("account_id").String()
	return feed, nil
}

// Profile fetches the signed-in user. A payload without a name is treated
// as missing.
func (c *Client) Profile(ctx context.Context) (types.Profile, error) {
	var p types.Profile

	root, err := c.get(ctx, PathProfile)
	if err != nil {
		return p, err
	}
	name := root.Get("name")
	if !name.Exists() || name.String() == "" {
		return p, fmt.Errorf("%w: name", ErrMissingField)
	}

	p.Name = name.String()
	p.Email = root.Get("email").String()
	p.Picture = root.Get("picture").String()
	return p, nil
}

// Block asks the backend to block a sender. The bool is the response's
// success flag; err is set only when no usable answer came back.
func (c *Client) Block(ctx context.Context, req types.BlockRequest) (bool, error) {
	return c.post(ctx, PathBlock, req)
}

// Unblock asks the backend to remove a sender from the block list
func (c *Client) Unblock(ctx context.Context, senderEmail string) (bool, error) {
	return c.post(ctx, PathUnblock, types.UnblockRequest{SenderEmail: senderEmail})
}

func (c *Client) get(ctx context.Context, path string) (gjson.Result, error) {
	resp := c.http.Get(ctx, c.baseURL+path)
	if resp.Error != nil {
		return gjson.Result{}, fmt.Errorf("backend: GET %s: %w", path, resp.Error)
	}

	if !gjson.ValidBytes(resp.Body) {
		if !resp.OK() {
			return gjson.Result{}, &StatusError{Path: path, Code: resp.StatusCode}
		}
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrMalformed, path)
	}

	root := gjson.ParseBytes(resp.Body)
	if !resp.OK() {
		return gjson.Result{}, &StatusError{
			Path:    path,
			Code:    resp.StatusCode,
			Message: root.Get("error").String(),
		}
	}
	return root, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (bool, error) {
	resp := c.http.PostJSON(ctx, c.baseURL+path, body)
	if resp.Error != nil {
		return false, fmt.Errorf("backend: POST %s: %w", path, resp.Error)
	}
	if !gjson.ValidBytes(resp.Body) {
		return false, fmt.Errorf("%w: %s", ErrMalformed, path)
	}

	root := gjson.ParseBytes(resp.Body)
	if !resp.OK() {
		return false, &StatusError{
			Path:    path,
			Code:    resp.StatusCode,
			Message: root.Get("error").String(),
		}
	}
	return root.Get("success").Bool(), nil
}

func decodeField(root gjson.Result, field string, dst any) error {
	r := root.Get(field)
	if !r.Exists() || r.Type == gjson.Null {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	if err := json.Unmarshal([]byte(r.Raw), dst); err != nil {
		return fmt.Errorf("backend: decode %s: %w", field, err)
	}
	return nil
}
