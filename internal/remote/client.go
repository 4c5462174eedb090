// Package remote defines the remote item store contract and its HTTP client.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/models"
)

// DefaultTimeout bounds one remote call. Mutation callers never wait
// longer than this before the engine falls back to the queue.
const DefaultTimeout = 10 * time.Second

// Client is the JSON/HTTP implementation of Gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given base URL. A zero timeout falls
// back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// do issues one request and decodes a JSON response into out (when out is
// non-nil). Every failure mode collapses into REMOTE_ERROR.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrRemote, "failed to encode request", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemote, "failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemote, "remote call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Newf(apperrors.ErrRemote, "remote returned %s for %s %s",
			resp.Status, method, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.Wrap(apperrors.ErrRemote, "failed to decode response", err)
		}
	}
	return nil
}

// List implements Gateway.List via GET /items.
func (c *Client) List(ctx context.Context, filter Filter) ([]*models.Item, error) {
	params := url.Values{}
	if filter.Status != "" {
		params.Set("status", string(filter.Status))
	}
	if filter.WeekOf != "" {
		params.Set("week_of", filter.WeekOf)
	}
	path := "/items"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var items []*models.Item
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// createRequest is the POST /items body. ClientID carries the temporary id
// so a replayed create can be deduplicated server-side.
type createRequest struct {
	ClientID  string `json:"client_id"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Category  string `json:"category,omitempty"`
	WeekOf    string `json:"week_of"`
	CreatedAt int64  `json:"created_at"`
}

// Create implements Gateway.Create via POST /items.
func (c *Client) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	req := createRequest{
		ClientID:  item.ID,
		URL:       item.URL,
		Title:     item.Title,
		Notes:     item.Notes,
		Category:  item.Category,
		WeekOf:    item.WeekOf,
		CreatedAt: item.CreatedAt,
	}

	var created models.Item
	if err := c.do(ctx, http.MethodPost, "/items", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update implements Gateway.Update via PATCH /items/{id}.
func (c *Client) Update(ctx context.Context, id string, fields models.Fields) (*models.Item, error) {
	var updated models.Item
	path := "/items/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, fields, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SoftDelete implements Gateway.SoftDelete via DELETE /items/{id}.
func (c *Client) SoftDelete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/items/"+url.PathEscape(id), nil, nil)
}

// transitionRequest is the POST /items/transition body.
type transitionRequest struct {
	From   models.Status `json:"from"`
	To     models.Status `json:"to"`
	WeekOf string        `json:"week_of"`
}

// BulkTransitionStatus implements Gateway.BulkTransitionStatus via
// POST /items/transition.
func (c *Client) BulkTransitionStatus(ctx context.Context, from models.Status, weekKey string, to models.Status) error {
	req := transitionRequest{From: from, To: to, WeekOf: weekKey}
	return c.do(ctx, http.MethodPost, "/items/transition", req, nil)
}

var _ Gateway = (*Client)(nil)

// String returns a loggable description of the client target.
func (c *Client) String() string {
	return fmt.Sprintf("remote(%s)", c.baseURL)
}
