// Package client is the typed consumer side of the todo API: one request
// function per server operation plus a push-channel listener.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mcollina/githuman-sub002/internal/domain"
)

const defaultTimeout = 30 * time.Second

// APIError is the single failure type for all non-2xx responses. Status 0
// marks a transport failure where no response was received.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("todo api: %s", e.Message)
	}
	return fmt.Sprintf("todo api: %s (status %d)", e.Message, e.Status)
}

// IsNotFound reports whether err is an APIError for a missing resource.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// IsClientError reports whether err is a 4xx APIError.
func IsClientError(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status >= 400 && apiErr.Status < 500
}

// IsServerError reports whether err is a 5xx APIError.
func IsServerError(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status >= 500
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying transport, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	c := &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListOptions mirror the /todos query parameters. Limit 0 requests the
// complete filtered set.
type ListOptions struct {
	ReviewID  *string
	Completed *bool
	Limit     int
	Offset    int
}

// ListResult is one full snapshot of the server-side collection view.
type ListResult struct {
	Data   []domain.Todo `json:"data"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// List fetches todos ordered by position ascending.
func (c *Client) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	query := url.Values{}
	if opts.ReviewID != nil {
		query.Set("reviewId", *opts.ReviewID)
	}
	if opts.Completed != nil {
		query.Set("completed", strconv.FormatBool(*opts.Completed))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}

	var result ListResult
	if err := c.do(ctx, http.MethodGet, "/todos", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats fetches aggregate counts, independent of any list filter.
func (c *Client) Stats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats
	if err := c.do(ctx, http.MethodGet, "/todos/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Create adds a todo at the end of the order. Empty content is rejected
// locally; the server remains the source of truth for everything else.
func (c *Client) Create(ctx context.Context, content string, reviewID *string) (*domain.Todo, error) {
	if content == "" {
		return nil, domain.ErrEmptyContent
	}

	body := map[string]any{"content": content}
	if reviewID != nil {
		body["reviewId"] = *reviewID
	}

	var todo domain.Todo
	if err := c.do(ctx, http.MethodPost, "/todos", nil, body, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateFields carries a partial update; nil fields are left unchanged.
type UpdateFields struct {
	Content   *string `json:"content,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// Update applies a partial update and returns the updated todo.
func (c *Client) Update(ctx context.Context, id string, fields UpdateFields) (*domain.Todo, error) {
	var todo domain.Todo
	if err := c.do(ctx, http.MethodPatch, "/todos/"+url.PathEscape(id), nil, fields, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// Toggle flips the completed flag and returns the updated todo.
func (c *Client) Toggle(ctx context.Context, id string) (*domain.Todo, error) {
	var todo domain.Todo
	if err := c.do(ctx, http.MethodPost, "/todos/"+url.PathEscape(id)+"/toggle", nil, nil, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// Delete removes a todo.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), nil, nil, nil)
}

// ClearCompleted deletes every completed todo and returns how many were
// removed. The server applies the deletion atomically.
func (c *Client) ClearCompleted(ctx context.Context) (int64, error) {
	var result struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/todos/completed", nil, nil, &result); err != nil {
		return 0, err
	}
	return result.Deleted, nil
}

// Reorder submits the full desired ordering. The server reassigns positions
// so that a subsequent List returns exactly this sequence.
func (c *Client) Reorder(ctx context.Context, orderedIDs []string) (int64, error) {
	body := map[string][]string{"orderedIds": orderedIDs}

	var result struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPost, "/todos/reorder", nil, body, &result); err != nil {
		return 0, err
	}
	return result.Updated, nil
}

// Move repositions a single todo within the global order.
func (c *Client) Move(ctx context.Context, id string, position int) (*domain.Todo, error) {
	body := map[string]int{"position": position}

	var todo domain.Todo
	if err := c.do(ctx, http.MethodPost, "/todos/"+url.PathEscape(id)+"/move", nil, body, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL.JoinPath(path)
	if query != nil {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Status: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: 0, Message: "reading response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

func errorMessage(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(body)
}
