// Package remote implements domain.RecordStore as a client of the
// venueadmin-api REST surface.
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

	"venueadmin/pkg/domain"
)

var _ domain.RecordStore = (*Client)(nil)

// Client talks to a record store served over HTTP.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
	echo  bool
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithEchoedUpdates asks the API to answer updates with the stored record
// instead of 204 No Content.
func WithEchoedUpdates() Option {
	return func(c *Client) { c.echo = true }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote url %q", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 15 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// errorBody is the JSON error envelope of the API.
type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.base.String() + "/api/" + strings.Join(escaped, "/")
}

func (c *Client) do(ctx context.Context, method, target string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if method == http.MethodPut && c.echo {
		req.Header.Set("Prefer", "return=representation")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return resp.StatusCode, statusError(method, target, resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, target, err)
		}
	}
	return resp.StatusCode, nil
}

// statusError maps API status codes back onto the domain sentinels.
func statusError(method, target string, resp *http.Response) error {
	var body errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	var sentinel error
	switch resp.StatusCode {
	case http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case http.StatusConflict:
		sentinel = domain.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		sentinel = domain.ErrInvalidRecord
	default:
		return fmt.Errorf("%s %s: status %d: %s", method, target, resp.StatusCode, msg)
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

// List implements domain.RecordStore.
func (c *Client) List(ctx context.Context, kind domain.EntityKind, parentID string) ([]domain.Record, error) {
	var out []domain.Record
	if _, err := c.do(ctx, http.MethodGet, c.endpoint(string(kind), parentID, "records"), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Record{}
	}
	return out, nil
}

// Insert implements domain.RecordStore.
func (c *Client) Insert(ctx context.Context, rec domain.Record) (domain.Record, error) {
	if err := rec.Validate(); err != nil {
		return domain.Record{}, err
	}
	var out domain.Record
	if _, err := c.do(ctx, http.MethodPost, c.endpoint(string(rec.Kind), rec.ParentID, "records"), rec, &out); err != nil {
		return domain.Record{}, err
	}
	return out, nil
}

// Update implements domain.RecordStore. Unless echoed updates were requested
// the API answers 204 No Content and a zero Record is returned.
func (c *Client) Update(ctx context.Context, id string, rec domain.Record) (domain.Record, error) {
	var out domain.Record
	if _, err := c.do(ctx, http.MethodPut, c.endpoint("records", id), rec, &out); err != nil {
		return domain.Record{}, err
	}
	return out, nil
}

// Delete implements domain.RecordStore.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.endpoint("records", id), nil, nil)
	return err
}
