// Package client fetches the taxonomy tree and detail panels from a taxonomy server.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/starford/taxonomy-explorer/internal/apperr"
	"github.com/starford/taxonomy-explorer/internal/models"
)

const (
	treePath     = "/api/taxonomy/tree"
	nodeInfoPath = "/api/taxonomy/node-info/"

	maxTreeBytes     = 32 << 20
	maxFragmentBytes = 1 << 20
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Unwrap maps 404 onto apperr.ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return apperr.ErrNotFound
	}
	return nil
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithDetailRate limits detail panel fetches to perSecond requests with a burst of one.
// Zero or negative disables the limit.
func WithDetailRate(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client talks to the taxonomy API. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	token   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a client for the server at baseURL (scheme and host, optionally a path prefix).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: url %q: scheme must be http or https: %w", baseURL, apperr.ErrInvalid)
	}
	c := &Client{
		base:    u,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// get requests path below the base URL. escaped is the percent-encoded form of path.
func (c *Client) get(ctx context.Context, path, escaped string, query url.Values, accept string) (*http.Response, error) {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawPath = c.base.EscapedPath() + escaped
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// FetchTree downloads and decodes the tree document.
func (c *Client) FetchTree(ctx context.Context) (*models.RawNode, error) {
	resp, err := c.get(ctx, treePath, treePath, nil, "application/json")
	if err != nil {
		return nil, fmt.Errorf("client: fetch tree: %w", err)
	}
	defer resp.Body.Close()

	var root models.RawNode
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTreeBytes)).Decode(&root); err != nil {
		return nil, fmt.Errorf("client: decode tree: %w", err)
	}
	c.logger.Debug("client: tree fetched", slog.Int("top_level", len(root.Children)))
	return &root, nil
}

// NodeInfo fetches the detail panel fragment for the category shown under name.
// The fragment is returned verbatim.
func (c *Client) NodeInfo(ctx context.Context, name string, generationTask int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("client: node info %q: %w", name, err)
	}
	q := url.Values{}
	q.Set("generation_task", strconv.Itoa(generationTask))
	resp, err := c.get(ctx, nodeInfoPath+name, nodeInfoPath+url.PathEscape(name), q, "text/html")
	if err != nil {
		return "", fmt.Errorf("client: node info %q: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentBytes+1))
	if err != nil {
		return "", fmt.Errorf("client: read node info %q: %w", name, err)
	}
	if len(body) > maxFragmentBytes {
		return "", fmt.Errorf("client: node info %q: fragment exceeds %d bytes", name, maxFragmentBytes)
	}
	return string(body), nil
}
