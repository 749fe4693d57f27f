// Package widget is the transport runtime behind the embeddable comment
// widget. Rendering stays in the browser; this client owns everything that
// talks to the comment service: key validation, the approved-comment fetch
// with its single-slot cache, and rate-limited submission.
package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
)

const (
	// cacheTTL is how long a fetched comment list stays valid. The cache is
	// invalidated only by expiry: a freshly submitted pending comment will
	// not appear until the next full fetch, which is fine because pending
	// comments are never rendered publicly.
	cacheTTL = 30 * time.Minute

	// submitGap is the minimum spacing between submissions from one client.
	// UX friction against accidental double posts, not a security control.
	submitGap = 3 * time.Second
)

var (
	ErrRateLimited  = errors.New("please wait a few seconds before submitting another comment")
	ErrEmptyContent = errors.New("comment cannot be empty")
)

// Config identifies the embedding page.
type Config struct {
	// BaseURL is the comment service root, e.g. https://comments.example.com.
	BaseURL string
	// APIKey is the site's public widget key.
	APIKey string
	// Origin is the embedding page origin (scheme://host), sent as the
	// Origin header on every call.
	Origin string
	// PagePath is the page path comments attach to, e.g. /blog/post-1.
	PagePath string
	// ClientIP, when known, is recorded on submitted comments.
	ClientIP string

	HTTPClient *http.Client
}

// Client is a per-page widget session. The cache slot and submission
// timestamp are local to the instance and are not shared or persisted.
type Client struct {
	cfg  Config
	http *http.Client

	mu         sync.Mutex
	lastSubmit time.Time
	cached     []domain.Comment
	fetchedAt  time.Time

	now func() time.Time
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient, now: time.Now}
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Validate asks the service whether this api key may be used from the
// configured origin. A false answer means the widget should not render.
func (c *Client) Validate(ctx context.Context) (bool, error) {
	u := c.cfg.BaseURL + "/api/validate?api_key=" + url.QueryEscape(c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Origin", c.cfg.Origin)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("validate: %w", err)
	}
	defer resp.Body.Close()

	var res validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return false, fmt.Errorf("validate decode: %w", err)
	}
	return res.Valid, nil
}

type commentList struct {
	Items []domain.Comment `json:"items"`
}

// Comments returns the approved comments for the configured page, newest
// first. Results are served from the cache slot while it is fresh; only an
// expired slot triggers an upstream fetch.
func (c *Client) Comments(ctx context.Context) ([]domain.Comment, error) {
	c.mu.Lock()
	if c.cached != nil && c.now().Sub(c.fetchedAt) < cacheTTL {
		cached := make([]domain.Comment, len(c.cached))
		copy(cached, c.cached)
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	filter := "url:" + c.cfg.PagePath + ",status:" + string(domain.StatusApproved)
	u := c.cfg.BaseURL + "/api/proxy/comments?filter=" + url.QueryEscape(filter) + "&sort=-created_at"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Origin", c.cfg.Origin)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var list commentList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("load comments decode: %w", err)
	}

	c.mu.Lock()
	c.cached = list.Items
	c.fetchedAt = c.now()
	c.mu.Unlock()

	return list.Items, nil
}

// Submit posts a new comment for the configured page. Comments always enter
// as pending and become visible only after moderation. At most one
// submission is allowed per 3-second window; a rejected submission makes no
// network call.
func (c *Client) Submit(ctx context.Context, authorName, authorEmail, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}

	c.mu.Lock()
	if !c.lastSubmit.IsZero() && c.now().Sub(c.lastSubmit) < submitGap {
		c.mu.Unlock()
		return ErrRateLimited
	}
	c.mu.Unlock()

	if authorName == "" {
		authorName = "Anonymous"
	}

	payload := map[string]any{
		"author_name":  authorName,
		"author_email": authorEmail,
		"content":      content,
		"url":          c.cfg.PagePath,
		"ip_address":   c.cfg.ClientIP,
		"status":       string(domain.StatusPending),
		"created_at":   c.now().UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/proxy/comments", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Origin", c.cfg.Origin)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submit comment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}

	c.mu.Lock()
	c.lastSubmit = c.now()
	c.mu.Unlock()

	return nil
}

// apiError extracts the service's {"error": "..."} envelope.
func apiError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	var res struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &res) == nil && res.Error != "" {
		return fmt.Errorf("comment service: %s (status %d)", res.Error, resp.StatusCode)
	}
	return fmt.Errorf("comment service: status %d", resp.StatusCode)
}
