// Package panel is the data/transport layer of the moderation panel. It
// speaks the service's typed request/response contract; presentation is a
// separate concern and out of scope here.
package panel

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
	"sync"
	"time"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Client is an authenticated panel session against the comment service. The
// session token lives in memory for the lifetime of the client.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	token string
	user  *domain.User
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Signup creates an account and starts a session.
func (c *Client) Signup(ctx context.Context, email, password, name string) (*domain.User, error) {
	return c.authenticate(ctx, "/api/signup", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	})
}

// Login starts a session for an existing account.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return c.authenticate(ctx, "/api/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, creds map[string]string) (*domain.User, error) {
	var res authResponse
	if err := c.call(ctx, http.MethodPost, path, nil, creds, &res); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = res.Token
	c.user = res.User
	c.mu.Unlock()

	return res.User, nil
}

// Me refreshes the session user from the token claims. Used to restore a
// panel session from a saved token.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var res authResponse
	if err := c.call(ctx, http.MethodGet, "/api/me", nil, nil, &res); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.user = res.User
	c.mu.Unlock()

	return res.User, nil
}

// SetToken installs a previously issued session token, as when the panel
// restores a session from storage.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current session token, or "" when logged out.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Logout drops the in-memory session. Tokens are stateless, so there is
// nothing to revoke server-side.
func (c *Client) Logout() {
	c.mu.Lock()
	c.token = ""
	c.user = nil
	c.mu.Unlock()
}

// Sites lists the sites owned by the session user. Scoping happens
// server-side from the token subject.
func (c *Client) Sites(ctx context.Context) ([]domain.Site, error) {
	var res struct {
		Items []domain.Site `json:"items"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/proxy/sites", nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// CreateSite registers a site for widget embedding. The api key is generated
// here, as the panel has always done, and is immutable afterwards.
func (c *Client) CreateSite(ctx context.Context, name, siteDomain string) (*domain.Site, error) {
	site := &domain.Site{
		Name:      name,
		Domain:    siteDomain,
		APIKey:    domain.NewAPIKey(),
		CreatedAt: time.Now().UTC(),
	}

	payload := map[string]any{
		"site_name":  site.Name,
		"domain":     site.Domain,
		"api_key":    site.APIKey,
		"created_at": site.CreatedAt.Format(time.RFC3339),
	}

	var res struct {
		ID int64 `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/proxy/sites", nil, payload, &res); err != nil {
		return nil, err
	}

	site.ID = res.ID
	return site, nil
}

// DeleteSite removes a site. Its comments are cleaned up by the store.
func (c *Client) DeleteSite(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, "/api/proxy/sites/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// Comments lists comments across the session user's sites, optionally
// narrowed to one moderation status.
func (c *Client) Comments(ctx context.Context, status domain.CommentStatus) ([]domain.Comment, error) {
	query := url.Values{}
	if status != "" {
		query.Set("filter", "status:"+string(status))
	}

	var res struct {
		Items []domain.Comment `json:"items"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/proxy/comments", query, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Approve publishes a pending comment. Re-approving an approved comment is a
// no-op.
func (c *Client) Approve(ctx context.Context, id int64) error {
	return c.setStatus(ctx, id, domain.StatusApproved)
}

// Reject hides a pending comment permanently.
func (c *Client) Reject(ctx context.Context, id int64) error {
	return c.setStatus(ctx, id, domain.StatusRejected)
}

func (c *Client) setStatus(ctx context.Context, id int64, status domain.CommentStatus) error {
	payload := map[string]string{"status": string(status)}
	return c.call(ctx, http.MethodPut, "/api/proxy/comments/"+strconv.FormatInt(id, 10), nil, payload, nil)
}

// Upgrade moves the account to the supporter plan and refreshes the session
// token so the plan claim matches.
func (c *Client) Upgrade(ctx context.Context) (*domain.User, error) {
	var res authResponse
	if err := c.call(ctx, http.MethodPost, "/api/me/upgrade", nil, nil, &res); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = res.Token
	c.user = res.User
	c.mu.Unlock()

	return res.User, nil
}

// call performs one request against the service, attaching the session token
// when present, and decodes the response into out.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	token := c.Token()
	if token == "" && path != "/api/signup" && path != "/api/login" {
		return ErrNotAuthenticated
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s decode: %w", method, path, err)
	}
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
