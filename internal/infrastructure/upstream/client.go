package upstream

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

	"github.com/rs/zerolog"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
	"github.com/recorre/trae-indie-comments/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// Config captures the settings for talking to the upstream store.
type Config struct {
	BaseURL    string
	ServiceKey string
	Instance   string
	Timeout    time.Duration
}

// Client is the REST adapter for the external store. All persistence is
// delegated to it; the service holds no data of its own. Every request
// carries the tenant Instance parameter and the service-level bearer key.
type Client struct {
	baseURL    string
	serviceKey string
	instance   string
	http       *http.Client
	log        zerolog.Logger
}

// New creates a Client. A default 10s timeout is applied when none is
// provided; a hung upstream call fails the request, not the process.
func New(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		instance:   cfg.Instance,
		http:       &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Error reports a non-2xx upstream response. The raw upstream body is logged
// server-side only and never carried in the error message.
type Error struct {
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream request failed: status %d", e.StatusCode)
}

func (e *Error) Unwrap() error { return domain.ErrUpstream }

// Forward performs a raw call against the upstream store and returns the
// response regardless of status, so the gateway can mirror it. The endpoint
// must already be in upstream form (/read/comments, /update/sites/3, ...).
func (c *Client) Forward(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*ports.ForwardResult, error) {
	q := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("Instance", c.instance)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint+"?"+q.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream call %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upstream read %s %s: %w", method, endpoint, err)
	}

	return &ports.ForwardResult{StatusCode: resp.StatusCode, Body: b}, nil
}

// do performs a typed call and errors on any non-2xx status.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("upstream marshal: %w", err)
		}
		body = bytes.NewReader(b)
	}

	res, err := c.Forward(ctx, method, endpoint, query, body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.log.Error().
			Int("status", res.StatusCode).
			Str("method", method).
			Str("endpoint", endpoint).
			Bytes("body", res.Body).
			Msg("upstream returned non-2xx")
		return nil, &Error{StatusCode: res.StatusCode}
	}
	return res.Body, nil
}

// envelope is the canonical upstream read response. Some historical callers
// expected a "data" key instead; "items" is the contract here.
type envelope[T any] struct {
	Items []T `json:"items"`
}

func list[T any](ctx context.Context, c *Client, resource string, filter ports.Filter) ([]T, error) {
	q := url.Values{}
	if len(filter) > 0 {
		q.Set("filter", filter.Encode())
	}
	b, err := c.do(ctx, http.MethodGet, "/read/"+resource, q, nil)
	if err != nil {
		return nil, err
	}
	var env envelope[T]
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("upstream decode %s: %w", resource, err)
	}
	return env.Items, nil
}

func get[T any](ctx context.Context, c *Client, resource string, id int64, notFound error) (*T, error) {
	b, err := c.do(ctx, http.MethodGet, "/read/"+resource+"/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		var ue *Error
		if errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound {
			return nil, notFound
		}
		return nil, err
	}
	var env envelope[T]
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("upstream decode %s: %w", resource, err)
	}
	if len(env.Items) == 0 {
		return nil, notFound
	}
	return &env.Items[0], nil
}

func (c *Client) FindSiteByAPIKey(ctx context.Context, apiKey string) (*domain.Site, error) {
	sites, err := list[domain.Site](ctx, c, "sites", ports.Filter{}.Eq("api_key", apiKey))
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		return nil, domain.ErrSiteNotFound
	}
	return &sites[0], nil
}

func (c *Client) GetSite(ctx context.Context, id int64) (*domain.Site, error) {
	return get[domain.Site](ctx, c, "sites", id, domain.ErrSiteNotFound)
}

func (c *Client) SitesByUser(ctx context.Context, userID int64) ([]domain.Site, error) {
	return list[domain.Site](ctx, c, "sites", ports.Filter{}.Eq("user_id", strconv.FormatInt(userID, 10)))
}

// userRecord is the upstream row shape for users. domain.User excludes the
// password hash from JSON so API responses never leak it; reads from the
// store decode through this record to keep the hash for credential checks.
type userRecord struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	Plan         string    `json:"plan"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		Plan:         r.Plan,
		CreatedAt:    r.CreatedAt,
	}
}

func (c *Client) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	users, err := list[userRecord](ctx, c, "users", ports.Filter{}.Eq("email", email))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, domain.ErrUserNotFound
	}
	return users[0].toDomain(), nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	rec, err := get[userRecord](ctx, c, "users", id, domain.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// createResponse is the upstream create envelope: the new record id only.
type createResponse struct {
	ID int64 `json:"id"`
}

func (c *Client) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	payload := map[string]any{
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"name":          user.Name,
		"plan":          user.Plan,
		"created_at":    user.CreatedAt.UTC().Format(time.RFC3339),
	}
	b, err := c.do(ctx, http.MethodPost, "/create/users", nil, payload)
	if err != nil {
		return nil, err
	}
	var res createResponse
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("upstream decode create user: %w", err)
	}

	created := *user
	created.ID = res.ID
	return &created, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, fields map[string]any) error {
	_, err := c.do(ctx, http.MethodPut, "/update/users/"+strconv.FormatInt(id, 10), nil, fields)
	return err
}

func (c *Client) GetComment(ctx context.Context, id int64) (*domain.Comment, error) {
	return get[domain.Comment](ctx, c, "comments", id, domain.ErrCommentNotFound)
}
