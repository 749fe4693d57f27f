package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/recorre/trae-indie-comments/internal/api/metrics"
	apimw "github.com/recorre/trae-indie-comments/internal/api/middleware"
	"github.com/recorre/trae-indie-comments/internal/core/domain"
	"github.com/recorre/trae-indie-comments/internal/core/ports"
)

// ProxyHandler is the authenticated gateway in front of the upstream store.
// It accepts two caller families: widget api-key callers, which must pass the
// domain authorization check, and panel session callers, which are scoped to
// the rows they own. Client-supplied Host/Referer/Origin headers never reach
// the upstream; the service-level credential is substituted by the store
// adapter.
type ProxyHandler struct {
	store      ports.Store
	sessions   ports.SessionService
	authorizer ports.Authorizer
	log        zerolog.Logger
}

func NewProxyHandler(store ports.Store, sessions ports.SessionService, authorizer ports.Authorizer, log zerolog.Logger) *ProxyHandler {
	return &ProxyHandler{store: store, sessions: sessions, authorizer: authorizer, log: log}
}

// methodActions maps inbound HTTP methods to the upstream path verbs.
var methodActions = map[string]string{
	http.MethodGet:    "read",
	http.MethodPost:   "create",
	http.MethodPut:    "update",
	http.MethodDelete: "delete",
}

var proxyResources = map[string]bool{
	"comments": true,
	"sites":    true,
	"users":    true,
}

// Proxy handles ANY /api/proxy/:resource[/:id].
//
// @Summary      Forward an authorized request to the upstream store
// @Tags         proxy
// @Security     BearerAuth
// @Param        resource  path  string  true   "comments | sites | users"
// @Param        id        path  string  false  "Record id"
// @Router       /api/proxy/{resource} [get]
func (h *ProxyHandler) Proxy(c echo.Context) error {
	resource := c.Param("resource")
	if !proxyResources[resource] {
		return echo.NewHTTPError(http.StatusNotFound, "unknown resource")
	}

	action, ok := methodActions[c.Request().Method]
	if !ok {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed")
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		metrics.ProxyErrorsTotal.WithLabelValues("missing_credentials").Inc()
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}
	credential := apimw.TokenFromHeader(authHeader)

	// A verifiable session token wins; anything else is treated as a widget
	// api key and must pass the domain check.
	if claims, err := h.sessions.Verify(credential); err == nil {
		return h.proxySession(c, claims, resource, action)
	}
	return h.proxyAPIKey(c, credential, resource, action)
}

func (h *ProxyHandler) proxyAPIKey(c echo.Context, apiKey, resource, action string) error {
	origin := c.Request().Header.Get("Origin")

	valid, err := h.authorizer.Authorize(c.Request().Context(), apiKey, origin)
	if err != nil {
		// lookup failure fails closed, same as a mismatch
		h.log.Error().Err(err).Msg("domain authorization errored")
	}
	if !valid {
		metrics.ProxyErrorsTotal.WithLabelValues("unauthorized_domain").Inc()
		return echo.NewHTTPError(http.StatusForbidden, "unauthorized domain")
	}

	metrics.ProxyRequestsTotal.WithLabelValues(resource, c.Request().Method, "api_key").Inc()
	return h.forward(c, resource, action, c.Param("id"), c.QueryParams(), c.Request().Body)
}

func (h *ProxyHandler) proxySession(c echo.Context, claims *ports.SessionClaims, resource, action string) error {
	id := c.Param("id")
	query := c.QueryParams()
	var body io.Reader = c.Request().Body

	switch resource {
	case "sites":
		switch {
		case id != "":
			if err := h.checkSiteOwner(c, id, claims.UserID); err != nil {
				return err
			}
		case action == "read":
			query = forceFilter(query, "user_id", ports.Filter{}.Eq("user_id", formatID(claims.UserID)))
		case action == "create":
			b, err := overrideBodyField(c.Request().Body, "user_id", claims.UserID)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
			}
			body = b
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "site id is required")
		}

	case "users":
		// a session caller may only touch its own record, and accounts are
		// created through /api/signup, never through the proxy
		if action == "create" {
			metrics.ProxyErrorsTotal.WithLabelValues("forbidden").Inc()
			return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
		}
		if id == "" {
			query = forceFilter(query, "id", ports.Filter{}.Eq("id", formatID(claims.UserID)))
		} else if id != formatID(claims.UserID) {
			metrics.ProxyErrorsTotal.WithLabelValues("forbidden").Inc()
			return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
		}

	case "comments":
		if id == "" {
			if action != "read" {
				// visitor comments enter through the widget's api key path
				metrics.ProxyErrorsTotal.WithLabelValues("forbidden").Inc()
				return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
			}
			scoped, empty, err := h.ownedSitesFilter(c, claims.UserID, query)
			if err != nil {
				return err
			}
			if empty {
				return c.JSON(http.StatusOK, map[string]any{"items": []any{}})
			}
			query = scoped
		} else {
			done, newBody, err := h.checkCommentAccess(c, id, claims.UserID, action)
			if err != nil {
				return err
			}
			if done {
				return nil // idempotent status no-op already answered
			}
			if newBody != nil {
				body = newBody
			}
		}
	}

	metrics.ProxyRequestsTotal.WithLabelValues(resource, c.Request().Method, "session").Inc()
	return h.forward(c, resource, action, id, query, body)
}

// checkSiteOwner rejects operations on sites the caller does not own.
func (h *ProxyHandler) checkSiteOwner(c echo.Context, id string, userID int64) error {
	siteID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid site id")
	}

	site, err := h.store.GetSite(c.Request().Context(), siteID)
	if err != nil {
		if errors.Is(err, domain.ErrSiteNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "site not found")
		}
		return err
	}
	if site.UserID != userID {
		metrics.ProxyErrorsTotal.WithLabelValues("forbidden").Inc()
		return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
	}
	return nil
}

// ownedSitesFilter replaces any client-supplied site scoping with a filter
// derived from the token subject. The scope is never a client parameter; a
// forged site_id filter is silently overridden.
func (h *ProxyHandler) ownedSitesFilter(c echo.Context, userID int64, query url.Values) (url.Values, bool, error) {
	sites, err := h.store.SitesByUser(c.Request().Context(), userID)
	if err != nil {
		return nil, false, err
	}
	if len(sites) == 0 {
		return nil, true, nil
	}

	ids := make([]string, 0, len(sites))
	for _, s := range sites {
		ids = append(ids, formatID(s.ID))
	}

	return forceFilter(query, "site_id", ports.Filter{}.In("site_id", ids...)), false, nil
}

// checkCommentAccess verifies ownership of a single comment and, for status
// updates, enforces the moderation lifecycle: pending may move to approved or
// rejected exactly once; re-applying the current status answers with the
// current record and no upstream call; anything else is rejected.
// It returns done=true when the request was already answered.
func (h *ProxyHandler) checkCommentAccess(c echo.Context, id string, userID int64, action string) (done bool, body io.Reader, err error) {
	commentID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return false, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid comment id")
	}

	ctx := c.Request().Context()
	comment, err := h.store.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, domain.ErrCommentNotFound) {
			return false, nil, echo.NewHTTPError(http.StatusNotFound, "comment not found")
		}
		return false, nil, err
	}

	if err := h.checkSiteOwner(c, formatID(comment.SiteID), userID); err != nil {
		return false, nil, err
	}

	if action != "update" {
		return false, nil, nil
	}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return false, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	var fields map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return false, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
	}

	statusVal, ok := fields["status"].(string)
	if !ok {
		return false, bytes.NewReader(raw), nil
	}

	next := domain.CommentStatus(statusVal)
	if !next.Valid() {
		return false, nil, echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}
	if next == comment.Status {
		return true, nil, c.JSON(http.StatusOK, comment)
	}
	if !comment.Status.CanTransitionTo(next) {
		return false, nil, echo.NewHTTPError(http.StatusUnprocessableEntity, domain.ErrInvalidTransition.Error())
	}

	return false, bytes.NewReader(raw), nil
}

// forward performs the single upstream call and mirrors the result. Upstream
// failure detail is logged server-side only.
func (h *ProxyHandler) forward(c echo.Context, resource, action, id string, query url.Values, body io.Reader) error {
	endpoint := "/" + action + "/" + resource
	if id != "" {
		endpoint += "/" + id
	}

	method := c.Request().Method
	if method == http.MethodGet || method == http.MethodHead {
		body = nil
	}

	start := time.Now()
	res, err := h.store.Forward(c.Request().Context(), method, endpoint, query, body)
	metrics.UpstreamRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProxyErrorsTotal.WithLabelValues("upstream_unreachable").Inc()
		h.log.Error().Err(err).Str("endpoint", endpoint).Msg("upstream call failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "upstream request failed")
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		metrics.ProxyErrorsTotal.WithLabelValues("upstream_status").Inc()
		h.log.Error().
			Int("status", res.StatusCode).
			Str("endpoint", endpoint).
			Bytes("body", res.Body).
			Msg("upstream returned non-2xx")
		return c.JSON(res.StatusCode, map[string]string{"error": "upstream request failed"})
	}

	return c.JSONBlob(res.StatusCode, res.Body)
}

// forceFilter strips any client-supplied pairs for field from the filter
// query parameter and appends the server-derived scope.
func forceFilter(query url.Values, field string, scope ports.Filter) url.Values {
	out := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			out.Add(k, v)
		}
	}

	kept := ports.Filter{}
	if raw := out.Get("filter"); raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			if name, _, ok := strings.Cut(pair, ":"); ok && name == field {
				continue
			}
			kept = append(kept, pair)
		}
	}
	kept = append(kept, scope...)
	out.Set("filter", kept.Encode())
	return out
}

// overrideBodyField decodes a JSON body and pins field to value.
func overrideBodyField(r io.Reader, field string, value any) (io.Reader, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	}
	fields[field] = value

	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
