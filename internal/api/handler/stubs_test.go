package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
	"github.com/recorre/trae-indie-comments/internal/core/ports"
)

// stubStore is a ports.Store with overridable behavior per test.
type stubStore struct {
	forwardFn     func(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*ports.ForwardResult, error)
	getSiteFn     func(ctx context.Context, id int64) (*domain.Site, error)
	sitesByUserFn func(ctx context.Context, userID int64) ([]domain.Site, error)
	getCommentFn  func(ctx context.Context, id int64) (*domain.Comment, error)

	forwardCalls int
}

var errStubNotWired = errors.New("stub method not wired")

func (s *stubStore) Forward(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*ports.ForwardResult, error) {
	s.forwardCalls++
	if s.forwardFn == nil {
		return nil, errStubNotWired
	}
	return s.forwardFn(ctx, method, endpoint, query, body)
}

func (s *stubStore) FindSiteByAPIKey(context.Context, string) (*domain.Site, error) {
	return nil, errStubNotWired
}

func (s *stubStore) GetSite(ctx context.Context, id int64) (*domain.Site, error) {
	if s.getSiteFn == nil {
		return nil, errStubNotWired
	}
	return s.getSiteFn(ctx, id)
}

func (s *stubStore) SitesByUser(ctx context.Context, userID int64) ([]domain.Site, error) {
	if s.sitesByUserFn == nil {
		return nil, errStubNotWired
	}
	return s.sitesByUserFn(ctx, userID)
}

func (s *stubStore) FindUserByEmail(context.Context, string) (*domain.User, error) {
	return nil, errStubNotWired
}

func (s *stubStore) GetUser(context.Context, int64) (*domain.User, error) {
	return nil, errStubNotWired
}

func (s *stubStore) CreateUser(context.Context, *domain.User) (*domain.User, error) {
	return nil, errStubNotWired
}

func (s *stubStore) UpdateUser(context.Context, int64, map[string]any) error {
	return errStubNotWired
}

func (s *stubStore) GetComment(ctx context.Context, id int64) (*domain.Comment, error) {
	if s.getCommentFn == nil {
		return nil, errStubNotWired
	}
	return s.getCommentFn(ctx, id)
}

// stubSessions is a ports.SessionService driven by function fields.
type stubSessions struct {
	issueFn  func(user *domain.User) (string, error)
	verifyFn func(token string) (*ports.SessionClaims, error)
}

func (s *stubSessions) Issue(user *domain.User) (string, error) {
	if s.issueFn == nil {
		return "stub-token", nil
	}
	return s.issueFn(user)
}

func (s *stubSessions) Verify(token string) (*ports.SessionClaims, error) {
	if s.verifyFn == nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.verifyFn(token)
}

// sessionFor accepts exactly one token and rejects everything else.
func sessionFor(token string, claims *ports.SessionClaims) *stubSessions {
	return &stubSessions{verifyFn: func(got string) (*ports.SessionClaims, error) {
		if got == token {
			return claims, nil
		}
		return nil, domain.ErrInvalidCredentials
	}}
}

// stubAuthorizer is a ports.Authorizer with a fixed answer.
type stubAuthorizer struct {
	allowed bool
	err     error
	calls   int
}

func (a *stubAuthorizer) Authorize(context.Context, string, string) (bool, error) {
	a.calls++
	return a.allowed, a.err
}

// stubAuthService is a ports.AuthService driven by function fields.
type stubAuthService struct {
	signupFn  func(ctx context.Context, email, password, name string) (string, *domain.User, error)
	loginFn   func(ctx context.Context, email, password string) (string, *domain.User, error)
	upgradeFn func(ctx context.Context, userID int64) (string, *domain.User, error)
}

func (s *stubAuthService) Signup(ctx context.Context, email, password, name string) (string, *domain.User, error) {
	return s.signupFn(ctx, email, password, name)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Upgrade(ctx context.Context, userID int64) (string, *domain.User, error) {
	return s.upgradeFn(ctx, userID)
}

// newTestContext builds an echo context with the validator installed.
func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// httpErrorCode unwraps an *echo.HTTPError status, or 0.
func httpErrorCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}
