package service

import (
	"context"
	"io"
	"net/url"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
	"github.com/recorre/trae-indie-comments/internal/core/ports"
)

// stubStore is an in-memory ports.Store for service tests.
type stubStore struct {
	users    map[string]*domain.User // keyed by email
	sites    []domain.Site
	comments map[int64]*domain.Comment

	nextID      int64
	findSiteErr error
	siteLookups int
}

func newStubStore() *stubStore {
	return &stubStore{
		users:    make(map[string]*domain.User),
		comments: make(map[int64]*domain.Comment),
		nextID:   1,
	}
}

func (s *stubStore) Forward(context.Context, string, string, url.Values, io.Reader) (*ports.ForwardResult, error) {
	return &ports.ForwardResult{StatusCode: 200, Body: []byte(`{"items":[]}`)}, nil
}

func (s *stubStore) FindSiteByAPIKey(_ context.Context, apiKey string) (*domain.Site, error) {
	s.siteLookups++
	if s.findSiteErr != nil {
		return nil, s.findSiteErr
	}
	for i := range s.sites {
		if s.sites[i].APIKey == apiKey {
			return &s.sites[i], nil
		}
	}
	return nil, domain.ErrSiteNotFound
}

func (s *stubStore) GetSite(_ context.Context, id int64) (*domain.Site, error) {
	for i := range s.sites {
		if s.sites[i].ID == id {
			return &s.sites[i], nil
		}
	}
	return nil, domain.ErrSiteNotFound
}

func (s *stubStore) SitesByUser(_ context.Context, userID int64) ([]domain.Site, error) {
	var out []domain.Site
	for _, site := range s.sites {
		if site.UserID == userID {
			out = append(out, site)
		}
	}
	return out, nil
}

func (s *stubStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := s.users[email]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubStore) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := s.users[user.Email]; exists {
		return nil, domain.ErrUserExists
	}
	clone := *user
	clone.ID = s.nextID
	s.nextID++
	s.users[user.Email] = &clone
	out := clone
	return &out, nil
}

func (s *stubStore) UpdateUser(_ context.Context, id int64, fields map[string]any) error {
	for _, u := range s.users {
		if u.ID == id {
			if plan, ok := fields["plan"].(string); ok {
				u.Plan = plan
			}
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (s *stubStore) GetComment(_ context.Context, id int64) (*domain.Comment, error) {
	if c, ok := s.comments[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, domain.ErrCommentNotFound
}
