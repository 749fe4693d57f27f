package domain

import (
	"errors"
	"time"
)

// CommentStatus represents the moderation state of a comment.
type CommentStatus string

const (
	StatusPending  CommentStatus = "pending"
	StatusApproved CommentStatus = "approved"
	StatusRejected CommentStatus = "rejected"
)

// validTransitions defines the allowed moderation transitions. Approved and
// rejected are terminal.
var validTransitions = map[CommentStatus][]CommentStatus{
	StatusPending: {StatusApproved, StatusRejected},
}

var ErrInvalidTransition = errors.New("invalid status transition")
var ErrCommentNotFound = errors.New("comment not found")
var ErrSiteNotFound = errors.New("site not found")
var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUnauthorizedDomain = errors.New("domain not authorized for this api key")
var ErrForbidden = errors.New("access forbidden")
var ErrUpstream = errors.New("upstream request failed")

// CanTransitionTo reports whether a transition from the current status to
// next is valid. Re-applying the current status is not a transition; callers
// treat it as an idempotent no-op.
func (s CommentStatus) CanTransitionTo(next CommentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known moderation states.
func (s CommentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Comment is a visitor comment on a page of a registered site.
// AuthorEmail is kept for the site owner only and is never rendered.
type Comment struct {
	ID          int64         `json:"id"`
	SiteID      int64         `json:"site_id"`
	URL         string        `json:"url"`
	AuthorName  string        `json:"author_name"`
	AuthorEmail string        `json:"author_email,omitempty"`
	Content     string        `json:"content"`
	Status      CommentStatus `json:"status"`
	IPAddress   string        `json:"ip_address,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}
