package domain

import "time"

const (
	PlanFree      = "free"
	PlanSupporter = "supporter"
)

// User models a panel account that owns sites and moderates comments.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Plan         string    `json:"plan"`
	CreatedAt    time.Time `json:"created_at"`
}
