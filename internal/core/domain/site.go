package domain

import (
	"crypto/rand"
	"time"
)

// Site is a registered website allowed to embed the widget. The api_key is
// public (it ships in page source); authorization comes from matching Domain
// against the request's Origin host, not from key secrecy.
type Site struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"site_name"`
	Domain    string    `json:"domain"`
	APIKey    string    `json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
}

const apiKeyLength = 32

const apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewAPIKey returns a fresh 32-character alphanumeric site key.
// Keys are immutable after creation.
func NewAPIKey() string {
	b := make([]byte, apiKeyLength)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic("domain: rand.Read: " + err.Error())
	}
	for i := range b {
		b[i] = apiKeyAlphabet[int(b[i])%len(apiKeyAlphabet)]
	}
	return string(b)
}
