package domain

import (
	"errors"
	"time"
)

const (
	ProviderSession  = "session"
	ProviderFirebase = "firebase"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingToken   = errors.New("missing authorization token")
)

// Principal is an authenticated anonymous identity.
// DisplayName is empty for Firebase principals; they name themselves per request.
type Principal struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
	Provider    string `json:"provider"`
}

// Session is what a successful name check hands back to the client.
type Session struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Member is a directory entry for a principal that passed the name check.
type Member struct {
	UID         string     `json:"uid" db:"uid"`
	DisplayName string     `json:"displayName" db:"display_name"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
}
