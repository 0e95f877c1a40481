package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oracare/fulfillment/internal/domain/shared"
)

// Role represents a dashboard access role
type Role string

const (
	// RoleViewer can read everything and perform a small allow-list of writes
	RoleViewer Role = "viewer"
	// RoleAdmin can do everything
	RoleAdmin Role = "admin"
)

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is valid
func (r Role) IsValid() bool {
	return r == RoleViewer || r == RoleAdmin
}

// User is a dashboard account
type User struct {
	shared.BaseEntity
	Username     string `gorm:"size:128;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         Role   `gorm:"size:16;not null;default:viewer"`
	LastLoginAt  *time.Time
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// UserRepository persists dashboard accounts
type UserRepository interface {
	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// Save creates or updates a user
	Save(ctx context.Context, u *User) error
}

// Session is the server-side state behind a session cookie. Sessions live in
// Redis; this type is the stored value.
type Session struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session has passed its expiry
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionStore persists sessions keyed by token
type SessionStore interface {
	// Put stores a session until its expiry
	Put(ctx context.Context, s *Session) error

	// Get returns the session for a token, or shared.ErrNotFound
	Get(ctx context.Context, token string) (*Session, error)

	// Delete removes a session
	Delete(ctx context.Context, token string) error
}
