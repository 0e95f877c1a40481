package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/identity"
	"github.com/oracare/fulfillment/internal/domain/shared"
	"github.com/oracare/fulfillment/internal/infrastructure/auth"
)

// ErrInvalidCredentials is returned for a bad username or password. The two
// cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")

// AuthService handles login, logout and session lookup
type AuthService struct {
	users      identity.UserRepository
	sessions   identity.SessionStore
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(users identity.UserRepository, sessions identity.SessionStore, sessionTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, sessions: sessions, sessionTTL: sessionTTL, logger: logger}
}

// Login verifies credentials and opens a new session
func (s *AuthService) Login(ctx context.Context, username, password string) (*identity.Session, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		s.logger.Warn("failed login attempt", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	token, err := auth.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := time.Now().UTC()
	session := &identity.Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	lastLogin := now
	user.LastLoginAt = &lastLogin
	if err := s.users.Save(ctx, user); err != nil {
		s.logger.Warn("could not record last login", zap.String("username", username), zap.Error(err))
	}

	s.logger.Info("user logged in", zap.String("username", username), zap.String("role", user.Role.String()))
	return session, nil
}

// Logout closes a session. A missing session is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	return nil
}

// SessionByToken returns the live session behind a cookie token
func (s *AuthService) SessionByToken(ctx context.Context, token string) (*identity.Session, error) {
	return s.sessions.Get(ctx, token)
}

// CreateUser registers a dashboard account with a hashed password
func (s *AuthService) CreateUser(ctx context.Context, username, password string, role identity.Role) (*identity.User, error) {
	if username == "" || password == "" {
		return nil, shared.NewDomainError("INVALID_USER", "Username and password are required")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role: "+role.String())
	}

	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return nil, shared.ErrAlreadyExists
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &identity.User{
		BaseEntity:   shared.NewBaseEntity(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("username", username), zap.String("role", role.String()))
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account when no such user exists
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	_, err = s.CreateUser(ctx, username, password, identity.RoleAdmin)
	return err
}
