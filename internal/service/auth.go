package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/auth"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
)

// AuthService handles staff login sessions.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionStore
	tokens     *auth.TokenManager
	logger     *slog.Logger
	bcryptCost int
	now        func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(users repository.UserRepository, sessions repository.SessionStore, tokens *auth.TokenManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: auth.BcryptCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// EnsureSeedAdmin creates the initial admin account unless the username is
// already taken. It is safe to call on every start.
func (s *AuthService) EnsureSeedAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	now := s.now()
	created, err := s.users.CreateIfAbsent(ctx, &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		FullName:     "Administrator",
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return apperrors.AsPersistence(fmt.Errorf("seed admin: %w", err))
	}

	if created {
		s.logger.InfoContext(ctx, "seed admin created", slog.String("username", username))
	} else {
		s.logger.DebugContext(ctx, "seed admin already present", slog.String("username", username))
	}
	return nil
}

// LoginResult is a new session and the token naming it.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Session   *domain.Session
	User      *domain.User
}

var errBadCredentials = apperrors.Unauthorized("invalid username or password")

// Login checks the password and opens a session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if isNotFound(err) {
			return nil, errBadCredentials
		}
		return nil, apperrors.AsPersistence(fmt.Errorf("get user: %w", err))
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.WarnContext(ctx, "failed login", slog.String("username", user.Username))
			return nil, errBadCredentials
		}
		return nil, apperrors.Internal(err)
	}

	sessionID := uuid.NewString()
	token, expires, err := s.tokens.Sign(sessionID, user.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	session := &domain.Session{
		ID:        sessionID,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		ExpiresAt: expires,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("save session: %w", err))
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return &LoginResult{Token: token, ExpiresAt: expires, Session: session, User: user}, nil
}

// Resolve returns the live session a token names.
func (s *AuthService) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid session token")
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.Unauthorized("session expired or revoked")
		}
		return nil, apperrors.AsPersistence(fmt.Errorf("get session: %w", err))
	}
	if session.UserID != claims.Subject || session.Expired(s.now()) {
		return nil, apperrors.Unauthorized("session expired or revoked")
	}
	return session, nil
}

// Logout revokes the session a token names. Unknown or malformed tokens are
// ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return apperrors.AsPersistence(fmt.Errorf("delete session: %w", err))
	}
	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", claims.Subject))
	return nil
}

// CurrentUser loads the account behind a session.
func (s *AuthService) CurrentUser(ctx context.Context, session *domain.Session) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("get user: %w", err))
	}
	return user, nil
}
