package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/service"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/httputil"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/middleware"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/validator"
)

// AuthHandler handles login, logout and the current-user lookup.
type AuthHandler struct {
	service      *service.AuthService
	cookieName   string
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler. secureCookie marks the
// session cookie HTTPS-only.
func NewAuthHandler(svc *service.AuthService, cookieName string, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:      svc,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// LoginResponse is returned on successful login. The token is also set as a
// cookie.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// SessionResolver adapts AuthService.Resolve to the middleware contract.
func SessionResolver(svc *service.AuthService) middleware.SessionResolver {
	return func(ctx context.Context, token string) (*middleware.Principal, error) {
		s, err := svc.Resolve(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Principal{
			SessionID: s.ID,
			UserID:    s.UserID,
			Username:  s.Username,
			Role:      s.Role,
		}, nil
	}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User,
	}})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookieName); err == nil {
		if err := h.service.Logout(r.Context(), c.Value); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("login required"), h.logger)
		return
	}

	user, err := h.service.CurrentUser(r.Context(), sessionFromPrincipal(p))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}

func sessionFromPrincipal(p *middleware.Principal) *domain.Session {
	return &domain.Session{
		ID:       p.SessionID,
		UserID:   p.UserID,
		Username: p.Username,
		Role:     p.Role,
	}
}
