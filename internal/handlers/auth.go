package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cbr-records/apiserver/internal/services"
	"github.com/cbr-records/apiserver/internal/store"
	"github.com/cbr-records/apiserver/internal/token"
	"github.com/go-chi/chi/v5"
)

// AuthHandler provides the login, password-change and bootstrap endpoints.
type AuthHandler struct {
	userService *services.UserService
	tokens      *token.Service
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens *token.Service) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens}
}

// AuthRouter registers the auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, tokens *token.Service) {
	handler := NewAuthHandler(userService, tokens)

	r.Post("/login", handler.Login)
	r.With(RequireAuth(tokens)).Post("/change-password", handler.ChangePassword)
	r.Post("/create-first-admin", handler.CreateFirstAdmin)
}

// RequireAuth gates a route behind a bearer token: 401 when no token is
// presented, 403 for an invalid or expired one (expiry gets its own
// message). On success the resolved identity is injected into the request
// context. The guard never mutates state.
func RequireAuth(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "missing token")
				return
			}

			identity, err := tokens.Verify(tokenString)
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					writeError(w, http.StatusForbidden, "session expired, log in again")
					return
				}
				writeError(w, http.StatusForbidden, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), contextIdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Login verifies credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.VerifyCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	signed, err := h.tokens.Issue(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Message: "login successful", Token: signed})
}

// ChangePassword rotates the authenticated user's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	var req ChangePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err = h.userService.ChangePassword(r.Context(), identity.UserID, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, MessageResponse{Message: "password changed"})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "failed to change password")
	}
}

// CreateFirstAdmin creates the bootstrap account. Once any account exists
// the route refuses, so it cannot be used after initial setup.
func (h *AuthHandler) CreateFirstAdmin(w http.ResponseWriter, r *http.Request) {
	count, err := h.userService.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check users")
		return
	}
	if count > 0 {
		writeError(w, http.StatusForbidden, "admin account already exists")
		return
	}

	var req CreateAdminRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.CreateAdmin(r.Context(), req.Username, req.Password)
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, validationErr.Message)
		case errors.Is(err, store.ErrDuplicate):
			writeError(w, http.StatusConflict, "username already exists")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create admin")
		}
		return
	}

	writeJSON(w, http.StatusCreated, ItemResponse{Message: "admin created", Item: user})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type CreateAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	value := strings.TrimSpace(parts[1])
	if value == "" {
		return "", errors.New("invalid authorization")
	}
	return value, nil
}
