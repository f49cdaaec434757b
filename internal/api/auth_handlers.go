package api

import (
	"net/http"
	"time"

	"github.com/example/storefront-sync/internal/api/middleware"
	"github.com/example/storefront-sync/internal/auth"
	"github.com/example/storefront-sync/internal/domain/user"
	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/logger"
	"github.com/example/storefront-sync/internal/session"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	identities *identity.Service
	users      *user.Service
	jwtService *auth.JWTService
	sessions   *session.Registry
	admins     *auth.AllowList
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(
	identities *identity.Service,
	users *user.Service,
	jwtService *auth.JWTService,
	sessions *session.Registry,
	admins *auth.AllowList,
) *AuthHandlers {
	return &AuthHandlers{
		identities: identities,
		users:      users,
		jwtService: jwtService,
		sessions:   sessions,
		admins:     admins,
	}
}

// CredentialsRequest is the body of sign-up and sign-in
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FederatedRequest carries an ID token from the federated provider
type FederatedRequest struct {
	IDToken string `json:"idToken"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL"`
	Provider    string    `json:"provider,omitempty"`
	IsAdmin     bool      `json:"isAdmin"`
	LastLogin   time.Time `json:"lastLogin,omitempty"`
}

func (h *AuthHandlers) userResponse(id *identity.Identity) UserResponse {
	return UserResponse{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		Provider:    id.Provider,
		IsAdmin:     h.admins.IsAdmin(id.Email),
		LastLogin:   id.LastLogin,
	}
}

// SignUp creates a password account and signs it in
func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.identities.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(w, err)
		return
	}
	h.signedIn(w, r, id, http.StatusCreated, "Registration successful")
}

// SignIn handles password sign-in
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.identities.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(w, err)
		return
	}
	h.signedIn(w, r, id, http.StatusOK, "Login successful")
}

// SignInFederated exchanges a federated ID token for a session
func (h *AuthHandlers) SignInFederated(w http.ResponseWriter, r *http.Request) {
	var req FederatedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IDToken == "" {
		respondJSONError(w, "idToken is required", http.StatusBadRequest)
		return
	}
	id, err := h.identities.SignInFederated(r.Context(), req.IDToken)
	if err != nil {
		respondErr(w, err)
		return
	}
	h.signedIn(w, r, id, http.StatusOK, "Login successful")
}

// signedIn opens the live session for id and hands out the tokens.
func (h *AuthHandlers) signedIn(w http.ResponseWriter, r *http.Request, id *identity.Identity, status int, message string) {
	if _, err := h.sessions.Acquire(*id); err != nil {
		respondErr(w, err)
		return
	}
	accessToken, err := h.setAuthCookies(w, r, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	logger.Component("Auth").WithField("uid", id.UID).WithField("provider", id.Provider).Info("signed in")
	respondJSON(w, status, AuthResponse{
		User:        h.userResponse(id),
		AccessToken: accessToken,
		Message:     message,
	})
}

// SignOut closes the caller's session and clears cookies
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if uid := middleware.GetUserID(r.Context()); uid != "" {
		h.sessions.Release(uid)
	}
	h.clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logout successful",
	})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshCookie, err := r.Cookie("refresh_token")
	if err != nil {
		respondJSONError(w, "No refresh token", http.StatusUnauthorized)
		return
	}

	uid, err := h.jwtService.ValidateRefreshToken(refreshCookie.Value)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	profile, err := h.users.Get(r.Context(), uid)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "User not found", http.StatusUnauthorized)
		return
	}

	id := &identity.Identity{
		UID:         profile.UID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		PhotoURL:    profile.PhotoURL,
		LastLogin:   time.Now(),
	}
	if _, err := h.setAuthCookies(w, r, id); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Token refreshed",
	})
}

// Me returns the current authenticated user's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	resp := h.userResponse(id)
	if profile, err := h.users.Get(r.Context(), id.UID); err == nil {
		resp.DisplayName = profile.DisplayName
		resp.PhotoURL = profile.PhotoURL
	}
	respondJSON(w, http.StatusOK, resp)
}

// Helper methods

func (h *AuthHandlers) setAuthCookies(w http.ResponseWriter, r *http.Request, id *identity.Identity) (string, error) {
	accessToken, accessExpiry, err := h.jwtService.GenerateAccessToken(id)
	if err != nil {
		return "", err
	}
	refreshToken, refreshExpiry, err := h.jwtService.GenerateRefreshToken(id.UID)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/api/auth/refresh",
		Expires:  refreshExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return accessToken, nil
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     "/api/auth/refresh",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
