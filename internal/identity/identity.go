package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailInUse         = errors.New("email is already registered")
	ErrProviderDisabled   = errors.New("sign-in provider is not configured")
	ErrUnauthenticated    = errors.New("sign in required")
)

// Provider names recorded on an Identity.
const (
	ProviderPassword = "password"
	ProviderFirebase = "firebase"
)

// Identity is the signed-in account as the rest of the system sees it.
type Identity struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL"`
	Provider    string    `json:"provider"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLogin   time.Time `json:"lastLogin"`
}

// Account is what an authentication provider returns for valid credentials.
type Account struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	CreatedAt   time.Time
}

// PasswordProvider checks and registers email/password credentials.
type PasswordProvider interface {
	SignIn(ctx context.Context, email, password string) (*Account, error)
	SignUp(ctx context.Context, email, password string) (*Account, error)
}

// FederatedProvider verifies an ID token issued by an external identity
// provider.
type FederatedProvider interface {
	Verify(ctx context.Context, idToken string) (*Account, error)
}
