package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/infrastructure/store"
)

var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

const (
	MinPasswordLength = 8
	bcryptCost        = 12
)

// CredentialsCollection holds one password record per account, keyed by
// lowercased email.
const CredentialsCollection = "credentials"

type credential struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    string `json:"createdAt"`
}

// PasswordProvider implements identity.PasswordProvider on top of the
// document store with bcrypt hashes.
type PasswordProvider struct {
	store store.DocumentStore
	cost  int
	now   func() time.Time
}

func NewPasswordProvider(s store.DocumentStore) *PasswordProvider {
	return &PasswordProvider{store: s, cost: bcryptCost, now: time.Now}
}

func credentialKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *PasswordProvider) SignIn(ctx context.Context, email, password string) (*identity.Account, error) {
	key := credentialKey(email)
	if key == "" || password == "" {
		return nil, identity.ErrInvalidCredentials
	}
	snap, err := p.store.Get(ctx, CredentialsCollection, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if !snap.Exists {
		return nil, identity.ErrInvalidCredentials
	}
	var c credential
	if err := snap.DataTo(&c); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		return nil, identity.ErrInvalidCredentials
	}
	return c.account(), nil
}

func (p *PasswordProvider) SignUp(ctx context.Context, email, password string) (*identity.Account, error) {
	key := credentialKey(email)
	if key == "" || !strings.Contains(key, "@") {
		return nil, identity.ErrInvalidCredentials
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	snap, err := p.store.Get(ctx, CredentialsCollection, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if snap.Exists {
		return nil, identity.ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	c := credential{
		UID:          uuid.NewString(),
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC().Format(time.RFC3339Nano),
	}
	if err := p.store.Set(ctx, CredentialsCollection, key, c); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	return c.account(), nil
}

func (c credential) account() *identity.Account {
	acct := &identity.Account{UID: c.UID, Email: c.Email}
	if t, err := time.Parse(time.RFC3339Nano, c.CreatedAt); err == nil {
		acct.CreatedAt = t
	}
	return acct
}
