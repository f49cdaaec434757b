package identity

import (
	"context"
	"time"

	"github.com/example/storefront-sync/internal/domain/user"
	"github.com/example/storefront-sync/internal/logger"
)

// Service turns provider accounts into identities and records each sign-in
// on the user's profile.
type Service struct {
	passwords PasswordProvider
	federated FederatedProvider
	users     *user.Service
	now       func() time.Time
}

// NewService wires the providers. Either provider may be nil, in which case
// its sign-in methods return ErrProviderDisabled.
func NewService(passwords PasswordProvider, federated FederatedProvider, users *user.Service) *Service {
	return &Service{passwords: passwords, federated: federated, users: users, now: time.Now}
}

func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	if s.passwords == nil {
		return nil, ErrProviderDisabled
	}
	acct, err := s.passwords.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, acct, ProviderPassword), nil
}

func (s *Service) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	if s.passwords == nil {
		return nil, ErrProviderDisabled
	}
	acct, err := s.passwords.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, acct, ProviderPassword), nil
}

func (s *Service) SignInFederated(ctx context.Context, idToken string) (*Identity, error) {
	if s.federated == nil {
		return nil, ErrProviderDisabled
	}
	acct, err := s.federated.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, acct, ProviderFirebase), nil
}

// complete upserts the profile. A failed upsert is logged and the sign-in
// still succeeds with locally derived defaults.
func (s *Service) complete(ctx context.Context, acct *Account, provider string) *Identity {
	now := s.now()
	id := &Identity{
		UID:         acct.UID,
		Email:       acct.Email,
		DisplayName: acct.DisplayName,
		PhotoURL:    acct.PhotoURL,
		Provider:    provider,
		CreatedAt:   acct.CreatedAt,
		LastLogin:   now,
	}
	if id.DisplayName == "" {
		id.DisplayName = user.DefaultDisplayName(acct.Email)
	}
	if id.PhotoURL == "" {
		id.PhotoURL = user.AvatarURL(id.DisplayName)
	}

	if s.users == nil {
		return id
	}
	_, err := s.users.RecordLogin(ctx, user.Login{
		UID:         acct.UID,
		Email:       acct.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		CreatedAt:   acct.CreatedAt,
	})
	if err != nil {
		logger.Component("Identity").WithError(err).WithField("uid", acct.UID).Warn("failed to save profile")
	}
	return id
}
