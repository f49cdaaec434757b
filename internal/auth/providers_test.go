package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/infrastructure/store/mocks"
)

// ============================================
// PasswordProvider Tests
// ============================================

func TestPasswordProvider_SignUpAndSignIn(t *testing.T) {
	docs := mocks.NewMockDocumentStore()
	provider := NewPasswordProvider(docs)
	ctx := context.Background()

	created, err := provider.SignUp(ctx, "Jane@Example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, "Jane@Example.com", created.Email)
	assert.False(t, created.CreatedAt.IsZero())

	require.Len(t, docs.SetCalls, 1)
	assert.Equal(t, CredentialsCollection, docs.SetCalls[0].Collection)
	assert.Equal(t, "jane@example.com", docs.SetCalls[0].ID)

	got, err := provider.SignIn(ctx, "jane@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.UID, got.UID)
}

func TestPasswordProvider_StoresSaltedHash(t *testing.T) {
	docs := mocks.NewMockDocumentStore()
	provider := NewPasswordProvider(docs)
	provider.cost = bcrypt.MinCost
	ctx := context.Background()

	_, err := provider.SignUp(ctx, "jane@example.com", "Password123")
	require.NoError(t, err)
	_, err = provider.SignUp(ctx, "john@example.com", "Password123")
	require.NoError(t, err)

	hashes := make([]string, 0, 2)
	for _, key := range []string{"jane@example.com", "john@example.com"} {
		snap, err := docs.Get(ctx, CredentialsCollection, key)
		require.NoError(t, err)
		var c credential
		require.NoError(t, snap.DataTo(&c))
		assert.NotContains(t, c.PasswordHash, "Password123")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte("Password123")))
		hashes = append(hashes, c.PasswordHash)
	}
	assert.NotEqual(t, hashes[0], hashes[1])

	_, err = provider.SignIn(ctx, "jane@example.com", "password123")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials, "passwords are case sensitive")
}

func TestPasswordProvider_SignInFailures(t *testing.T) {
	provider := NewPasswordProvider(mocks.NewMockDocumentStore())
	ctx := context.Background()
	_, err := provider.SignUp(ctx, "jane@example.com", "password123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "jane@example.com", "password124"},
		{"unknown email", "john@example.com", "password123"},
		{"empty email", "", "password123"},
		{"empty password", "jane@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.SignIn(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
		})
	}
}

func TestPasswordProvider_SignUpDuplicateEmail(t *testing.T) {
	provider := NewPasswordProvider(mocks.NewMockDocumentStore())
	ctx := context.Background()
	_, err := provider.SignUp(ctx, "jane@example.com", "password123")
	require.NoError(t, err)

	_, err = provider.SignUp(ctx, "JANE@example.com", "password456")

	assert.ErrorIs(t, err, identity.ErrEmailInUse)
}

func TestPasswordProvider_SignUpValidation(t *testing.T) {
	provider := NewPasswordProvider(mocks.NewMockDocumentStore())
	ctx := context.Background()

	_, err := provider.SignUp(ctx, "not-an-email", "password123")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	_, err = provider.SignUp(ctx, "jane@example.com", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestPasswordProvider_StoreError(t *testing.T) {
	docs := mocks.NewMockDocumentStore()
	docs.GetErr = errors.New("database error")
	provider := NewPasswordProvider(docs)

	_, err := provider.SignIn(context.Background(), "jane@example.com", "password123")

	assert.ErrorContains(t, err, "database error")
	assert.NotErrorIs(t, err, identity.ErrInvalidCredentials)
}

// ============================================
// FirebaseVerifier Tests
// ============================================

type fakeTokenVerifier struct {
	tokens  map[string]*fbauth.Token
	users   map[string]*fbauth.UserRecord
	userErr error
}

func (f *fakeTokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error) {
	tok, ok := f.tokens[idToken]
	if !ok {
		return nil, errors.New("ID token has invalid signature")
	}
	return tok, nil
}

func (f *fakeTokenVerifier) GetUser(ctx context.Context, uid string) (*fbauth.UserRecord, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	rec, ok := f.users[uid]
	if !ok {
		return nil, errors.New("no user record found")
	}
	return rec, nil
}

func TestFirebaseVerifier_UsesUserRecord(t *testing.T) {
	created := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeTokenVerifier{
		tokens: map[string]*fbauth.Token{
			"good": {UID: "g1", Claims: map[string]interface{}{"email": "claim@example.com", "name": "Claim Name"}},
		},
		users: map[string]*fbauth.UserRecord{
			"g1": {
				UserInfo: &fbauth.UserInfo{
					UID:         "g1",
					Email:       "gina@example.com",
					DisplayName: "Gina",
					PhotoURL:    "https://img/gina.png",
				},
				UserMetadata: &fbauth.UserMetadata{CreationTimestamp: created.UnixMilli()},
			},
		},
	}

	acct, err := NewFirebaseVerifier(fake).Verify(context.Background(), "good")

	require.NoError(t, err)
	assert.Equal(t, "g1", acct.UID)
	assert.Equal(t, "gina@example.com", acct.Email)
	assert.Equal(t, "Gina", acct.DisplayName)
	assert.Equal(t, "https://img/gina.png", acct.PhotoURL)
	assert.True(t, created.Equal(acct.CreatedAt))
}

func TestFirebaseVerifier_FallsBackToClaims(t *testing.T) {
	fake := &fakeTokenVerifier{
		tokens: map[string]*fbauth.Token{
			"good": {UID: "g1", Claims: map[string]interface{}{"email": "claim@example.com", "name": "Claim Name", "picture": "https://img/c.png"}},
		},
		userErr: errors.New("quota exceeded"),
	}

	acct, err := NewFirebaseVerifier(fake).Verify(context.Background(), "good")

	require.NoError(t, err)
	assert.Equal(t, "claim@example.com", acct.Email)
	assert.Equal(t, "Claim Name", acct.DisplayName)
	assert.Equal(t, "https://img/c.png", acct.PhotoURL)
	assert.True(t, acct.CreatedAt.IsZero())
}

func TestFirebaseVerifier_RejectsBadToken(t *testing.T) {
	verifier := NewFirebaseVerifier(&fakeTokenVerifier{})

	_, err := verifier.Verify(context.Background(), "forged")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = verifier.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// ============================================
// AllowList Tests
// ============================================

func TestAllowList(t *testing.T) {
	list := NewAllowList([]string{" Admin@Shop.com ", "", "owner@shop.com"})

	assert.Equal(t, 2, list.Len())
	assert.True(t, list.IsAdmin("admin@shop.com"))
	assert.True(t, list.IsAdmin("ADMIN@SHOP.COM"))
	assert.True(t, list.IsAdmin("owner@shop.com"))
	assert.False(t, list.IsAdmin("customer@shop.com"))
	assert.False(t, list.IsAdmin(""))

	var none *AllowList
	assert.False(t, none.IsAdmin("admin@shop.com"))
	assert.Equal(t, 0, none.Len())
}
