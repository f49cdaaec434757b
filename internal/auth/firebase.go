package auth

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/example/storefront-sync/internal/identity"
)

// TokenVerifier is the part of the Firebase auth client the verifier uses.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	GetUser(ctx context.Context, uid string) (*fbauth.UserRecord, error)
}

// FirebaseVerifier implements identity.FederatedProvider for Google sign-in
// through Firebase ID tokens.
type FirebaseVerifier struct {
	client TokenVerifier
}

// NewFirebaseAuthClient initialises the Admin SDK from a service account file.
func NewFirebaseAuthClient(ctx context.Context, projectID, credentialsPath string) (*fbauth.Client, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}
	return client, nil
}

func NewFirebaseVerifier(client TokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*identity.Account, error) {
	if idToken == "" {
		return nil, ErrInvalidToken
	}
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	acct := &identity.Account{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		acct.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		acct.DisplayName = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		acct.PhotoURL = picture
	}

	record, err := v.client.GetUser(ctx, token.UID)
	if err != nil {
		// token claims are enough to sign in
		return acct, nil
	}
	if record.UserInfo != nil {
		if record.Email != "" {
			acct.Email = record.Email
		}
		if record.DisplayName != "" {
			acct.DisplayName = record.DisplayName
		}
		if record.PhotoURL != "" {
			acct.PhotoURL = record.PhotoURL
		}
	}
	if record.UserMetadata != nil && record.UserMetadata.CreationTimestamp > 0 {
		acct.CreatedAt = time.UnixMilli(record.UserMetadata.CreationTimestamp).UTC()
	}
	return acct, nil
}
