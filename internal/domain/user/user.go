package user

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/example/storefront-sync/internal/infrastructure/store"
)

// Collection holds one profile per identity, keyed by uid.
const Collection = "users"

var ErrUserNotFound = errors.New("user not found")

// Profile is the stored user record. Timestamps are RFC 3339 strings.
type Profile struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	LastLogin   string `json:"lastLogin"`
	CreatedAt   string `json:"createdAt"`
}

// Login carries what the auth provider knows about a signed-in account.
type Login struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	CreatedAt   time.Time
}

// DefaultDisplayName is the local part of email, or "Unknown".
func DefaultDisplayName(email string) string {
	if name, _, ok := strings.Cut(email, "@"); ok && name != "" {
		return name
	}
	return "Unknown"
}

// AvatarURL builds a generated avatar for people without a photo.
func AvatarURL(displayName string) string {
	return "https://ui-avatars.com/api/?background=random&name=" + url.QueryEscape(displayName)
}

// Service handles user profile operations
type Service struct {
	store store.DocumentStore
	now   func() time.Time
}

// NewService creates a new user service
func NewService(s store.DocumentStore) *Service {
	return &Service{store: s, now: time.Now}
}

// RecordLogin upserts the profile for l and stamps lastLogin. Stored fields
// this call does not set are kept.
func (s *Service) RecordLogin(ctx context.Context, l Login) (*Profile, error) {
	if l.UID == "" {
		return nil, ErrUserNotFound
	}
	now := s.now().UTC()

	displayName := l.DisplayName
	if displayName == "" {
		displayName = DefaultDisplayName(l.Email)
	}
	photoURL := l.PhotoURL
	if photoURL == "" {
		photoURL = AvatarURL(displayName)
	}
	createdAt := l.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	p := Profile{
		UID:         l.UID,
		Email:       l.Email,
		DisplayName: displayName,
		PhotoURL:    photoURL,
		LastLogin:   now.Format(time.RFC3339Nano),
		CreatedAt:   createdAt.UTC().Format(time.RFC3339Nano),
	}
	if err := s.store.Merge(ctx, Collection, l.UID, p); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return &p, nil
}

func (s *Service) Get(ctx context.Context, uid string) (*Profile, error) {
	if uid == "" {
		return nil, ErrUserNotFound
	}
	snap, err := s.store.Get(ctx, Collection, uid)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, ErrUserNotFound
	}
	var p Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	p.UID = snap.ID
	return &p, nil
}

// List returns every stored profile.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	snaps, err := s.store.List(ctx, Collection)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(snaps))
	for _, snap := range snaps {
		var p Profile
		if err := snap.DataTo(&p); err != nil {
			return nil, fmt.Errorf("failed to decode user %s: %w", snap.ID, err)
		}
		p.UID = snap.ID
		profiles = append(profiles, p)
	}
	return profiles, nil
}
