package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-sync/internal/infrastructure/store/mocks"
)

func newTestUserService(now time.Time) (*Service, *mocks.MockDocumentStore) {
	docs := mocks.NewMockDocumentStore()
	service := NewService(docs)
	service.now = func() time.Time { return now }
	return service, docs
}

// ============================================
// RecordLogin Tests
// ============================================

func TestService_RecordLogin_Defaults(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	service, docs := newTestUserService(now)

	p, err := service.RecordLogin(context.Background(), Login{UID: "u1", Email: "jane.doe@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "jane.doe", p.DisplayName)
	assert.Equal(t, "https://ui-avatars.com/api/?background=random&name=jane.doe", p.PhotoURL)
	assert.Equal(t, "2024-06-01T09:30:00Z", p.LastLogin)
	assert.Equal(t, "2024-06-01T09:30:00Z", p.CreatedAt)

	require.Len(t, docs.MergeCalls, 1)
	assert.Equal(t, Collection, docs.MergeCalls[0].Collection)
	assert.Equal(t, "u1", docs.MergeCalls[0].ID)
}

func TestService_RecordLogin_KeepsProviderValues(t *testing.T) {
	service, _ := newTestUserService(time.Now())
	created := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)

	p, err := service.RecordLogin(context.Background(), Login{
		UID:         "u1",
		Email:       "jane@example.com",
		DisplayName: "Jane",
		PhotoURL:    "https://img/jane.png",
		CreatedAt:   created,
	})

	require.NoError(t, err)
	assert.Equal(t, "Jane", p.DisplayName)
	assert.Equal(t, "https://img/jane.png", p.PhotoURL)
	assert.Equal(t, "2023-01-02T03:04:05Z", p.CreatedAt)
}

func TestService_RecordLogin_MergePreservesOtherFields(t *testing.T) {
	first := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	service, docs := newTestUserService(first)
	ctx := context.Background()
	require.NoError(t, docs.MemoryStore.Set(ctx, Collection, "u1", map[string]any{
		"uid":      "u1",
		"phone":    "5551234567",
		"nickname": "jd",
	}))

	_, err := service.RecordLogin(ctx, Login{UID: "u1", Email: "jd@example.com"})
	require.NoError(t, err)

	snap, err := docs.Get(ctx, Collection, "u1")
	require.NoError(t, err)
	var stored map[string]any
	require.NoError(t, snap.DataTo(&stored))
	assert.Equal(t, "5551234567", stored["phone"])
	assert.Equal(t, "jd", stored["nickname"])
	assert.Equal(t, "jd@example.com", stored["email"])

	// a later login only moves lastLogin forward
	second := first.Add(time.Hour)
	service.now = func() time.Time { return second }
	_, err = service.RecordLogin(ctx, Login{UID: "u1", Email: "jd@example.com", CreatedAt: first})
	require.NoError(t, err)

	p, err := service.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T10:00:00Z", p.LastLogin)
	assert.Equal(t, "2024-06-01T09:00:00Z", p.CreatedAt)
}

func TestService_RecordLogin_StoreError(t *testing.T) {
	service, docs := newTestUserService(time.Now())
	docs.MergeErr = errors.New("database error")

	_, err := service.RecordLogin(context.Background(), Login{UID: "u1", Email: "a@x.com"})

	assert.ErrorContains(t, err, "database error")
}

func TestDefaultDisplayName(t *testing.T) {
	assert.Equal(t, "bob", DefaultDisplayName("bob@x.com"))
	assert.Equal(t, "Unknown", DefaultDisplayName(""))
	assert.Equal(t, "Unknown", DefaultDisplayName("@x.com"))
}

// ============================================
// Read Tests
// ============================================

func TestService_GetAndList(t *testing.T) {
	service, _ := newTestUserService(time.Now())
	ctx := context.Background()
	for _, uid := range []string{"u2", "u1"} {
		_, err := service.RecordLogin(ctx, Login{UID: uid, Email: uid + "@x.com"})
		require.NoError(t, err)
	}

	p, err := service.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@x.com", p.Email)

	_, err = service.Get(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	all, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "u1", all[0].UID)
}
