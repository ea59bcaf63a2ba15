package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seedRecord(t *testing.T, registry *stubRegistry, principalID string, status Status) TenantDatabase {
	t.Helper()
	rec := TenantDatabase{
		ID:           uuid.New(),
		PrincipalID:  principalID,
		DBName:       "careers-test",
		DBURL:        "test.db.example.com",
		RWCredential: "rw-token",
		Status:       status,
	}
	created, err := registry.Create(context.Background(), rec)
	require.NoError(t, err)
	return created
}

func TestConnCacheOpensOncePerPrincipal(t *testing.T) {
	registry := newStubRegistry()
	seedRecord(t, registry, "user-1", StatusReady)

	opens := 0
	cache := NewConnCache(registry, func(_ context.Context, rec TenantDatabase) (string, error) {
		opens++
		return rec.DBName, nil
	}, nil, 0)

	first, err := cache.Get(context.Background(), "user-1")
	require.NoError(t, err)
	second, err := cache.Get(context.Background(), "user-1")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, opens)
}

func TestConnCacheRejectsNotReady(t *testing.T) {
	registry := newStubRegistry()
	seedRecord(t, registry, "user-1", StatusMigrating)

	cache := NewConnCache(registry, func(_ context.Context, rec TenantDatabase) (string, error) {
		return rec.DBName, nil
	}, nil, 0)

	_, err := cache.Get(context.Background(), "user-1")
	require.ErrorIs(t, err, ErrNotReady)
}

func TestConnCacheMissingRecord(t *testing.T) {
	cache := NewConnCache(newStubRegistry(), func(_ context.Context, rec TenantDatabase) (string, error) {
		return rec.DBName, nil
	}, nil, 0)

	_, err := cache.Get(context.Background(), "user-1")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = cache.Get(context.Background(), "")
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestConnCacheInvalidateClosesHandle(t *testing.T) {
	registry := newStubRegistry()
	seedRecord(t, registry, "user-1", StatusReady)

	opens, closes := 0, 0
	cache := NewConnCache(registry, func(_ context.Context, rec TenantDatabase) (string, error) {
		opens++
		return rec.DBName, nil
	}, func(string) {
		closes++
	}, 0)

	_, err := cache.Get(context.Background(), "user-1")
	require.NoError(t, err)

	cache.Invalidate("user-1")
	require.Equal(t, 1, closes)

	// Invalidating an absent entry is a no-op.
	cache.Invalidate("user-1")
	require.Equal(t, 1, closes)

	_, err = cache.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, opens)
}

func TestConnCacheTTLExpiry(t *testing.T) {
	registry := newStubRegistry()
	seedRecord(t, registry, "user-1", StatusReady)

	opens := 0
	cache := NewConnCache(registry, func(_ context.Context, rec TenantDatabase) (string, error) {
		opens++
		return rec.DBName, nil
	}, nil, time.Nanosecond)

	_, err := cache.Get(context.Background(), "user-1")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	_, err = cache.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, opens)
}
