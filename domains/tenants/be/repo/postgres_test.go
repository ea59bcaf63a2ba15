package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/careerlog/careerlog-saas/domains/tenants/be/service"
	"github.com/careerlog/careerlog-saas/platform/go/persistence"
)

func newPostgresTestRegistry(t *testing.T) *PostgresRegistry {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping registry integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("careerlog"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(func() {
		persistence.ClosePool(pool)
	})

	registry := NewPostgresRegistry(pool)
	require.NoError(t, registry.Init(ctx))
	// Init is idempotent; a second startup must not fail.
	require.NoError(t, registry.Init(ctx))
	return registry
}

func TestPostgresRegistryLifecycle(t *testing.T) {
	t.Parallel()

	registry := newPostgresTestRegistry(t)
	ctx := context.Background()

	_, err := registry.GetByPrincipal(ctx, "user-1")
	require.ErrorIs(t, err, service.ErrNotFound)

	now := time.Now().UTC().Truncate(time.Microsecond)
	created, err := registry.Create(ctx, service.TenantDatabase{
		ID:           uuid.New(),
		PrincipalID:  "user-1",
		DBName:       "careers-abc",
		DBURL:        "abc.db.example.com",
		RWCredential: "rw-token",
		Status:       service.StatusCreating,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	require.Equal(t, service.StatusCreating, created.Status)
	require.Nil(t, created.ROCredential)

	ro := "ro-token"
	created.ROCredential = &ro
	created.Status = service.StatusReady
	created.UpdatedAt = now.Add(time.Second)
	updated, err := registry.Update(ctx, created)
	require.NoError(t, err)
	require.Equal(t, service.StatusReady, updated.Status)
	require.NotNil(t, updated.ROCredential)
	require.Equal(t, "ro-token", *updated.ROCredential)

	fetched, err := registry.GetByPrincipal(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, "careers-abc", fetched.DBName)

	recs, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	// One record per principal.
	_, err = registry.Create(ctx, service.TenantDatabase{
		ID:          uuid.New(),
		PrincipalID: "user-1",
		DBName:      "careers-dup",
		Status:      service.StatusCreating,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.Error(t, err)

	require.NoError(t, registry.Delete(ctx, created.ID))
	require.ErrorIs(t, registry.Delete(ctx, created.ID), service.ErrNotFound)

	_, err = registry.GetByPrincipal(ctx, "user-1")
	require.ErrorIs(t, err, service.ErrNotFound)
}
