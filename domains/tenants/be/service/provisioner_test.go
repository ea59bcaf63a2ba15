package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubRegistry struct {
	mu   sync.Mutex
	recs map[uuid.UUID]TenantDatabase

	failUpdate error
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{recs: make(map[uuid.UUID]TenantDatabase)}
}

func (r *stubRegistry) GetByPrincipal(_ context.Context, principalID string) (TenantDatabase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recs {
		if rec.PrincipalID == principalID {
			return rec, nil
		}
	}
	return TenantDatabase{}, ErrNotFound
}

func (r *stubRegistry) Create(_ context.Context, rec TenantDatabase) (TenantDatabase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs[rec.ID] = rec
	return rec, nil
}

func (r *stubRegistry) Update(_ context.Context, rec TenantDatabase) (TenantDatabase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return TenantDatabase{}, r.failUpdate
	}
	if _, ok := r.recs[rec.ID]; !ok {
		return TenantDatabase{}, ErrNotFound
	}
	r.recs[rec.ID] = rec
	return rec, nil
}

func (r *stubRegistry) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recs[id]; !ok {
		return ErrNotFound
	}
	delete(r.recs, id)
	return nil
}

func (r *stubRegistry) List(_ context.Context) ([]TenantDatabase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TenantDatabase, 0, len(r.recs))
	for _, rec := range r.recs {
		out = append(out, rec)
	}
	return out, nil
}

type stubPlatform struct {
	createCalls int
	tokenCalls  int
	getCalls    int

	createErr error
	tokenErr  error
}

func (p *stubPlatform) CreateDatabase(_ context.Context, name, _ string) (DatabaseInstance, error) {
	p.createCalls++
	if p.createErr != nil {
		return DatabaseInstance{}, p.createErr
	}
	return DatabaseInstance{Name: name, Hostname: name + ".db.example.com"}, nil
}

func (p *stubPlatform) GetDatabase(_ context.Context, name string) (DatabaseInstance, error) {
	p.getCalls++
	return DatabaseInstance{Name: name, Hostname: name + ".db.example.com"}, nil
}

func (p *stubPlatform) CreateAuthToken(_ context.Context, _ string, readOnly bool) (string, error) {
	p.tokenCalls++
	if p.tokenErr != nil {
		return "", p.tokenErr
	}
	if readOnly {
		return "ro-token", nil
	}
	return "rw-token", nil
}

type stubSchema struct {
	applyCalls int
	applyErr   error
}

func (s *stubSchema) Apply(_ context.Context, _, _, _ string) error {
	s.applyCalls++
	return s.applyErr
}

func TestProvisionHappyPath(t *testing.T) {
	registry := newStubRegistry()
	platform := &stubPlatform{}
	schema := &stubSchema{}
	prov := NewProvisioner(registry, platform, schema, "default", nil)

	rec, err := prov.Provision(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, StatusReady, rec.Status)
	require.Equal(t, "rw-token", rec.RWCredential)
	require.NotNil(t, rec.ROCredential)
	require.Equal(t, "ro-token", *rec.ROCredential)
	require.NotEmpty(t, rec.DBName)
	require.Contains(t, rec.DBURL, ".db.example.com")
	require.Equal(t, 1, platform.createCalls)
	require.Equal(t, 2, platform.tokenCalls)
	require.Equal(t, 1, schema.applyCalls)
}

func TestProvisionIdempotentWhenReady(t *testing.T) {
	registry := newStubRegistry()
	platform := &stubPlatform{}
	schema := &stubSchema{}
	prov := NewProvisioner(registry, platform, schema, "default", nil)

	first, err := prov.Provision(context.Background(), "user-1")
	require.NoError(t, err)

	second, err := prov.Provision(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// No external calls on the fast path.
	require.Equal(t, 1, platform.createCalls)
	require.Equal(t, 2, platform.tokenCalls)
	require.Equal(t, 1, schema.applyCalls)
}

func TestProvisionRequiresPrincipal(t *testing.T) {
	prov := NewProvisioner(newStubRegistry(), &stubPlatform{}, &stubSchema{}, "default", nil)

	_, err := prov.Provision(context.Background(), "")
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestProvisionMarksErrorAndRetriesFresh(t *testing.T) {
	registry := newStubRegistry()
	platform := &stubPlatform{tokenErr: errors.New("token service down")}
	schema := &stubSchema{}
	prov := NewProvisioner(registry, platform, schema, "default", nil)

	_, err := prov.Provision(context.Background(), "user-1")
	require.Error(t, err)

	var provErr *ProvisionError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, StepIssueTokens, provErr.Step)

	stale, err := registry.GetByPrincipal(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, StatusError, stale.Status)

	// Retry discards the stale record and runs the saga from the start.
	platform.tokenErr = nil
	rec, err := prov.Provision(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, StatusReady, rec.Status)
	require.NotEqual(t, stale.ID, rec.ID)
	require.Equal(t, stale.DBName, rec.DBName, "db name is deterministic per principal")
}

func TestProvisionAdoptsExistingDatabase(t *testing.T) {
	registry := newStubRegistry()
	platform := &stubPlatform{createErr: ErrDatabaseExists}
	schema := &stubSchema{}
	prov := NewProvisioner(registry, platform, schema, "default", nil)

	rec, err := prov.Provision(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, StatusReady, rec.Status)
	require.Equal(t, 1, platform.createCalls)
	require.Equal(t, 1, platform.getCalls)
}

func TestProvisionSchemaFailure(t *testing.T) {
	registry := newStubRegistry()
	schema := &stubSchema{applyErr: errors.New("connection refused")}
	prov := NewProvisioner(registry, &stubPlatform{}, schema, "default", nil)

	_, err := prov.Provision(context.Background(), "user-1")
	var provErr *ProvisionError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, StepApplySchema, provErr.Step)

	rec, err := registry.GetByPrincipal(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, StatusError, rec.Status)
}
