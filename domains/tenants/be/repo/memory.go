package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/careerlog/careerlog-saas/domains/tenants/be/service"
)

// MemoryRegistry is an in-memory Registry for tests and local development.
type MemoryRegistry struct {
	mu   sync.Mutex
	recs map[uuid.UUID]service.TenantDatabase
}

var _ service.Registry = (*MemoryRegistry)(nil)

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{recs: make(map[uuid.UUID]service.TenantDatabase)}
}

func (r *MemoryRegistry) GetByPrincipal(_ context.Context, principalID string) (service.TenantDatabase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.recs {
		if rec.PrincipalID == principalID {
			return rec, nil
		}
	}
	return service.TenantDatabase{}, service.ErrNotFound
}

func (r *MemoryRegistry) Create(_ context.Context, rec service.TenantDatabase) (service.TenantDatabase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recs[rec.ID] = rec
	return rec, nil
}

func (r *MemoryRegistry) Update(_ context.Context, rec service.TenantDatabase) (service.TenantDatabase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.recs[rec.ID]; !ok {
		return service.TenantDatabase{}, service.ErrNotFound
	}
	r.recs[rec.ID] = rec
	return rec, nil
}

func (r *MemoryRegistry) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.recs[id]; !ok {
		return service.ErrNotFound
	}
	delete(r.recs, id)
	return nil
}

func (r *MemoryRegistry) List(_ context.Context) ([]service.TenantDatabase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs := make([]service.TenantDatabase, 0, len(r.recs))
	for _, rec := range r.recs {
		recs = append(recs, rec)
	}
	return recs, nil
}
