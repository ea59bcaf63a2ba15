package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors returned by the tenants layer.
var (
	ErrNotFound         = errors.New("tenant database record not found")
	ErrNotReady         = errors.New("tenant database not ready")
	ErrNotAuthenticated = errors.New("no principal id available")
)

// Status is the provisioning state of a tenant database. Transitions move
// forward (creating -> migrating -> ready); any non-ready record may be
// deleted and restarted from creating via an explicit retry.
type Status string

const (
	StatusCreating  Status = "creating"
	StatusMigrating Status = "migrating"
	StatusReady     Status = "ready"
	StatusError     Status = "error"
)

// StatusFromString converts a stored string to Status; unknown values map to
// error so a corrupted record is never treated as usable.
func StatusFromString(s string) Status {
	switch Status(s) {
	case StatusCreating, StatusMigrating, StatusReady, StatusError:
		return Status(s)
	default:
		return StatusError
	}
}

// TenantDatabase is the control-plane registry record mapping a principal to
// their dedicated remote database. At most one record exists per principal.
type TenantDatabase struct {
	ID           uuid.UUID
	PrincipalID  string
	DBName       string
	DBURL        string
	RWCredential string
	ROCredential *string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Registry abstracts control-plane persistence.
type Registry interface {
	GetByPrincipal(ctx context.Context, principalID string) (TenantDatabase, error)
	Create(ctx context.Context, rec TenantDatabase) (TenantDatabase, error)
	Update(ctx context.Context, rec TenantDatabase) (TenantDatabase, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]TenantDatabase, error)
}
