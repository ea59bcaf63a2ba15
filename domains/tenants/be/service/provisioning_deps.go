package service

import (
	"context"
	"errors"
)

// ErrDatabaseExists is returned by PlatformAPI.CreateDatabase when a database
// with the requested name already exists. Provisioning treats it as success
// and fetches the existing instance instead of failing.
var ErrDatabaseExists = errors.New("database already exists")

// DatabaseInstance describes a database hosted by the external platform.
type DatabaseInstance struct {
	Name     string
	Hostname string
}

// PlatformAPI encapsulates the external database platform. CreateDatabase is
// the only mutating call that can legitimately conflict; GetDatabase recovers
// the location of an instance created by a previous, interrupted run.
type PlatformAPI interface {
	CreateDatabase(ctx context.Context, name, group string) (DatabaseInstance, error)
	GetDatabase(ctx context.Context, name string) (DatabaseInstance, error)
	CreateAuthToken(ctx context.Context, dbName string, readOnly bool) (string, error)
}

// SchemaApplier executes the fixed, ordered schema DDL against a freshly
// provisioned tenant database.
type SchemaApplier interface {
	Apply(ctx context.Context, dbURL, dbName, credential string) error
}
