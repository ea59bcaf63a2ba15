package provisioning

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	sqlassets "github.com/careerlog/careerlog-saas/database"
	"github.com/careerlog/careerlog-saas/domains/tenants/be/service"
)

// PGSchemaApplier connects to a freshly provisioned tenant database with its
// read-write credential and applies the tenant space DDL in order.
type PGSchemaApplier struct {
	buildDSN func(hostname, dbName, credential string) string
}

var _ service.SchemaApplier = (*PGSchemaApplier)(nil)

func NewPGSchemaApplier(buildDSN func(hostname, dbName, credential string) string) *PGSchemaApplier {
	if buildDSN == nil {
		panic("schema applier requires dsn builder")
	}
	return &PGSchemaApplier{buildDSN: buildDSN}
}

func (a *PGSchemaApplier) Apply(ctx context.Context, dbURL, dbName, credential string) error {
	conn, err := pgx.Connect(ctx, a.buildDSN(dbURL, dbName, credential))
	if err != nil {
		return fmt.Errorf("connect tenant database %s: %w", dbName, err)
	}
	defer conn.Close(ctx) // nolint:errcheck

	// Statements are ordered: highlights reference jobs.
	for _, ddl := range sqlassets.TenantSpaceDDL {
		if _, err := conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema to %s: %w", dbName, err)
		}
	}
	return nil
}
