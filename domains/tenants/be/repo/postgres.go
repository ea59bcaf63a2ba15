package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/careerlog/careerlog-saas/database"
	"github.com/careerlog/careerlog-saas/domains/tenants/be/service"
)

// PostgresRegistry persists tenant database records in the control-plane
// postgres instance.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

var _ service.Registry = (*PostgresRegistry)(nil)

func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	if pool == nil {
		panic("postgres registry requires a pgx pool")
	}
	return &PostgresRegistry{pool: pool}
}

// Init applies the registry DDL. Idempotent; meant to run at startup.
func (r *PostgresRegistry) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, sqlassets.TenantDatabasesSQL); err != nil {
		return fmt.Errorf("apply tenant_databases schema: %w", err)
	}
	return nil
}

const registryColumns = `id, principal_id, db_name, db_url, rw_credential, ro_credential, status, created_at, updated_at`

func (r *PostgresRegistry) GetByPrincipal(ctx context.Context, principalID string) (service.TenantDatabase, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+registryColumns+` FROM tenant_databases WHERE principal_id = $1`,
		principalID,
	)
	return scanRecord(row)
}

func (r *PostgresRegistry) Create(ctx context.Context, rec service.TenantDatabase) (service.TenantDatabase, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO tenant_databases (`+registryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+registryColumns,
		rec.ID, rec.PrincipalID, rec.DBName, rec.DBURL, rec.RWCredential, rec.ROCredential,
		string(rec.Status), rec.CreatedAt, rec.UpdatedAt,
	)
	return scanRecord(row)
}

func (r *PostgresRegistry) Update(ctx context.Context, rec service.TenantDatabase) (service.TenantDatabase, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE tenant_databases
		 SET db_name = $2, db_url = $3, rw_credential = $4, ro_credential = $5, status = $6, updated_at = $7
		 WHERE id = $1
		 RETURNING `+registryColumns,
		rec.ID, rec.DBName, rec.DBURL, rec.RWCredential, rec.ROCredential, string(rec.Status), rec.UpdatedAt,
	)
	return scanRecord(row)
}

func (r *PostgresRegistry) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tenant_databases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant database record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

func (r *PostgresRegistry) List(ctx context.Context) ([]service.TenantDatabase, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+registryColumns+` FROM tenant_databases ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tenant database records: %w", err)
	}
	defer rows.Close()

	var recs []service.TenantDatabase
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanRecord(row pgx.Row) (service.TenantDatabase, error) {
	var rec service.TenantDatabase
	var status string
	err := row.Scan(
		&rec.ID, &rec.PrincipalID, &rec.DBName, &rec.DBURL,
		&rec.RWCredential, &rec.ROCredential, &status,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return service.TenantDatabase{}, service.ErrNotFound
	}
	if err != nil {
		return service.TenantDatabase{}, fmt.Errorf("scan tenant database record: %w", err)
	}
	rec.Status = service.StatusFromString(status)
	return rec, nil
}
