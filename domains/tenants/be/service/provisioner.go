package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careerlog/careerlog-saas/platform/go/tenant"
)

// Saga step names recorded on ProvisionError.
const (
	StepCreateDatabase = "create database"
	StepIssueTokens    = "issue credentials"
	StepRecordLocation = "record location"
	StepApplySchema    = "apply schema"
)

// ProvisionError wraps a failed saga step. The registry record is marked
// error before this is returned, so a retry re-enters from creating.
type ProvisionError struct {
	Step string
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision %s: %v", e.Step, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// Provisioner drives the per-principal database saga:
// (none) -> creating -> migrating -> ready, with error reachable from any
// step. Steps are not atomic as a unit; recovery is delete-and-restart,
// which is safe because create-database tolerates "already exists".
type Provisioner struct {
	registry Registry
	platform PlatformAPI
	schema   SchemaApplier
	group    string
	logger   *zap.Logger
}

// NewProvisioner constructs a Provisioner with required dependencies.
func NewProvisioner(registry Registry, platform PlatformAPI, schema SchemaApplier, group string, logger *zap.Logger) *Provisioner {
	if registry == nil {
		panic("provisioner requires registry")
	}
	if platform == nil {
		panic("provisioner requires platform api")
	}
	if schema == nil {
		panic("provisioner requires schema applier")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{registry: registry, platform: platform, schema: schema, group: group, logger: logger}
}

// Provision ensures a ready tenant database for the principal and returns
// its registry record.
//
// Idempotent fast path: an existing ready record is returned with zero
// external calls. Any other existing record is stale partial state; it is
// deleted and the saga restarts from creating.
func (p *Provisioner) Provision(ctx context.Context, principalID string) (TenantDatabase, error) {
	if principalID == "" {
		return TenantDatabase{}, ErrNotAuthenticated
	}

	existing, err := p.registry.GetByPrincipal(ctx, principalID)
	switch {
	case err == nil && existing.Status == StatusReady:
		return existing, nil
	case err == nil:
		if err := p.registry.Delete(ctx, existing.ID); err != nil {
			return TenantDatabase{}, fmt.Errorf("discard stale record %s: %w", existing.ID, err)
		}
		p.logger.Info("discarded stale tenant database record",
			zap.String("principal_id", principalID),
			zap.String("status", string(existing.Status)),
		)
	case !errors.Is(err, ErrNotFound):
		return TenantDatabase{}, fmt.Errorf("look up registry: %w", err)
	}

	now := time.Now().UTC()
	rec := TenantDatabase{
		ID:          uuid.New(),
		PrincipalID: principalID,
		DBName:      tenant.BuildDatabaseName(principalID),
		Status:      StatusCreating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	rec, err = p.registry.Create(ctx, rec)
	if err != nil {
		return TenantDatabase{}, fmt.Errorf("insert registry record: %w", err)
	}

	instance, err := p.platform.CreateDatabase(ctx, rec.DBName, p.group)
	if errors.Is(err, ErrDatabaseExists) {
		// Deterministic name collided with an instance left behind by an
		// interrupted run; adopt it instead of failing.
		instance, err = p.platform.GetDatabase(ctx, rec.DBName)
	}
	if err != nil {
		return p.fail(ctx, rec, StepCreateDatabase, err)
	}

	rwToken, err := p.platform.CreateAuthToken(ctx, rec.DBName, false)
	if err != nil {
		return p.fail(ctx, rec, StepIssueTokens, err)
	}
	roToken, err := p.platform.CreateAuthToken(ctx, rec.DBName, true)
	if err != nil {
		return p.fail(ctx, rec, StepIssueTokens, err)
	}

	rec.DBURL = instance.Hostname
	rec.RWCredential = rwToken
	rec.ROCredential = &roToken
	rec.Status = StatusMigrating
	rec.UpdatedAt = time.Now().UTC()
	rec, err = p.registry.Update(ctx, rec)
	if err != nil {
		return p.fail(ctx, rec, StepRecordLocation, err)
	}

	if err := p.schema.Apply(ctx, rec.DBURL, rec.DBName, rec.RWCredential); err != nil {
		return p.fail(ctx, rec, StepApplySchema, err)
	}

	rec.Status = StatusReady
	rec.UpdatedAt = time.Now().UTC()
	rec, err = p.registry.Update(ctx, rec)
	if err != nil {
		return p.fail(ctx, rec, StepRecordLocation, err)
	}

	p.logger.Info("tenant database ready",
		zap.String("principal_id", principalID),
		zap.String("db_name", rec.DBName),
	)
	return rec, nil
}

// fail marks the record as error and returns a ProvisionError. The error
// status is best effort; the caller's retry path discards the record anyway.
func (p *Provisioner) fail(ctx context.Context, rec TenantDatabase, step string, cause error) (TenantDatabase, error) {
	rec.Status = StatusError
	rec.UpdatedAt = time.Now().UTC()
	if _, err := p.registry.Update(ctx, rec); err != nil {
		p.logger.Error("mark tenant database errored",
			zap.String("principal_id", rec.PrincipalID),
			zap.Error(err),
		)
	}
	return TenantDatabase{}, &ProvisionError{Step: step, Err: cause}
}
