// Package service implements the one-time migration of career data from the
// local embedded store into a principal's remote tenant database.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	careers "github.com/careerlog/careerlog-saas/domains/careers/be/service"
	tenants "github.com/careerlog/careerlog-saas/domains/tenants/be/service"
)

// StoreResolver returns the remote store handle for a ready principal. It is
// backed by the connection cache, so migration reuses the same gate every
// data-path caller goes through.
type StoreResolver func(ctx context.Context, principalID string) (careers.Store, error)

// Result describes one migration run.
type Result struct {
	JobsMigrated       int  `json:"jobsMigrated"`
	HighlightsMigrated int  `json:"highlightsMigrated"`
	ProfileMigrated    bool `json:"profileMigrated"`
	Skipped            bool `json:"skipped"`
	Completed          bool `json:"completed"`
}

// Workflow moves local data to the remote tenant database once per principal.
// Local data is cleared only after every record imported cleanly, so a failed
// run leaves the local store untouched and retryable.
type Workflow struct {
	local       careers.Store
	registry    tenants.Registry
	provisioner *tenants.Provisioner
	resolve     StoreResolver
	logger      *zap.Logger

	// runs holds one *atomic.Bool per principal. The flag is set while a run
	// is in flight and stays set after a successful run; a failed run clears
	// it again so the principal can retry.
	runs sync.Map
}

func NewWorkflow(local careers.Store, registry tenants.Registry, provisioner *tenants.Provisioner, resolve StoreResolver, logger *zap.Logger) *Workflow {
	if local == nil {
		panic("migration workflow requires local store")
	}
	if registry == nil {
		panic("migration workflow requires registry")
	}
	if provisioner == nil {
		panic("migration workflow requires provisioner")
	}
	if resolve == nil {
		panic("migration workflow requires store resolver")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{local: local, registry: registry, provisioner: provisioner, resolve: resolve, logger: logger}
}

// Run executes the migration for the principal. A completed run makes later
// calls for the same principal skip; a concurrent call while one is in flight
// also skips, which keeps double-migration impossible. A failed run releases
// the guard: remote imports are upserts, so the whole run is safe to retry.
func (w *Workflow) Run(ctx context.Context, principalID string) (Result, error) {
	if principalID == "" {
		return Result{}, tenants.ErrNotAuthenticated
	}
	guard, _ := w.runs.LoadOrStore(principalID, &atomic.Bool{})
	flag := guard.(*atomic.Bool)
	if !flag.CompareAndSwap(false, true) {
		w.logger.Info("migration already done or in flight, skipping", zap.String("principal_id", principalID))
		return Result{Skipped: true}, nil
	}

	result, err := w.migrate(ctx, principalID)
	if err != nil {
		flag.Store(false)
		return Result{}, err
	}
	return result, nil
}

func (w *Workflow) migrate(ctx context.Context, principalID string) (Result, error) {
	rec, err := w.registry.GetByPrincipal(ctx, principalID)
	if err != nil || rec.Status != tenants.StatusReady {
		rec, err = w.provisioner.Provision(ctx, principalID)
		if err != nil {
			return Result{}, fmt.Errorf("provision before migration: %w", err)
		}
	}

	snap, err := w.local.ExportAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("export local data: %w", err)
	}
	if snap.Empty() {
		w.logger.Info("local store empty, nothing to migrate", zap.String("db_name", rec.DBName))
		return Result{Skipped: true, Completed: true}, nil
	}

	remote, err := w.resolve(ctx, principalID)
	if err != nil {
		return Result{}, fmt.Errorf("open remote store: %w", err)
	}

	report, err := remote.ImportAll(ctx, snap)
	if err != nil {
		return Result{}, fmt.Errorf("import into remote store: %w", err)
	}
	if !report.Success {
		// Local data stays in place; the next run retries the whole import
		// as an upsert.
		return Result{}, fmt.Errorf("import finished with %d failed records", len(report.Errors))
	}

	if _, err := w.local.ClearAll(ctx); err != nil {
		return Result{}, fmt.Errorf("clear local store after migration: %w", err)
	}

	w.logger.Info("migration completed",
		zap.String("db_name", rec.DBName),
		zap.Int("jobs", report.JobsImported),
		zap.Int("highlights", report.HighlightsImported),
	)
	return Result{
		JobsMigrated:       report.JobsImported,
		HighlightsMigrated: report.HighlightsImported,
		ProfileMigrated:    report.ProfileImported,
		Completed:          true,
	}, nil
}
