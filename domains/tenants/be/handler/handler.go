// Package handler exposes the account database surface: where the caller's
// data lives, a provisioning retry, and the one-time migration trigger.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	migration "github.com/careerlog/careerlog-saas/domains/migration/be/service"
	"github.com/careerlog/careerlog-saas/domains/tenants/be/service"
	platformauth "github.com/careerlog/careerlog-saas/platform/go/auth"
	"github.com/careerlog/careerlog-saas/platform/go/logging"
	"github.com/careerlog/careerlog-saas/platform/go/problem"
)

const (
	problemTypeUnauthorized = "https://careerlog.dev/problems/unauthorized"
	problemTypeNotFound     = "https://careerlog.dev/problems/not-found"
	problemTypeProvisioning = "https://careerlog.dev/problems/provisioning-failure"
	problemTypeMigration    = "https://careerlog.dev/problems/migration-failure"
	problemTypeInternal     = "https://careerlog.dev/problems/internal-error"
)

// Migrator triggers the one-time local-to-remote migration.
type Migrator interface {
	Run(ctx context.Context, principalID string) (migration.Result, error)
}

// Handler serves the tenant database endpoints.
type Handler struct {
	registry    service.Registry
	provisioner *service.Provisioner
	migrator    Migrator
	invalidate  func(principalID string)
	logger      *zap.Logger
}

func New(registry service.Registry, provisioner *service.Provisioner, migrator Migrator, invalidate func(string), logger *zap.Logger) *Handler {
	if registry == nil {
		panic("tenants handler requires registry")
	}
	if provisioner == nil {
		panic("tenants handler requires provisioner")
	}
	if migrator == nil {
		panic("tenants handler requires migrator")
	}
	if logger == nil {
		panic("tenants handler requires logger")
	}
	if invalidate == nil {
		invalidate = func(string) {}
	}
	return &Handler{registry: registry, provisioner: provisioner, migrator: migrator, invalidate: invalidate, logger: logger}
}

// Routes mounts the account database API on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/database", h.getDatabase)
	r.Post("/database:provision", h.provision)
	r.Post("/database:migrate", h.migrate)
	r.With(platformauth.RequireRole("admin")).Get("/databases", h.listDatabases)
	return r
}

// databaseInfo is what clients need to reach their database directly. Only
// the read-only credential is ever exposed.
type databaseInfo struct {
	DBName        string  `json:"dbName"`
	Hostname      string  `json:"hostname"`
	ROToken       *string `json:"roToken,omitempty"`
	Status        string  `json:"status"`
	UpdatedAt     string  `json:"updatedAt"`
	ProvisionedAt string  `json:"provisionedAt"`
}

func (h *Handler) getDatabase(w http.ResponseWriter, r *http.Request) {
	principalID, ok := h.principal(w, r)
	if !ok {
		return
	}

	rec, err := h.registry.GetByPrincipal(r.Context(), principalID)
	if errors.Is(err, service.ErrNotFound) {
		problem.Write(w, http.StatusNotFound, problemTypeNotFound, "No database", "no database provisioned for this account")
		return
	}
	if err != nil {
		h.internal(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toDatabaseInfo(rec))
}

func (h *Handler) provision(w http.ResponseWriter, r *http.Request) {
	principalID, ok := h.principal(w, r)
	if !ok {
		return
	}

	rec, err := h.provisioner.Provision(r.Context(), principalID)
	if err != nil {
		var provErr *service.ProvisionError
		if errors.As(err, &provErr) {
			logging.FromRequest(r, h.logger).Error("provisioning failed",
				zap.String("step", provErr.Step), zap.Error(provErr.Err))
			problem.Write(w, http.StatusBadGateway, problemTypeProvisioning, "Provisioning failed", provErr.Error())
			return
		}
		h.internal(w, r, err)
		return
	}

	// Credentials may have rotated on a retry; drop any cached handle.
	h.invalidate(principalID)
	writeJSON(w, http.StatusOK, toDatabaseInfo(rec))
}

func (h *Handler) migrate(w http.ResponseWriter, r *http.Request) {
	principalID, ok := h.principal(w, r)
	if !ok {
		return
	}

	result, err := h.migrator.Run(r.Context(), principalID)
	if err != nil {
		logging.FromRequest(r, h.logger).Error("migration failed", zap.Error(err))
		problem.Write(w, http.StatusBadGateway, problemTypeMigration, "Migration failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// listDatabases is the admin view of the whole registry, for operational
// visibility. Write credentials are withheld the same as in the per-user view.
func (h *Handler) listDatabases(w http.ResponseWriter, r *http.Request) {
	recs, err := h.registry.List(r.Context())
	if err != nil {
		h.internal(w, r, err)
		return
	}

	infos := make([]databaseInfo, 0, len(recs))
	for _, rec := range recs {
		infos = append(infos, toDatabaseInfo(rec))
	}
	writeJSON(w, http.StatusOK, infos)
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (string, bool) {
	creds, ok := platformauth.UserFromContext(r.Context())
	if !ok || creds == nil || creds.Id == "" {
		problem.Write(w, http.StatusUnauthorized, problemTypeUnauthorized, "Unauthorized", "authentication required")
		return "", false
	}
	return creds.Id, true
}

func (h *Handler) internal(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromRequest(r, h.logger).Error("tenants request failed", zap.Error(err))
	problem.Write(w, http.StatusInternalServerError, problemTypeInternal, "Internal error", "unexpected error")
}

func toDatabaseInfo(rec service.TenantDatabase) databaseInfo {
	return databaseInfo{
		DBName:        rec.DBName,
		Hostname:      rec.DBURL,
		ROToken:       rec.ROCredential,
		Status:        string(rec.Status),
		UpdatedAt:     rec.UpdatedAt.UTC().Format(time.RFC3339),
		ProvisionedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
