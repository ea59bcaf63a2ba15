// Package handler exposes the career data API over HTTP. Every request is
// routed to the caller's store: the remote tenant database when one is ready,
// falling back to the local embedded store otherwise.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/careerlog/careerlog-saas/domains/careers/be/service"
	"github.com/careerlog/careerlog-saas/platform/go/logging"
)

const (
	problemTypeValidation = "https://careerlog.dev/problems/validation-error"
	problemTypeNotFound   = "https://careerlog.dev/problems/not-found"
	problemTypeInternal   = "https://careerlog.dev/problems/internal-error"
)

// StoreResolver picks the entity store serving this request's principal.
type StoreResolver func(ctx context.Context, r *http.Request) (service.Store, error)

// Handler wires the career entity store to the HTTP surface.
type Handler struct {
	resolve   StoreResolver
	validator *service.SnapshotValidator
	logger    *zap.Logger
}

func New(resolve StoreResolver, validator *service.SnapshotValidator, logger *zap.Logger) *Handler {
	if resolve == nil {
		panic("careers handler requires store resolver")
	}
	if validator == nil {
		panic("careers handler requires snapshot validator")
	}
	if logger == nil {
		panic("careers handler requires logger")
	}
	return &Handler{resolve: resolve, validator: validator, logger: logger}
}

// Routes mounts the careers API on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/jobs", h.listJobs)
	r.Post("/jobs", h.createJob)
	r.Patch("/jobs/{jobID}", h.updateJob)
	r.Delete("/jobs/{jobID}", h.deleteJob)

	r.Post("/highlights", h.createHighlight)
	r.Patch("/highlights/{highlightID}", h.updateHighlight)
	r.Delete("/highlights/{highlightID}", h.deleteHighlight)
	r.Post("/highlights/{highlightID}:toggle-visibility", h.toggleVisibility)
	r.Get("/highlights:search", h.searchHighlights)

	r.Get("/timeline", h.timeline)

	r.Get("/profile", h.getProfile)
	r.Put("/profile", h.saveProfile)

	r.Get("/backup", h.exportBackup)
	r.Post("/backup", h.importBackup)
	r.Delete("/data", h.clearAll)

	return r
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	jobs, err := store.ListJobsWithHighlightCounts(r.Context())
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var input service.JobInput
	if !decodeBody(w, r, &input) {
		return
	}
	input = service.NormalizeJobInput(input)
	if input.Company == "" || input.Role == "" {
		writeProblem(w, http.StatusBadRequest, problemTypeValidation, "Invalid job", "company and role are required")
		return
	}
	job, err := store.CreateJob(r.Context(), input)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *Handler) updateJob(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var input service.JobInput
	if !decodeBody(w, r, &input) {
		return
	}
	input = service.NormalizeJobInput(input)
	job, err := store.UpdateJob(r.Context(), chi.URLParam(r, "jobID"), input)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) deleteJob(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.DeleteJob(r.Context(), chi.URLParam(r, "jobID")); err != nil {
		h.problemForError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createHighlight(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var input service.HighlightInput
	if !decodeBody(w, r, &input) {
		return
	}
	input = service.NormalizeHighlightInput(input)
	if input.Content == "" {
		writeProblem(w, http.StatusBadRequest, problemTypeValidation, "Invalid highlight", "content is required")
		return
	}
	if !service.KnownHighlightType(input.Type) {
		writeProblem(w, http.StatusBadRequest, problemTypeValidation, "Invalid highlight", "unknown highlight type "+string(input.Type))
		return
	}
	hl, err := store.CreateHighlight(r.Context(), input)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hl)
}

func (h *Handler) updateHighlight(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var input service.HighlightInput
	if !decodeBody(w, r, &input) {
		return
	}
	input = service.NormalizeHighlightInput(input)
	if input.Content == "" {
		writeProblem(w, http.StatusBadRequest, problemTypeValidation, "Invalid highlight", "content is required")
		return
	}
	if !service.KnownHighlightType(input.Type) {
		writeProblem(w, http.StatusBadRequest, problemTypeValidation, "Invalid highlight", "unknown highlight type "+string(input.Type))
		return
	}
	hl, err := store.UpdateHighlight(r.Context(), chi.URLParam(r, "highlightID"), input)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hl)
}

func (h *Handler) deleteHighlight(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.DeleteHighlight(r.Context(), chi.URLParam(r, "highlightID")); err != nil {
		h.problemForError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggleVisibility(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	hl, err := store.ToggleVisibility(r.Context(), chi.URLParam(r, "highlightID"))
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hl)
}

func (h *Handler) searchHighlights(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	filters := filtersFromQuery(r)
	highlights, err := store.SearchHighlights(r.Context(), filters)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"highlights": highlights})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	jobs, err := store.ListJobsWithVisibleHighlights(r.Context())
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	profile, err := store.GetProfile(r.Context())
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) saveProfile(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	var profile service.Profile
	if !decodeBody(w, r, &profile) {
		return
	}
	profile = service.NormalizeProfile(profile)
	saved, err := store.SaveProfile(r.Context(), profile)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) exportBackup(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	snap, err := store.ExportAll(r.Context())
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="careerlog-backup.json"`)
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) importBackup(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	raw, err := readBody(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, problemTypeValidation, "Invalid backup", err.Error())
		return
	}
	if err := h.validator.Validate(raw); err != nil {
		writeProblem(w, http.StatusBadRequest, problemTypeValidation, "Invalid backup", err.Error())
		return
	}

	var snap service.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		writeProblem(w, http.StatusBadRequest, problemTypeValidation, "Invalid backup", err.Error())
		return
	}

	report, err := store.ImportAll(r.Context(), snap)
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	status := http.StatusOK
	if !report.Success {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, report)
}

func (h *Handler) clearAll(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	report, err := store.ClearAll(r.Context())
	if err != nil {
		h.problemForError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (service.Store, bool) {
	store, err := h.resolve(r.Context(), r)
	if err != nil {
		h.problemForError(w, r, err)
		return nil, false
	}
	return store, true
}

func filtersFromQuery(r *http.Request) service.SearchFilters {
	q := r.URL.Query()
	filters := service.SearchFilters{
		Query:           strings.TrimSpace(q.Get("q")),
		OnlyWithMetrics: q.Get("withMetrics") == "true",
	}
	for _, raw := range splitParam(q.Get("types")) {
		filters.Types = append(filters.Types, service.HighlightType(raw))
	}
	filters.Domains = splitParam(q.Get("domains"))
	filters.Skills = splitParam(q.Get("skills"))
	return filters
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (h *Handler) problemForError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrJobNotFound), errors.Is(err, service.ErrHighlightNotFound):
		writeProblem(w, http.StatusNotFound, problemTypeNotFound, "Not found", err.Error())
	default:
		logger := logging.FromRequest(r, h.logger)
		logger.Error("careers request failed", zap.Error(err))
		writeProblem(w, http.StatusInternalServerError, problemTypeInternal, "Internal error", "unexpected error")
	}
}
