package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careerlog/careerlog-saas/domains/careers/be/service"
)

// fakeStore records calls and serves canned data. Only what the handler
// tests touch is implemented with real behavior.
type fakeStore struct {
	jobs       []service.Job
	highlights []service.Highlight

	lastJobInput       service.JobInput
	lastHighlightInput service.HighlightInput
	lastFilters        service.SearchFilters
	lastSnapshot       service.Snapshot

	err error
}

func (f *fakeStore) CreateJob(_ context.Context, in service.JobInput) (service.Job, error) {
	f.lastJobInput = in
	if f.err != nil {
		return service.Job{}, f.err
	}
	return service.Job{ID: "job-1", Company: in.Company, Role: in.Role, StartDate: in.StartDate, EndDate: in.EndDate}, nil
}

func (f *fakeStore) UpdateJob(_ context.Context, id string, in service.JobInput) (service.Job, error) {
	f.lastJobInput = in
	if f.err != nil {
		return service.Job{}, f.err
	}
	return service.Job{ID: id, Company: in.Company, Role: in.Role}, nil
}

func (f *fakeStore) DeleteJob(context.Context, string) error { return f.err }

func (f *fakeStore) CreateHighlight(_ context.Context, in service.HighlightInput) (service.Highlight, error) {
	f.lastHighlightInput = in
	if f.err != nil {
		return service.Highlight{}, f.err
	}
	return service.Highlight{ID: "h-1", Type: in.Type, Title: in.Title, Content: in.Content}, nil
}

func (f *fakeStore) UpdateHighlight(_ context.Context, id string, in service.HighlightInput) (service.Highlight, error) {
	f.lastHighlightInput = in
	if f.err != nil {
		return service.Highlight{}, f.err
	}
	return service.Highlight{ID: id, Type: in.Type}, nil
}

func (f *fakeStore) DeleteHighlight(context.Context, string) error { return f.err }

func (f *fakeStore) ToggleVisibility(_ context.Context, id string) (service.Highlight, error) {
	if f.err != nil {
		return service.Highlight{}, f.err
	}
	return service.Highlight{ID: id, IsHidden: true}, nil
}

func (f *fakeStore) ListJobsWithHighlightCounts(context.Context) ([]service.JobWithCount, error) {
	out := make([]service.JobWithCount, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, service.JobWithCount{Job: j})
	}
	return out, f.err
}

func (f *fakeStore) ListJobsWithVisibleHighlights(context.Context) ([]service.JobWithHighlights, error) {
	return []service.JobWithHighlights{}, f.err
}

func (f *fakeStore) SearchHighlights(_ context.Context, filters service.SearchFilters) ([]service.Highlight, error) {
	f.lastFilters = filters
	return f.highlights, f.err
}

func (f *fakeStore) GetProfile(context.Context) (*service.Profile, error) { return nil, f.err }

func (f *fakeStore) SaveProfile(_ context.Context, p service.Profile) (service.Profile, error) {
	return p, f.err
}

func (f *fakeStore) ExportAll(context.Context) (service.Snapshot, error) {
	return service.Snapshot{Jobs: f.jobs, Highlights: f.highlights}, f.err
}

func (f *fakeStore) ImportAll(_ context.Context, snap service.Snapshot) (service.ImportReport, error) {
	f.lastSnapshot = snap
	return service.ImportReport{JobsImported: len(snap.Jobs), Success: true}, f.err
}

func (f *fakeStore) ClearAll(context.Context) (service.ClearReport, error) {
	return service.ClearReport{}, f.err
}

var _ service.Store = (*fakeStore)(nil)

func newTestHandler(store *fakeStore) *Handler {
	resolver := func(context.Context, *http.Request) (service.Store, error) { return store, nil }
	return New(resolver, service.NewSnapshotValidator(), zap.NewNop())
}

func doRequest(t *testing.T, h *Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestCreateJobNormalizesInput(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandler(store)

	rec := doRequest(t, h, http.MethodPost, "/jobs",
		`{"company":" Acme ","role":"Engineer","startDate":"2020-01","endDate":"  "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "Acme", store.lastJobInput.Company)
	require.Nil(t, store.lastJobInput.EndDate, "blank optional coalesced at the boundary")
}

func TestCreateJobValidation(t *testing.T) {
	h := newTestHandler(&fakeStore{})

	rec := doRequest(t, h, http.MethodPost, "/jobs", `{"company":"  ","role":"Engineer"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = doRequest(t, h, http.MethodPost, "/jobs", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateHighlightRejectsUnknownType(t *testing.T) {
	h := newTestHandler(&fakeStore{})

	rec := doRequest(t, h, http.MethodPost, "/highlights",
		`{"type":"braggadocio","title":"t","content":"c","startDate":"2020-01"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "braggadocio")
}

func TestNotFoundMapsTo404(t *testing.T) {
	h := newTestHandler(&fakeStore{err: service.ErrJobNotFound})

	rec := doRequest(t, h, http.MethodDelete, "/jobs/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchParsesQueryParameters(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandler(store)

	rec := doRequest(t, h, http.MethodGet,
		"/highlights:search?q=deploy&types=achievement,project&skills=go,%20ci&withMetrics=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "deploy", store.lastFilters.Query)
	require.Equal(t, []service.HighlightType{service.TypeAchievement, service.TypeProject},
		[]service.HighlightType(store.lastFilters.Types))
	require.Equal(t, []string{"go", "ci"}, store.lastFilters.Skills)
	require.True(t, store.lastFilters.OnlyWithMetrics)
}

func TestImportBackupValidatesSchemaFirst(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandler(store)

	rec := doRequest(t, h, http.MethodPost, "/backup", `{"jobs":"not-a-list"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, store.lastSnapshot.Jobs, "invalid payload never reaches the store")

	valid := `{"jobs":[{"id":"j1","company":"Acme","role":"Eng","startDate":"2020-01"}],"highlights":[]}`
	rec = doRequest(t, h, http.MethodPost, "/backup", valid)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.lastSnapshot.Jobs, 1)

	var report service.ImportReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.True(t, report.Success)
}

func TestExportBackupSetsAttachmentHeader(t *testing.T) {
	h := newTestHandler(&fakeStore{jobs: []service.Job{{ID: "j1"}}})

	rec := doRequest(t, h, http.MethodGet, "/backup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	require.True(t, strings.Contains(rec.Body.String(), `"j1"`))
}
