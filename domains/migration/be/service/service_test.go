package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	careers "github.com/careerlog/careerlog-saas/domains/careers/be/service"
	tenantsrepo "github.com/careerlog/careerlog-saas/domains/tenants/be/repo"
	tenants "github.com/careerlog/careerlog-saas/domains/tenants/be/service"
)

// memStore keeps snapshot state in memory; only the operations the migration
// path touches are meaningful.
type memStore struct {
	jobs       map[string]careers.Job
	highlights map[string]careers.Highlight
	profile    *careers.Profile

	exportErr error
	importErr error
	failIDs   map[string]bool
	clears    int
}

func newMemStore() *memStore {
	return &memStore{
		jobs:       make(map[string]careers.Job),
		highlights: make(map[string]careers.Highlight),
		failIDs:    make(map[string]bool),
	}
}

func (m *memStore) CreateJob(_ context.Context, in careers.JobInput) (careers.Job, error) {
	job := careers.Job{ID: in.ID, Company: in.Company, Role: in.Role, StartDate: in.StartDate}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *memStore) UpdateJob(_ context.Context, id string, _ careers.JobInput) (careers.Job, error) {
	job, ok := m.jobs[id]
	if !ok {
		return careers.Job{}, careers.ErrJobNotFound
	}
	return job, nil
}

func (m *memStore) DeleteJob(_ context.Context, id string) error {
	delete(m.jobs, id)
	return nil
}

func (m *memStore) CreateHighlight(_ context.Context, in careers.HighlightInput) (careers.Highlight, error) {
	h := careers.Highlight{ID: in.ID, Type: in.Type, Title: in.Title, Content: in.Content}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	m.highlights[h.ID] = h
	return h, nil
}

func (m *memStore) UpdateHighlight(_ context.Context, id string, _ careers.HighlightInput) (careers.Highlight, error) {
	h, ok := m.highlights[id]
	if !ok {
		return careers.Highlight{}, careers.ErrHighlightNotFound
	}
	return h, nil
}

func (m *memStore) DeleteHighlight(_ context.Context, id string) error {
	delete(m.highlights, id)
	return nil
}

func (m *memStore) ToggleVisibility(_ context.Context, id string) (careers.Highlight, error) {
	h, ok := m.highlights[id]
	if !ok {
		return careers.Highlight{}, careers.ErrHighlightNotFound
	}
	h.IsHidden = !h.IsHidden
	m.highlights[id] = h
	return h, nil
}

func (m *memStore) ListJobsWithHighlightCounts(_ context.Context) ([]careers.JobWithCount, error) {
	return nil, nil
}

func (m *memStore) ListJobsWithVisibleHighlights(_ context.Context) ([]careers.JobWithHighlights, error) {
	return nil, nil
}

func (m *memStore) SearchHighlights(_ context.Context, f careers.SearchFilters) ([]careers.Highlight, error) {
	out := make([]careers.Highlight, 0, len(m.highlights))
	for _, h := range m.highlights {
		out = append(out, h)
	}
	return careers.FilterHighlights(out, f), nil
}

func (m *memStore) GetProfile(_ context.Context) (*careers.Profile, error) {
	return m.profile, nil
}

func (m *memStore) SaveProfile(_ context.Context, p careers.Profile) (careers.Profile, error) {
	m.profile = &p
	return p, nil
}

func (m *memStore) ExportAll(_ context.Context) (careers.Snapshot, error) {
	if m.exportErr != nil {
		return careers.Snapshot{}, m.exportErr
	}
	snap := careers.Snapshot{Profile: m.profile}
	for _, j := range m.jobs {
		snap.Jobs = append(snap.Jobs, j)
	}
	for _, h := range m.highlights {
		snap.Highlights = append(snap.Highlights, h)
	}
	return snap, nil
}

func (m *memStore) ImportAll(_ context.Context, snap careers.Snapshot) (careers.ImportReport, error) {
	if m.importErr != nil {
		return careers.ImportReport{}, m.importErr
	}
	report := careers.ImportReport{Errors: []careers.ImportError{}}
	for _, j := range snap.Jobs {
		if m.failIDs[j.ID] {
			report.Errors = append(report.Errors, careers.ImportError{Kind: "job", ID: j.ID, Reason: "forced failure"})
			continue
		}
		m.jobs[j.ID] = j
		report.JobsImported++
	}
	for _, h := range snap.Highlights {
		if m.failIDs[h.ID] {
			report.Errors = append(report.Errors, careers.ImportError{Kind: "highlight", ID: h.ID, Reason: "forced failure"})
			continue
		}
		m.highlights[h.ID] = h
		report.HighlightsImported++
	}
	if snap.Profile != nil {
		m.profile = snap.Profile
		report.ProfileImported = true
	}
	report.Success = len(report.Errors) == 0
	return report, nil
}

func (m *memStore) ClearAll(_ context.Context) (careers.ClearReport, error) {
	m.clears++
	report := careers.ClearReport{
		JobsDeleted:       len(m.jobs),
		HighlightsDeleted: len(m.highlights),
		ProfileDeleted:    m.profile != nil,
	}
	m.jobs = make(map[string]careers.Job)
	m.highlights = make(map[string]careers.Highlight)
	m.profile = nil
	return report, nil
}

var _ careers.Store = (*memStore)(nil)

type stubPlatform struct{}

func (stubPlatform) CreateDatabase(_ context.Context, name, _ string) (tenants.DatabaseInstance, error) {
	return tenants.DatabaseInstance{Name: name, Hostname: name + ".db.example.com"}, nil
}

func (stubPlatform) GetDatabase(_ context.Context, name string) (tenants.DatabaseInstance, error) {
	return tenants.DatabaseInstance{Name: name, Hostname: name + ".db.example.com"}, nil
}

func (stubPlatform) CreateAuthToken(_ context.Context, _ string, readOnly bool) (string, error) {
	if readOnly {
		return "ro", nil
	}
	return "rw", nil
}

type stubSchema struct{}

func (stubSchema) Apply(context.Context, string, string, string) error { return nil }

func seedLocal(t *testing.T, local *memStore) {
	t.Helper()
	ctx := context.Background()
	for _, role := range []string{"Engineer", "Staff Engineer"} {
		_, err := local.CreateJob(ctx, careers.JobInput{Company: "Acme", Role: role, StartDate: "2020-01"})
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		_, err := local.CreateHighlight(ctx, careers.HighlightInput{
			Type: careers.TypeAchievement, Title: "t", Content: "c", StartDate: "2020-02",
		})
		require.NoError(t, err)
	}
	_, err := local.SaveProfile(ctx, careers.Profile{FullName: "Jamie Doe"})
	require.NoError(t, err)
}

func newWorkflowFixture(t *testing.T) (*Workflow, *memStore, *memStore) {
	t.Helper()
	local := newMemStore()
	remote := newMemStore()
	registry := tenantsrepo.NewMemoryRegistry()
	provisioner := tenants.NewProvisioner(registry, stubPlatform{}, stubSchema{}, "default", nil)
	resolver := func(context.Context, string) (careers.Store, error) { return remote, nil }
	return NewWorkflow(local, registry, provisioner, resolver, nil), local, remote
}

func TestWorkflowMigratesAndClearsLocal(t *testing.T) {
	workflow, local, remote := newWorkflowFixture(t)
	seedLocal(t, local)

	result, err := workflow.Run(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, result.Completed)
	require.False(t, result.Skipped)
	require.Equal(t, 2, result.JobsMigrated)
	require.Equal(t, 5, result.HighlightsMigrated)
	require.True(t, result.ProfileMigrated)

	require.Len(t, remote.jobs, 2)
	require.Len(t, remote.highlights, 5)
	require.Equal(t, 1, local.clears)
	require.Empty(t, local.jobs)
}

func TestWorkflowRunsOnce(t *testing.T) {
	workflow, local, _ := newWorkflowFixture(t)
	seedLocal(t, local)

	_, err := workflow.Run(context.Background(), "user-1")
	require.NoError(t, err)

	result, err := workflow.Run(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Equal(t, 1, local.clears)
}

func TestWorkflowRetriesAfterFailedRun(t *testing.T) {
	workflow, local, remote := newWorkflowFixture(t)
	seedLocal(t, local)

	remote.importErr = errors.New("connection reset")
	_, err := workflow.Run(context.Background(), "user-1")
	require.Error(t, err)
	require.Zero(t, local.clears)

	remote.importErr = nil
	result, err := workflow.Run(context.Background(), "user-1")
	require.NoError(t, err)
	require.False(t, result.Skipped, "a failed run must not consume the once-guard")
	require.True(t, result.Completed)
	require.Equal(t, 2, result.JobsMigrated)
	require.Len(t, remote.jobs, 2)
	require.Equal(t, 1, local.clears)
}

func TestWorkflowGuardIsPerPrincipal(t *testing.T) {
	workflow, local, remote := newWorkflowFixture(t)
	seedLocal(t, local)

	first, err := workflow.Run(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, first.Completed)

	// The same local store refills for the second principal; only user-1's
	// guard may be consumed.
	seedLocal(t, local)
	second, err := workflow.Run(context.Background(), "user-2")
	require.NoError(t, err)
	require.False(t, second.Skipped, "one principal's migration must not block another's")
	require.True(t, second.Completed)
	require.Equal(t, 2, second.JobsMigrated)
	require.Len(t, remote.jobs, 4)
	require.Equal(t, 2, local.clears)
}

func TestWorkflowKeepsLocalOnPartialImport(t *testing.T) {
	local := newMemStore()
	remote := newMemStore()
	registry := tenantsrepo.NewMemoryRegistry()
	provisioner := tenants.NewProvisioner(registry, stubPlatform{}, stubSchema{}, "default", nil)
	resolver := func(context.Context, string) (careers.Store, error) { return remote, nil }
	workflow := NewWorkflow(local, registry, provisioner, resolver, nil)

	seedLocal(t, local)
	for id := range local.jobs {
		remote.failIDs[id] = true
		break
	}

	_, err := workflow.Run(context.Background(), "user-1")
	require.Error(t, err)
	require.Zero(t, local.clears, "local data must survive a partial import")
	require.Len(t, local.jobs, 2)
}

func TestWorkflowEmptyLocalSkips(t *testing.T) {
	workflow, local, remote := newWorkflowFixture(t)

	result, err := workflow.Run(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.True(t, result.Completed)
	require.Zero(t, local.clears)
	require.Empty(t, remote.jobs)
}

func TestWorkflowRequiresPrincipal(t *testing.T) {
	workflow, _, _ := newWorkflowFixture(t)

	_, err := workflow.Run(context.Background(), "")
	require.ErrorIs(t, err, tenants.ErrNotAuthenticated)
}

func TestWorkflowPropagatesExportFailure(t *testing.T) {
	workflow, local, _ := newWorkflowFixture(t)
	local.exportErr = errors.New("disk gone")

	_, err := workflow.Run(context.Background(), "user-1")
	require.Error(t, err)
	require.Zero(t, local.clears)
}
