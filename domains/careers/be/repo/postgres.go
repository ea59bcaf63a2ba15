package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careerlog/careerlog-saas/domains/careers/be/service"
)

// PostgresStore implements the entity store contract against a dedicated
// per-principal tenant database reached through a credentialed connection.
// The surface is identical to SQLiteStore; only the medium differs.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an already-opened tenant database pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("postgres store requires pool")
	}
	return &PostgresStore{pool: pool}
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) CreateJob(ctx context.Context, input service.JobInput) (service.Job, error) {
	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()

	const query = `
		INSERT INTO jobs (id, company, role, start_date, end_date, logo_url, website, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id, company, role, start_date, end_date, logo_url, website, created_at, updated_at
	`
	row := s.pool.QueryRow(ctx, query,
		id, input.Company, input.Role, input.StartDate, input.EndDate, input.LogoURL, input.Website, now,
	)
	job, err := scanPGJob(row)
	if err != nil {
		return service.Job{}, fmt.Errorf("insert job %s: %w", id, err)
	}
	return job, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, id string, input service.JobInput) (service.Job, error) {
	const query = `
		UPDATE jobs
		SET company = $2, role = $3, start_date = $4, end_date = $5, logo_url = $6, website = $7, updated_at = $8
		WHERE id = $1
		RETURNING id, company, role, start_date, end_date, logo_url, website, created_at, updated_at
	`
	row := s.pool.QueryRow(ctx, query,
		id, input.Company, input.Role, input.StartDate, input.EndDate, input.LogoURL, input.Website, time.Now().UTC(),
	)
	job, err := scanPGJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return service.Job{}, service.ErrJobNotFound
	}
	if err != nil {
		return service.Job{}, fmt.Errorf("update job %s: %w", id, err)
	}
	return job, nil
}

// DeleteJob nulls job_id on the job's highlights and removes the job in one
// transaction.
func (s *PostgresStore) DeleteJob(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `UPDATE highlights SET job_id = NULL WHERE job_id = $1`, id); err != nil {
		return fmt.Errorf("detach highlights of job %s: %w", id, err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrJobNotFound
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) CreateHighlight(ctx context.Context, input service.HighlightInput) (service.Highlight, error) {
	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()

	domains, skills, keywords, metrics, err := encodeHighlightLists(input)
	if err != nil {
		return service.Highlight{}, err
	}

	const query = `
		INSERT INTO highlights (id, job_id, type, title, content, start_date, end_date,
			domains, skills, keywords, metrics, is_hidden, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING id, job_id, type, title, content, start_date, end_date,
			domains, skills, keywords, metrics, is_hidden, created_at, updated_at
	`
	row := s.pool.QueryRow(ctx, query,
		id, input.JobID, string(input.Type), input.Title, input.Content, input.StartDate, input.EndDate,
		[]byte(domains), []byte(skills), []byte(keywords), []byte(metrics), input.IsHidden, now,
	)
	h, err := scanPGHighlight(row)
	if err != nil {
		return service.Highlight{}, fmt.Errorf("insert highlight %s: %w", id, err)
	}
	return h, nil
}

func (s *PostgresStore) UpdateHighlight(ctx context.Context, id string, input service.HighlightInput) (service.Highlight, error) {
	domains, skills, keywords, metrics, err := encodeHighlightLists(input)
	if err != nil {
		return service.Highlight{}, err
	}

	const query = `
		UPDATE highlights
		SET job_id = $2, type = $3, title = $4, content = $5, start_date = $6, end_date = $7,
			domains = $8, skills = $9, keywords = $10, metrics = $11, is_hidden = $12, updated_at = $13
		WHERE id = $1
		RETURNING id, job_id, type, title, content, start_date, end_date,
			domains, skills, keywords, metrics, is_hidden, created_at, updated_at
	`
	row := s.pool.QueryRow(ctx, query,
		id, input.JobID, string(input.Type), input.Title, input.Content, input.StartDate, input.EndDate,
		[]byte(domains), []byte(skills), []byte(keywords), []byte(metrics), input.IsHidden, time.Now().UTC(),
	)
	h, err := scanPGHighlight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return service.Highlight{}, service.ErrHighlightNotFound
	}
	if err != nil {
		return service.Highlight{}, fmt.Errorf("update highlight %s: %w", id, err)
	}
	return h, nil
}

func (s *PostgresStore) DeleteHighlight(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM highlights WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete highlight %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrHighlightNotFound
	}
	return nil
}

func (s *PostgresStore) ToggleVisibility(ctx context.Context, id string) (service.Highlight, error) {
	const query = `
		UPDATE highlights
		SET is_hidden = NOT is_hidden, updated_at = $2
		WHERE id = $1
		RETURNING id, job_id, type, title, content, start_date, end_date,
			domains, skills, keywords, metrics, is_hidden, created_at, updated_at
	`
	row := s.pool.QueryRow(ctx, query, id, time.Now().UTC())
	h, err := scanPGHighlight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return service.Highlight{}, service.ErrHighlightNotFound
	}
	if err != nil {
		return service.Highlight{}, fmt.Errorf("toggle highlight %s: %w", id, err)
	}
	return h, nil
}

func (s *PostgresStore) ListJobsWithHighlightCounts(ctx context.Context) ([]service.JobWithCount, error) {
	const query = `
		SELECT j.id, j.company, j.role, j.start_date, j.end_date, j.logo_url, j.website,
			j.created_at, j.updated_at, COUNT(h.id)
		FROM jobs j
		LEFT JOIN highlights h ON h.job_id = j.id
		GROUP BY j.id
		ORDER BY j.start_date DESC, j.id
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs with counts: %w", err)
	}
	defer rows.Close()

	out := make([]service.JobWithCount, 0)
	for rows.Next() {
		var item service.JobWithCount
		if err := rows.Scan(
			&item.Job.ID, &item.Job.Company, &item.Job.Role, &item.Job.StartDate, &item.Job.EndDate,
			&item.Job.LogoURL, &item.Job.Website, &item.Job.CreatedAt, &item.Job.UpdatedAt, &item.HighlightCount,
		); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListJobsWithVisibleHighlights(ctx context.Context) ([]service.JobWithHighlights, error) {
	jobs, err := s.listJobs(ctx)
	if err != nil {
		return nil, err
	}
	highlights, err := s.listHighlights(ctx)
	if err != nil {
		return nil, err
	}

	byJob := make(map[string][]service.Highlight)
	for _, h := range highlights {
		if h.IsHidden || h.JobID == nil {
			continue
		}
		byJob[*h.JobID] = append(byJob[*h.JobID], h)
	}

	out := make([]service.JobWithHighlights, 0, len(jobs))
	for _, j := range jobs {
		items := byJob[j.ID]
		if items == nil {
			items = []service.Highlight{}
		}
		out = append(out, service.JobWithHighlights{Job: j, Highlights: items})
	}
	return out, nil
}

func (s *PostgresStore) SearchHighlights(ctx context.Context, filters service.SearchFilters) ([]service.Highlight, error) {
	highlights, err := s.listHighlights(ctx)
	if err != nil {
		return nil, err
	}
	return service.FilterHighlights(highlights, filters), nil
}

func (s *PostgresStore) GetProfile(ctx context.Context) (*service.Profile, error) {
	const query = `SELECT full_name, headline, email, location, links, updated_at FROM profile WHERE id = 'profile'`

	var p service.Profile
	var links []byte
	err := s.pool.QueryRow(ctx, query).Scan(&p.FullName, &p.Headline, &p.Email, &p.Location, &links, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if err := json.Unmarshal(links, &p.Links); err != nil {
		return nil, fmt.Errorf("unmarshal profile links: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p service.Profile) (service.Profile, error) {
	links, err := json.Marshal(emptyIfNil(p.Links))
	if err != nil {
		return service.Profile{}, fmt.Errorf("marshal profile links: %w", err)
	}

	const query = `
		INSERT INTO profile (id, full_name, headline, email, location, links, updated_at)
		VALUES ('profile', $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			headline = EXCLUDED.headline,
			email = EXCLUDED.email,
			location = EXCLUDED.location,
			links = EXCLUDED.links,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.pool.Exec(ctx, query,
		p.FullName, p.Headline, p.Email, p.Location, links, time.Now().UTC(),
	); err != nil {
		return service.Profile{}, fmt.Errorf("save profile: %w", err)
	}

	saved, err := s.GetProfile(ctx)
	if err != nil {
		return service.Profile{}, err
	}
	return *saved, nil
}

func (s *PostgresStore) ExportAll(ctx context.Context) (service.Snapshot, error) {
	jobs, err := s.listJobs(ctx)
	if err != nil {
		return service.Snapshot{}, err
	}
	highlights, err := s.listHighlights(ctx)
	if err != nil {
		return service.Snapshot{}, err
	}
	profile, err := s.GetProfile(ctx)
	if err != nil {
		return service.Snapshot{}, err
	}
	return service.Snapshot{Jobs: jobs, Highlights: highlights, Profile: profile}, nil
}

// ImportAll mirrors the local store's upsert-by-id semantics; jobs land
// first so highlight job references resolve.
func (s *PostgresStore) ImportAll(ctx context.Context, snap service.Snapshot) (service.ImportReport, error) {
	report := service.ImportReport{Errors: []service.ImportError{}}
	now := time.Now().UTC()

	const jobQuery = `
		INSERT INTO jobs (id, company, role, start_date, end_date, logo_url, website, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			company = EXCLUDED.company,
			role = EXCLUDED.role,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			logo_url = EXCLUDED.logo_url,
			website = EXCLUDED.website,
			updated_at = EXCLUDED.updated_at
	`
	for _, j := range snap.Jobs {
		if j.ID == "" {
			report.Errors = append(report.Errors, service.ImportError{Kind: "job", Reason: "missing id"})
			continue
		}
		createdAt := j.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := s.pool.Exec(ctx, jobQuery,
			j.ID, j.Company, j.Role, j.StartDate, j.EndDate, j.LogoURL, j.Website, createdAt, now,
		); err != nil {
			report.Errors = append(report.Errors, service.ImportError{Kind: "job", ID: j.ID, Reason: err.Error()})
			continue
		}
		report.JobsImported++
	}

	const highlightQuery = `
		INSERT INTO highlights (id, job_id, type, title, content, start_date, end_date,
			domains, skills, keywords, metrics, is_hidden, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			job_id = EXCLUDED.job_id,
			type = EXCLUDED.type,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			domains = EXCLUDED.domains,
			skills = EXCLUDED.skills,
			keywords = EXCLUDED.keywords,
			metrics = EXCLUDED.metrics,
			is_hidden = EXCLUDED.is_hidden,
			updated_at = EXCLUDED.updated_at
	`
	for _, h := range snap.Highlights {
		if h.ID == "" {
			report.Errors = append(report.Errors, service.ImportError{Kind: "highlight", Reason: "missing id"})
			continue
		}
		domains, skills, keywords, metrics, err := encodeHighlightLists(service.HighlightInput{
			Domains: h.Domains, Skills: h.Skills, Keywords: h.Keywords, Metrics: h.Metrics,
		})
		if err != nil {
			report.Errors = append(report.Errors, service.ImportError{Kind: "highlight", ID: h.ID, Reason: err.Error()})
			continue
		}
		createdAt := h.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := s.pool.Exec(ctx, highlightQuery,
			h.ID, h.JobID, string(h.Type), h.Title, h.Content, h.StartDate, h.EndDate,
			[]byte(domains), []byte(skills), []byte(keywords), []byte(metrics), h.IsHidden, createdAt, now,
		); err != nil {
			report.Errors = append(report.Errors, service.ImportError{Kind: "highlight", ID: h.ID, Reason: err.Error()})
			continue
		}
		report.HighlightsImported++
	}

	if snap.Profile != nil {
		if _, err := s.SaveProfile(ctx, *snap.Profile); err != nil {
			report.Errors = append(report.Errors, service.ImportError{Kind: "profile", ID: "profile", Reason: err.Error()})
		} else {
			report.ProfileImported = true
		}
	}

	report.Success = len(report.Errors) == 0
	return report, nil
}

func (s *PostgresStore) ClearAll(ctx context.Context) (service.ClearReport, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return service.ClearReport{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var report service.ClearReport

	tag, err := tx.Exec(ctx, `DELETE FROM highlights`)
	if err != nil {
		return service.ClearReport{}, fmt.Errorf("clear highlights: %w", err)
	}
	report.HighlightsDeleted = int(tag.RowsAffected())

	tag, err = tx.Exec(ctx, `DELETE FROM jobs`)
	if err != nil {
		return service.ClearReport{}, fmt.Errorf("clear jobs: %w", err)
	}
	report.JobsDeleted = int(tag.RowsAffected())

	tag, err = tx.Exec(ctx, `DELETE FROM profile`)
	if err != nil {
		return service.ClearReport{}, fmt.Errorf("clear profile: %w", err)
	}
	report.ProfileDeleted = tag.RowsAffected() > 0

	if err := tx.Commit(ctx); err != nil {
		return service.ClearReport{}, fmt.Errorf("commit clear: %w", err)
	}
	return report, nil
}

func (s *PostgresStore) listJobs(ctx context.Context) ([]service.Job, error) {
	const query = `
		SELECT id, company, role, start_date, end_date, logo_url, website, created_at, updated_at
		FROM jobs ORDER BY start_date DESC, id
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := make([]service.Job, 0)
	for rows.Next() {
		j, err := scanPGJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *PostgresStore) listHighlights(ctx context.Context) ([]service.Highlight, error) {
	const query = `
		SELECT id, job_id, type, title, content, start_date, end_date,
			domains, skills, keywords, metrics, is_hidden, created_at, updated_at
		FROM highlights ORDER BY start_date DESC, id
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	defer rows.Close()

	out := make([]service.Highlight, 0)
	for rows.Next() {
		h, err := scanPGHighlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan highlight row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanPGJob(row pgx.Row) (service.Job, error) {
	var j service.Job
	err := row.Scan(&j.ID, &j.Company, &j.Role, &j.StartDate, &j.EndDate, &j.LogoURL, &j.Website, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return service.Job{}, err
	}
	return j, nil
}

func scanPGHighlight(row pgx.Row) (service.Highlight, error) {
	var h service.Highlight
	var typ string
	var domains, skills, keywords, metrics []byte

	if err := row.Scan(
		&h.ID, &h.JobID, &typ, &h.Title, &h.Content, &h.StartDate, &h.EndDate,
		&domains, &skills, &keywords, &metrics, &h.IsHidden, &h.CreatedAt, &h.UpdatedAt,
	); err != nil {
		return service.Highlight{}, err
	}

	h.Type = service.HighlightType(typ)
	if err := json.Unmarshal(domains, &h.Domains); err != nil {
		return service.Highlight{}, fmt.Errorf("unmarshal domains: %w", err)
	}
	if err := json.Unmarshal(skills, &h.Skills); err != nil {
		return service.Highlight{}, fmt.Errorf("unmarshal skills: %w", err)
	}
	if err := json.Unmarshal(keywords, &h.Keywords); err != nil {
		return service.Highlight{}, fmt.Errorf("unmarshal keywords: %w", err)
	}
	if err := json.Unmarshal(metrics, &h.Metrics); err != nil {
		return service.Highlight{}, fmt.Errorf("unmarshal metrics: %w", err)
	}
	return h, nil
}

var _ service.Store = (*PostgresStore)(nil)
