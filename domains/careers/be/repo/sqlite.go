package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	sqlassets "github.com/careerlog/careerlog-saas/database"
	"github.com/careerlog/careerlog-saas/domains/careers/be/service"
)

// SQLiteStore implements the entity store contract over a device-local
// SQLite file. It is scoped to one anonymous session; no principal id is
// involved. The writer connection is capped at one to avoid "database is
// locked" errors; readers get a small pool.
type SQLiteStore struct {
	writer *sql.DB
	reader *sql.DB
	path   string
}

// NewSQLiteStore opens (or creates) the local store at path with WAL mode,
// busy timeout and foreign keys enabled, then applies embedded migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path,
	)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := writer.Ping(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("ping writer: %w", err)
	}

	if err := runLocalMigrations(writer); err != nil {
		writer.Close()
		return nil, err
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	if err := reader.Ping(); err != nil {
		reader.Close()
		writer.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	return &SQLiteStore{writer: writer, reader: reader, path: path}, nil
}

// Close closes both connections; returns the first error encountered.
func (s *SQLiteStore) Close() error {
	var firstErr error
	if err := s.reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}
	if err := s.writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}
	return firstErr
}

// runLocalMigrations applies the embedded migrations; safe on every startup.
func runLocalMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(sqlassets.LocalMigrationsFS, sqlassets.LocalMigrationsDir)
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (s *SQLiteStore) CreateJob(ctx context.Context, input service.JobInput) (service.Job, error) {
	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()

	const query = `
		INSERT INTO jobs (id, company, role, start_date, end_date, logo_url, website, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.writer.ExecContext(ctx, query,
		id, input.Company, input.Role, input.StartDate, input.EndDate, input.LogoURL, input.Website,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return service.Job{}, fmt.Errorf("insert job %s: %w", id, err)
	}

	return s.getJob(ctx, id)
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, id string, input service.JobInput) (service.Job, error) {
	now := time.Now().UTC()

	const query = `
		UPDATE jobs
		SET company = ?, role = ?, start_date = ?, end_date = ?, logo_url = ?, website = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.writer.ExecContext(ctx, query,
		input.Company, input.Role, input.StartDate, input.EndDate, input.LogoURL, input.Website,
		formatTime(now), id,
	)
	if err != nil {
		return service.Job{}, fmt.Errorf("update job %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return service.Job{}, service.ErrJobNotFound
	}

	return s.getJob(ctx, id)
}

// DeleteJob nulls job_id on the job's highlights and removes the job in one
// transaction. Orphaned highlights stay visible.
func (s *SQLiteStore) DeleteJob(ctx context.Context, id string) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE highlights SET job_id = NULL WHERE job_id = ?`, id); err != nil {
		return fmt.Errorf("detach highlights of job %s: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return service.ErrJobNotFound
	}

	return tx.Commit()
}

func (s *SQLiteStore) CreateHighlight(ctx context.Context, input service.HighlightInput) (service.Highlight, error) {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.writer.ExecContext(ctx, query,
		id, input.JobID, string(input.Type), input.Title, input.Content, input.StartDate, input.EndDate,
		domains, skills, keywords, metrics, boolToInt(input.IsHidden),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return service.Highlight{}, fmt.Errorf("insert highlight %s: %w", id, err)
	}

	return s.getHighlight(ctx, id)
}

func (s *SQLiteStore) UpdateHighlight(ctx context.Context, id string, input service.HighlightInput) (service.Highlight, error) {
	now := time.Now().UTC()

	domains, skills, keywords, metrics, err := encodeHighlightLists(input)
	if err != nil {
		return service.Highlight{}, err
	}

	const query = `
		UPDATE highlights
		SET job_id = ?, type = ?, title = ?, content = ?, start_date = ?, end_date = ?,
			domains = ?, skills = ?, keywords = ?, metrics = ?, is_hidden = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.writer.ExecContext(ctx, query,
		input.JobID, string(input.Type), input.Title, input.Content, input.StartDate, input.EndDate,
		domains, skills, keywords, metrics, boolToInt(input.IsHidden), formatTime(now), id,
	)
	if err != nil {
		return service.Highlight{}, fmt.Errorf("update highlight %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return service.Highlight{}, service.ErrHighlightNotFound
	}

	return s.getHighlight(ctx, id)
}

func (s *SQLiteStore) DeleteHighlight(ctx context.Context, id string) error {
	res, err := s.writer.ExecContext(ctx, `DELETE FROM highlights WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete highlight %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return service.ErrHighlightNotFound
	}
	return nil
}

func (s *SQLiteStore) ToggleVisibility(ctx context.Context, id string) (service.Highlight, error) {
	now := time.Now().UTC()

	res, err := s.writer.ExecContext(ctx,
		`UPDATE highlights SET is_hidden = 1 - is_hidden, updated_at = ? WHERE id = ?`,
		formatTime(now), id,
	)
	if err != nil {
		return service.Highlight{}, fmt.Errorf("toggle highlight %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return service.Highlight{}, service.ErrHighlightNotFound
	}

	return s.getHighlight(ctx, id)
}

func (s *SQLiteStore) ListJobsWithHighlightCounts(ctx context.Context) ([]service.JobWithCount, error) {
	const query = `
		SELECT j.id, j.company, j.role, j.start_date, j.end_date, j.logo_url, j.website,
			j.created_at, j.updated_at, COUNT(h.id)
		FROM jobs j
		LEFT JOIN highlights h ON h.job_id = j.id
		GROUP BY j.id
		ORDER BY j.start_date DESC, j.id
	`
	rows, err := s.reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs with counts: %w", err)
	}
	defer rows.Close()

	out := make([]service.JobWithCount, 0)
	for rows.Next() {
		var item service.JobWithCount
		var createdAt, updatedAt string
		if err := rows.Scan(
			&item.Job.ID, &item.Job.Company, &item.Job.Role, &item.Job.StartDate, &item.Job.EndDate,
			&item.Job.LogoURL, &item.Job.Website, &createdAt, &updatedAt, &item.HighlightCount,
		); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		if item.Job.CreatedAt, err = parseStoredTime(createdAt); err != nil {
			return nil, err
		}
		if item.Job.UpdatedAt, err = parseStoredTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListJobsWithVisibleHighlights(ctx context.Context) ([]service.JobWithHighlights, error) {
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

func (s *SQLiteStore) SearchHighlights(ctx context.Context, filters service.SearchFilters) ([]service.Highlight, error) {
	highlights, err := s.listHighlights(ctx)
	if err != nil {
		return nil, err
	}
	return service.FilterHighlights(highlights, filters), nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context) (*service.Profile, error) {
	const query = `SELECT full_name, headline, email, location, links, updated_at FROM profile WHERE id = 'profile'`

	var p service.Profile
	var links, updatedAt string
	err := s.reader.QueryRowContext(ctx, query).Scan(&p.FullName, &p.Headline, &p.Email, &p.Location, &links, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if err := json.Unmarshal([]byte(links), &p.Links); err != nil {
		return nil, fmt.Errorf("unmarshal profile links: %w", err)
	}
	if p.UpdatedAt, err = parseStoredTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p service.Profile) (service.Profile, error) {
	now := time.Now().UTC()
	links, err := json.Marshal(emptyIfNil(p.Links))
	if err != nil {
		return service.Profile{}, fmt.Errorf("marshal profile links: %w", err)
	}

	const query = `
		INSERT INTO profile (id, full_name, headline, email, location, links, updated_at)
		VALUES ('profile', ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			headline = excluded.headline,
			email = excluded.email,
			location = excluded.location,
			links = excluded.links,
			updated_at = excluded.updated_at
	`
	if _, err := s.writer.ExecContext(ctx, query,
		p.FullName, p.Headline, p.Email, p.Location, string(links), formatTime(now),
	); err != nil {
		return service.Profile{}, fmt.Errorf("save profile: %w", err)
	}

	saved, err := s.GetProfile(ctx)
	if err != nil {
		return service.Profile{}, err
	}
	return *saved, nil
}

func (s *SQLiteStore) ExportAll(ctx context.Context) (service.Snapshot, error) {
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

// ImportAll upserts by id: an existing id overwrites all mutable fields and
// advances updated_at; an unseen id inserts. Jobs land before highlights so
// job references resolve. Per-record failures are collected, not fatal.
func (s *SQLiteStore) ImportAll(ctx context.Context, snap service.Snapshot) (service.ImportReport, error) {
	report := service.ImportReport{Errors: []service.ImportError{}}
	now := time.Now().UTC()

	const jobQuery = `
		INSERT INTO jobs (id, company, role, start_date, end_date, logo_url, website, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company = excluded.company,
			role = excluded.role,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			logo_url = excluded.logo_url,
			website = excluded.website,
			updated_at = excluded.updated_at
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
		if _, err := s.writer.ExecContext(ctx, jobQuery,
			j.ID, j.Company, j.Role, j.StartDate, j.EndDate, j.LogoURL, j.Website,
			formatTime(createdAt), formatTime(now),
		); err != nil {
			report.Errors = append(report.Errors, service.ImportError{Kind: "job", ID: j.ID, Reason: err.Error()})
			continue
		}
		report.JobsImported++
	}

	const highlightQuery = `
		INSERT INTO highlights (id, job_id, type, title, content, start_date, end_date,
			domains, skills, keywords, metrics, is_hidden, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			job_id = excluded.job_id,
			type = excluded.type,
			title = excluded.title,
			content = excluded.content,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			domains = excluded.domains,
			skills = excluded.skills,
			keywords = excluded.keywords,
			metrics = excluded.metrics,
			is_hidden = excluded.is_hidden,
			updated_at = excluded.updated_at
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
		if _, err := s.writer.ExecContext(ctx, highlightQuery,
			h.ID, h.JobID, string(h.Type), h.Title, h.Content, h.StartDate, h.EndDate,
			domains, skills, keywords, metrics, boolToInt(h.IsHidden),
			formatTime(createdAt), formatTime(now),
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

// ClearAll irreversibly deletes every entity in this scope.
func (s *SQLiteStore) ClearAll(ctx context.Context) (service.ClearReport, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return service.ClearReport{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	var report service.ClearReport

	res, err := tx.ExecContext(ctx, `DELETE FROM highlights`)
	if err != nil {
		return service.ClearReport{}, fmt.Errorf("clear highlights: %w", err)
	}
	affected, _ := res.RowsAffected()
	report.HighlightsDeleted = int(affected)

	res, err = tx.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return service.ClearReport{}, fmt.Errorf("clear jobs: %w", err)
	}
	affected, _ = res.RowsAffected()
	report.JobsDeleted = int(affected)

	res, err = tx.ExecContext(ctx, `DELETE FROM profile`)
	if err != nil {
		return service.ClearReport{}, fmt.Errorf("clear profile: %w", err)
	}
	affected, _ = res.RowsAffected()
	report.ProfileDeleted = affected > 0

	if err := tx.Commit(); err != nil {
		return service.ClearReport{}, fmt.Errorf("commit clear: %w", err)
	}
	return report, nil
}

func (s *SQLiteStore) getJob(ctx context.Context, id string) (service.Job, error) {
	const query = `
		SELECT id, company, role, start_date, end_date, logo_url, website, created_at, updated_at
		FROM jobs WHERE id = ?
	`
	var j service.Job
	var createdAt, updatedAt string
	err := s.reader.QueryRowContext(ctx, query, id).Scan(
		&j.ID, &j.Company, &j.Role, &j.StartDate, &j.EndDate, &j.LogoURL, &j.Website, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Job{}, service.ErrJobNotFound
	}
	if err != nil {
		return service.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	if j.CreatedAt, err = parseStoredTime(createdAt); err != nil {
		return service.Job{}, err
	}
	if j.UpdatedAt, err = parseStoredTime(updatedAt); err != nil {
		return service.Job{}, err
	}
	return j, nil
}

func (s *SQLiteStore) listJobs(ctx context.Context) ([]service.Job, error) {
	const query = `
		SELECT id, company, role, start_date, end_date, logo_url, website, created_at, updated_at
		FROM jobs ORDER BY start_date DESC, id
	`
	rows, err := s.reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := make([]service.Job, 0)
	for rows.Next() {
		var j service.Job
		var createdAt, updatedAt string
		if err := rows.Scan(&j.ID, &j.Company, &j.Role, &j.StartDate, &j.EndDate, &j.LogoURL, &j.Website, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		if j.CreatedAt, err = parseStoredTime(createdAt); err != nil {
			return nil, err
		}
		if j.UpdatedAt, err = parseStoredTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) getHighlight(ctx context.Context, id string) (service.Highlight, error) {
	const query = `
		SELECT id, job_id, type, title, content, start_date, end_date,
			domains, skills, keywords, metrics, is_hidden, created_at, updated_at
		FROM highlights WHERE id = ?
	`
	h, err := scanHighlight(s.reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return service.Highlight{}, service.ErrHighlightNotFound
	}
	if err != nil {
		return service.Highlight{}, fmt.Errorf("get highlight %s: %w", id, err)
	}
	return h, nil
}

func (s *SQLiteStore) listHighlights(ctx context.Context) ([]service.Highlight, error) {
	const query = `
		SELECT id, job_id, type, title, content, start_date, end_date,
			domains, skills, keywords, metrics, is_hidden, created_at, updated_at
		FROM highlights ORDER BY start_date DESC, id
	`
	rows, err := s.reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	defer rows.Close()

	out := make([]service.Highlight, 0)
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan highlight row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHighlight(s rowScanner) (service.Highlight, error) {
	var h service.Highlight
	var typ string
	var domains, skills, keywords, metrics string
	var isHidden int
	var createdAt, updatedAt string

	if err := s.Scan(
		&h.ID, &h.JobID, &typ, &h.Title, &h.Content, &h.StartDate, &h.EndDate,
		&domains, &skills, &keywords, &metrics, &isHidden, &createdAt, &updatedAt,
	); err != nil {
		return service.Highlight{}, err
	}

	h.Type = service.HighlightType(typ)
	h.IsHidden = isHidden != 0

	if err := json.Unmarshal([]byte(domains), &h.Domains); err != nil {
		return service.Highlight{}, fmt.Errorf("unmarshal domains: %w", err)
	}
	if err := json.Unmarshal([]byte(skills), &h.Skills); err != nil {
		return service.Highlight{}, fmt.Errorf("unmarshal skills: %w", err)
	}
	if err := json.Unmarshal([]byte(keywords), &h.Keywords); err != nil {
		return service.Highlight{}, fmt.Errorf("unmarshal keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(metrics), &h.Metrics); err != nil {
		return service.Highlight{}, fmt.Errorf("unmarshal metrics: %w", err)
	}

	var err error
	if h.CreatedAt, err = parseStoredTime(createdAt); err != nil {
		return service.Highlight{}, err
	}
	if h.UpdatedAt, err = parseStoredTime(updatedAt); err != nil {
		return service.Highlight{}, err
	}
	return h, nil
}

func encodeHighlightLists(input service.HighlightInput) (domains, skills, keywords, metrics string, err error) {
	d, err := json.Marshal(emptyIfNil(input.Domains))
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshal domains: %w", err)
	}
	s, err := json.Marshal(emptyIfNil(input.Skills))
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshal skills: %w", err)
	}
	k, err := json.Marshal(emptyIfNil(input.Keywords))
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshal keywords: %w", err)
	}
	m := input.Metrics
	if m == nil {
		m = []service.Metric{}
	}
	mj, err := json.Marshal(m)
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshal metrics: %w", err)
	}
	return string(d), string(s), string(k), string(mj), nil
}

func emptyIfNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseStoredTime tries the formats the local store may have persisted.
func parseStoredTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}

var _ service.Store = (*SQLiteStore)(nil)
