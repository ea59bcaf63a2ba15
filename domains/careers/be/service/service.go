package service

import (
	"context"
	"errors"
	"time"
)

// Errors returned by Store implementations.
var (
	ErrJobNotFound       = errors.New("job not found")
	ErrHighlightNotFound = errors.New("highlight not found")
)

// HighlightType classifies a career highlight.
type HighlightType string

const (
	TypeAchievement    HighlightType = "achievement"
	TypeProject        HighlightType = "project"
	TypeResponsibility HighlightType = "responsibility"
	TypeEducation      HighlightType = "education"
)

// KnownHighlightType reports whether t is one of the supported types.
func KnownHighlightType(t HighlightType) bool {
	switch t {
	case TypeAchievement, TypeProject, TypeResponsibility, TypeEducation:
		return true
	default:
		return false
	}
}

// Metric is a quantified outcome attached to a highlight.
type Metric struct {
	Label       string  `json:"label"`
	Value       string  `json:"value"`
	Unit        string  `json:"unit"`
	Prefix      *string `json:"prefix,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Job is a career history position.
type Job struct {
	ID        string    `json:"id"`
	Company   string    `json:"company"`
	Role      string    `json:"role"`
	StartDate string    `json:"startDate"`
	EndDate   *string   `json:"endDate,omitempty"`
	LogoURL   *string   `json:"logoUrl,omitempty"`
	Website   *string   `json:"website,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Highlight is an accomplishment, optionally linked to a job. Deleting a job
// nulls JobID on its highlights; orphaned highlights stay visible.
type Highlight struct {
	ID        string        `json:"id"`
	JobID     *string       `json:"jobId,omitempty"`
	Type      HighlightType `json:"type"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	StartDate string        `json:"startDate"`
	EndDate   *string       `json:"endDate,omitempty"`
	Domains   []string      `json:"domains"`
	Skills    []string      `json:"skills"`
	Keywords  []string      `json:"keywords"`
	Metrics   []Metric      `json:"metrics"`
	IsHidden  bool          `json:"isHidden"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Profile is the single per-scope owner profile row.
type Profile struct {
	FullName  string    `json:"fullName"`
	Headline  *string   `json:"headline,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Location  *string   `json:"location,omitempty"`
	Links     []string  `json:"links"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// JobInput carries mutable job fields. Optional fields arrive normalized
// (empty string coalesced to nil) before reaching a Store.
type JobInput struct {
	ID        string  `json:"id,omitempty"`
	Company   string  `json:"company"`
	Role      string  `json:"role"`
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate,omitempty"`
	LogoURL   *string `json:"logoUrl,omitempty"`
	Website   *string `json:"website,omitempty"`
}

// HighlightInput carries mutable highlight fields.
type HighlightInput struct {
	ID        string        `json:"id,omitempty"`
	JobID     *string       `json:"jobId,omitempty"`
	Type      HighlightType `json:"type"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	StartDate string        `json:"startDate"`
	EndDate   *string       `json:"endDate,omitempty"`
	Domains   []string      `json:"domains"`
	Skills    []string      `json:"skills"`
	Keywords  []string      `json:"keywords"`
	Metrics   []Metric      `json:"metrics"`
	IsHidden  bool          `json:"isHidden"`
}

// SearchFilters compose with AND; absent fields impose no constraint.
type SearchFilters struct {
	Query           string          `json:"query,omitempty"`
	Types           []HighlightType `json:"types,omitempty"`
	Domains         []string        `json:"domains,omitempty"`
	Skills          []string        `json:"skills,omitempty"`
	OnlyWithMetrics bool            `json:"onlyWithMetrics,omitempty"`
}

// JobWithCount pairs a job with the number of highlights referencing it.
type JobWithCount struct {
	Job            Job `json:"job"`
	HighlightCount int `json:"highlightCount"`
}

// JobWithHighlights pairs a job with its non-hidden highlights.
type JobWithHighlights struct {
	Job        Job         `json:"job"`
	Highlights []Highlight `json:"highlights"`
}

// Snapshot is a full export of one scope: jobs, highlights and the profile.
type Snapshot struct {
	Jobs       []Job       `json:"jobs"`
	Highlights []Highlight `json:"highlights"`
	Profile    *Profile    `json:"profile,omitempty"`
}

// Empty reports whether the snapshot holds no data worth importing.
func (s Snapshot) Empty() bool {
	return len(s.Jobs) == 0 && len(s.Highlights) == 0 && s.Profile == nil
}

// ImportError records a single failed record during a bulk import.
type ImportError struct {
	Kind   string `json:"kind"` // "job" | "highlight" | "profile"
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ImportReport aggregates the outcome of ImportAll. Per-record failures do
// not abort remaining records; Success is true only with zero errors.
type ImportReport struct {
	JobsImported       int           `json:"jobsImported"`
	HighlightsImported int           `json:"highlightsImported"`
	ProfileImported    bool          `json:"profileImported"`
	Errors             []ImportError `json:"errors"`
	Success            bool          `json:"success"`
}

// ClearReport counts the entities removed by ClearAll.
type ClearReport struct {
	JobsDeleted       int  `json:"jobsDeleted"`
	HighlightsDeleted int  `json:"highlightsDeleted"`
	ProfileDeleted    bool `json:"profileDeleted"`
}

// Store is the entity store contract. Both the local embedded store and the
// remote tenant store implement the identical surface; only the storage
// medium and the presence of a principal scope differ.
type Store interface {
	CreateJob(ctx context.Context, input JobInput) (Job, error)
	UpdateJob(ctx context.Context, id string, input JobInput) (Job, error)
	DeleteJob(ctx context.Context, id string) error

	CreateHighlight(ctx context.Context, input HighlightInput) (Highlight, error)
	UpdateHighlight(ctx context.Context, id string, input HighlightInput) (Highlight, error)
	DeleteHighlight(ctx context.Context, id string) error
	ToggleVisibility(ctx context.Context, id string) (Highlight, error)

	ListJobsWithHighlightCounts(ctx context.Context) ([]JobWithCount, error)
	ListJobsWithVisibleHighlights(ctx context.Context) ([]JobWithHighlights, error)
	SearchHighlights(ctx context.Context, filters SearchFilters) ([]Highlight, error)

	GetProfile(ctx context.Context) (*Profile, error)
	SaveProfile(ctx context.Context, p Profile) (Profile, error)

	ExportAll(ctx context.Context) (Snapshot, error)
	ImportAll(ctx context.Context, snap Snapshot) (ImportReport, error)
	ClearAll(ctx context.Context) (ClearReport, error)
}
