package sqlassets

import "embed"

//go:embed schema/tenant_space/jobs.sql
var JobsSQL string

//go:embed schema/tenant_space/highlights.sql
var HighlightsSQL string

//go:embed schema/tenant_space/profile.sql
var ProfileSQL string

//go:embed schema/platform/tenant_databases.sql
var TenantDatabasesSQL string

// TenantSpaceDDL is the fixed, ordered list of statements applied to a
// freshly provisioned tenant database. Highlights reference jobs, so jobs
// must come first.
var TenantSpaceDDL = []string{JobsSQL, HighlightsSQL, ProfileSQL}

//go:embed migrations/local/*.sql
var LocalMigrationsFS embed.FS

// LocalMigrationsDir is the path inside LocalMigrationsFS holding the
// golang-migrate sources for the local embedded store.
const LocalMigrationsDir = "migrations/local"
