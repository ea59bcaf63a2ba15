// Package tenant derives per-tenant database identifiers and connection
// strings from the authenticated principal.
package tenant

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

const dbNamePrefix = "careers-"

// BuildDatabaseName derives a stable database name for a principal. The same
// principal always maps to the same name, so a retried provisioning run
// targets the database it already created.
func BuildDatabaseName(principalID string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(principalID)))
	return dbNamePrefix + hex.EncodeToString(sum[:])[:24]
}

// BuildDSN assembles a postgres connection URL for a provisioned tenant
// database. The credential rides as the password, which is how the hosting
// platform authenticates issued tokens.
func BuildDSN(hostname, dbName, credential string) string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=require",
		dbName, url.QueryEscape(credential), hostname, dbName)
}
