// Package version exposes the maestro release string, read from the
// embedded VERSION file so the binary, /health and the version command
// all report the same value.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the maestro version, with whitespace trimmed.
func Get() string {
	return strings.TrimSpace(versionContent)
}
