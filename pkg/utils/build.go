// This file contains build information and initialization logic.
// It sets up variables for versioning, commit hash, build time, and start time; it does not
// record the hostname.
// CAUTION: This file shouldn't be removed or else flags wouldn't be set properly.

package utils

import (
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/mod/semver"
)

var (
	TestMode   string // Should be true when running tests.
	IsTestMode bool
	Version    string
	Commit     string
	BuildTime  string
	StartTime  time.Time
)

func init() {
	StartTime = time.Now()

	// If build info is not set, make that clear.
	if Version == "" {
		Version = "v0.0.0"
	}
	if Commit == "" {
		Commit = "unknown"
	}
	if BuildTime == "" {
		BuildTime = "unknown"
	}
	if len(TestMode) > 0 {
		if isTestMode, err := strconv.ParseBool(TestMode); err == nil {
			IsTestMode = isTestMode
		} else {
			slog.Warn("Failed to parse TestMode build flag, defaulting to false", "error", err)
		}
	}
}

// CompatibleWith reports whether the running build's Version is greater than or equal to
// minVersion, both given as semantic version strings (e.g. "v1.2.0"). An invalid minVersion
// raises an invariant and is treated as incompatible.
func CompatibleWith(minVersion string) bool {
	if !semver.IsValid(minVersion) {
		RaiseInvariant("build", "invalid_min_version", "Got an invalid minimum version to compare against.",
			"minVersion", minVersion)
		return false
	}
	return semver.Compare(Version, minVersion) >= 0
}
