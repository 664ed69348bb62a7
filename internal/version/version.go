package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the service version, which will be changed by CI when releasing.
var Version = "0.3.0"

// DevVersion is the service version used in dev mode.
var DevVersion = "0.3.0"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// GetMinorVersion extracts the minor version (e.g., "0.3") from the full version (e.g., "0.3.1").
func GetMinorVersion(version string) string {
	return strings.TrimPrefix(semver.MajorMinor(canonical(version)), "v")
}

// IsVersionGreaterOrEqualThan returns true if version is greater than or equal to target.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(canonical(version), canonical(target)) > -1
}

// IsVersionGreaterThan returns true if version is greater than target.
func IsVersionGreaterThan(version, target string) bool {
	return semver.Compare(canonical(version), canonical(target)) > 0
}

// IsValid reports whether version is a valid semantic version.
func IsValid(version string) bool {
	return semver.IsValid(canonical(version))
}

func canonical(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return fmt.Sprintf("v%s", version)
}
