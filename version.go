package cellkit

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Version information for cellkit.
const (
	// Version is the current version of the cellkit API.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about cellkit.
type Info struct {
	// Version is the library version string.
	Version string

	// Model names the concurrency model the primitives are built for.
	Model string

	// Atomic reports whether reference counts and borrow states are updated atomically.
	Atomic bool
}

// GetInfo returns information about cellkit.
//
// Example:
//
//	info := cellkit.GetInfo()
//	fmt.Printf("cellkit %s (%s)\n", info.Version, info.Model)
func GetInfo() Info {
	return Info{
		Version: Version,
		Model:   "single-goroutine",
		Atomic:  false,
	}
}

// Compatible reports whether this version of cellkit satisfies required.
//
// required is a semantic version with or without the leading "v" ("0.1",
// "v0.1.0"). It is satisfied when the major versions match and Version is
// not older. An invalid version is never satisfied.
func Compatible(required string) bool {
	if !strings.HasPrefix(required, "v") {
		required = "v" + required
	}
	if !semver.IsValid(required) {
		return false
	}

	current := "v" + Version
	return semver.Major(current) == semver.Major(required) &&
		semver.Compare(current, required) >= 0
}
