package version

// Version is the current version of devrm.
// Use semantic versioning: MAJOR.MINOR.PATCH
const Version = "0.3.0"

// Commit is set at build time with -ldflags "-X .../version.Commit=<sha>"
var Commit = "unknown"

// String returns the version with the build commit when known
func String() string {
	if Commit == "" || Commit == "unknown" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
