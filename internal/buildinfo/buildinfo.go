// Package buildinfo exposes compile-time metadata shared across the client.
package buildinfo

// The following variables are overridden via ldflags during release builds.
// Defaults cover local development builds.
var (
	// Version is the semantic version or git describe output of the binary.
	Version = "dev"

	// Commit is the git commit SHA baked into the binary.
	Commit = "none"

	// BuildDate records when the binary was built in UTC.
	BuildDate = "unknown"
)

// UserAgent returns the User-Agent value attached to every outbound request.
func UserAgent() string {
	return "focusmate-go/" + Version
}
