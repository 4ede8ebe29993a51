package version

var (
	// Set through -ldflags at release time
	semver   = "0.3.0"
	revision = "unknown"
)

// Get returns the semantic version of the SDK.
func Get() string {
	return semver
}

func Commit() string {
	return revision
}
