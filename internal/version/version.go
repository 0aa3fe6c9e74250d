package version

// Overridden at build time with -ldflags "-X .../internal/version.Version=v1.2.3".
var (
	Version = "unknown"
	Commit  = "unknown"
)

func GetVersion() string {
	return Version
}

func GetCommit() string {
	return Commit
}
