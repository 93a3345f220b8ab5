package version

var (
	// Version contains the current version of tzwatchd
	Version = "dev"

	// CommitHash contains the current git commit hash
	CommitHash = "unknown"

	// BuildTime contains the time of build
	BuildTime = "unknown"

	// BridgeProtocol is the version of the event bridge wire format.
	BridgeProtocol = "1.1.0"
)
