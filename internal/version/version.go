// Package version provides the application and config format versions.
package version

// Version is set at build time via ldflags:
//
//	go build -ldflags "-X github.com/tobyns/focusgate/internal/version.Version=1.2.3" ./cmd/focusgate
//
// Defaults to "dev" for local development builds.
var Version = "dev"

// ConfigVersion is the newest config file format this build understands.
// Compared by major version against the config_version field.
const ConfigVersion = "1.0.0"
