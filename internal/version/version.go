// Package version exposes build metadata set via -ldflags.
package version

// Set at build time:
//
//	go build -ldflags "-X github.com/and161185/memoriz/internal/version.Version=1.2.0"
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// AppName is reported by the healthcheck endpoint.
const AppName = "memoriz"

// Info is the JSON shape of the version endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{Version: Version, Commit: Commit, BuildDate: BuildDate}
}
