// Package version describes the endtoend build.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Name is the program name shown in version output.
const Name = "endtoend"

// Set with -ldflags "-X github.com/tomatool/endtoend/internal/version.Version=..." at release.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Drivers whose versions are reported alongside the build.
var drivers = map[string]string{
	"github.com/chromedp/chromedp":                "chromedp",
	"github.com/cucumber/godog":                   "godog",
	"github.com/onsi/ginkgo/v2":                   "ginkgo",
	"github.com/testcontainers/testcontainers-go": "testcontainers",
}

// Info is a snapshot of the running build.
type Info struct {
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	Platform  string
	// Drivers maps a short driver name to its module version, when known.
	Drivers map[string]string
}

// Get returns the build information. A "dev" build installed with go install
// takes its version from the module build info.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Drivers:   map[string]string{},
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, dep := range bi.Deps {
		if name, ok := drivers[dep.Path]; ok {
			info.Drivers[name] = dep.Version
		}
	}
	return info
}

// String renders the one-line form used by --version.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Name, i.Version, i.Commit, i.BuildDate)
}
