// Package version holds build information for the dbexec binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	goversion "github.com/hashicorp/go-version"
)

var (
	// Version is the version of the CLI
	Version = "0.1.0"
	// BuildDate is the build date
	BuildDate = "unknown"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Info holds version information
type Info struct {
	Version   string            `json:"version"`
	BuildDate string            `json:"buildDate"`
	GitCommit string            `json:"gitCommit"`
	GoVersion string            `json:"goVersion"`
	Platform  string            `json:"platform"`
	Drivers   map[string]string `json:"drivers"`
}

// drivers are the database driver modules reported by Get.
var drivers = []string{
	"github.com/lib/pq",
	"github.com/go-sql-driver/mysql",
	"github.com/mattn/go-sqlite3",
}

// Get returns version information
func Get() Info {
	info := Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Drivers:   map[string]string{},
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range bi.Deps {
			for _, d := range drivers {
				if dep.Path == d {
					info.Drivers[d] = dep.Version
				}
			}
		}
	}
	return info
}

// Valid reports whether Version is a well-formed semantic version.
func (i Info) Valid() bool {
	_, err := goversion.NewSemver(i.Version)
	return err == nil
}

// String returns a formatted version string
func (i Info) String() string {
	return fmt.Sprintf("dbexec version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString returns a detailed version string
func (i Info) FullString() string {
	s := fmt.Sprintf(`dbexec version %s
Build Date: %s
Git Commit: %s
Platform: %s
Go Version: %s`, i.Version, i.BuildDate, i.GitCommit, i.Platform, i.GoVersion)
	for _, d := range drivers {
		if v, ok := i.Drivers[d]; ok {
			s += fmt.Sprintf("\n%s %s", d, v)
		}
	}
	return s
}
