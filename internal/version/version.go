package version

import (
	"fmt"
	"runtime"
)

// Set through -ldflags "-X github.com/huanfeng/ownerkit/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the multi-line banner printed by `ownerkit version`
func Info() string {
	return fmt.Sprintf("ownerkit %s\nCommit: %s\nBuilt: %s\nGo: %s\nOS/Arch: %s/%s",
		Version,
		Commit,
		BuildDate,
		runtime.Version(),
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// Short returns the version, with an abbreviated commit when one was stamped in
func Short() string {
	if Commit == "" || Commit == "unknown" {
		return Version
	}
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s (%s)", Version, commit)
}
