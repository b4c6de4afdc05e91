// Package version reports how the tagx binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string    `json:"version"    yaml:"version"`
	GitCommit string    `json:"git_commit" yaml:"git_commit"`
	BuildTime time.Time `json:"build_time" yaml:"build_time"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform"   yaml:"platform"`
	Modified  bool      `json:"modified"   yaml:"modified"`
}

// Set at build time with -ldflags "-X".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// readSettings is swapped in tests.
var readSettings = func() (string, map[string]string, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", nil, false
	}
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	return info.Main.Version, settings, true
}

// GetBuildInfo collects the ldflags values, falling back on the VCS
// stamps the Go toolchain embeds.
func GetBuildInfo() *BuildInfo {
	info := &BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: parseTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	mainVersion, settings, ok := readSettings()
	if !ok {
		return info
	}
	if info.GitCommit == "" || info.GitCommit == "unknown" {
		if rev := settings["vcs.revision"]; rev != "" {
			info.GitCommit = rev
		}
	}
	if info.Version == "" || info.Version == "dev" {
		if mainVersion != "" && mainVersion != "(devel)" {
			info.Version = mainVersion
		}
	}
	if info.BuildTime.IsZero() {
		info.BuildTime = parseTime(settings["vcs.time"])
	}
	info.Modified = settings["vcs.modified"] == "true"
	return info
}

// GetVersion returns the application version
func GetVersion() string {
	return GetBuildInfo().Version
}

// GetShortVersion returns "v1.2.3 (abcdef0)", or "dev-abcdef0" for
// untagged builds.
func GetShortVersion() string {
	return GetBuildInfo().Short()
}

// Short formats the version with an abbreviated commit.
func (b *BuildInfo) Short() string {
	if b.GitCommit == "unknown" || len(b.GitCommit) < 7 {
		return b.Version
	}
	commit := b.GitCommit[:7]
	if b.Modified {
		commit += "-dirty"
	}
	if b.Version == "dev" || b.Version == "" {
		return "dev-" + commit
	}
	return fmt.Sprintf("%s (%s)", b.Version, commit)
}

// String formats every field, one per line.
func (b *BuildInfo) String() string {
	lines := []string{"Version: " + b.Version}
	if b.GitCommit != "unknown" {
		lines = append(lines, "Commit: "+b.GitCommit)
	}
	if !b.BuildTime.IsZero() {
		lines = append(lines, "Built: "+b.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+b.GoVersion, "Platform: "+b.Platform)
	return strings.Join(lines, "\n")
}

// IsRelease reports whether the binary was built from a tagged version.
func IsRelease() bool {
	v := GetVersion()
	return v != "dev" && !strings.HasPrefix(v, "dev-")
}

func parseTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
