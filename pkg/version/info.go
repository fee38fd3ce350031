// Package version reports the build metadata shown by the version command and the
// management /version endpoint.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
)

const (
	// Unknown is used when build metadata is not provided.
	Unknown = "unknown"
	// DevelopmentVersion is the default version in local builds.
	DevelopmentVersion = "dev"
)

var (
	// AppVersion is intended to be overridden at build time:
	// go build -ldflags="-X github.com/kaminari-anilist/kaminari/pkg/version.AppVersion=v1.2.3"
	AppVersion = DevelopmentVersion

	// GitCommit is intended to be overridden at build time.
	GitCommit = Unknown

	// BuildTime is intended to be overridden at build time (RFC3339 recommended).
	BuildTime = Unknown
)

// Info contains version metadata for an application.
type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version,omitempty"`
}

// buildInfo is what the toolchain stamped into the binary. Values set with -ldflags win.
type buildInfo struct {
	version   string
	revision  string
	time      string
	goVersion string
}

var readBuildInfo = sync.OnceValue(func() buildInfo {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return buildInfo{}
	}
	return fromBuildInfo(bi)
})

func fromBuildInfo(bi *debug.BuildInfo) buildInfo {
	out := buildInfo{goVersion: bi.GoVersion}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		out.version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.revision = s.Value
		case "vcs.time":
			out.time = s.Value
		}
	}
	return out
}

// Current returns the build metadata for serviceName.
func Current(serviceName string) Info {
	return current(serviceName, readBuildInfo())
}

func current(serviceName string, bi buildInfo) Info {
	return Info{
		Service:   firstSet(Unknown, serviceName),
		Version:   firstSet(DevelopmentVersion, stamped(AppVersion, DevelopmentVersion), bi.version),
		Commit:    firstSet(Unknown, stamped(GitCommit, Unknown), bi.revision),
		BuildTime: firstSet(Unknown, stamped(BuildTime, Unknown), bi.time),
		GoVersion: bi.goVersion,
	}
}

// stamped treats the compiled-in default as not set.
func stamped(v, placeholder string) string {
	if strings.TrimSpace(v) == placeholder {
		return ""
	}
	return v
}

// String returns a log-friendly representation.
func (i Info) String() string {
	return fmt.Sprintf("%s@%s (commit=%s, build_time=%s)", i.Service, i.Version, i.Commit, i.BuildTime)
}

func firstSet(fallback string, values ...string) string {
	for _, v := range values {
		if norm := strings.TrimSpace(v); norm != "" {
			return norm
		}
	}
	return fallback
}
