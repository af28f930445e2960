// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded into the binary at link time.
// The name, build timestamp, Git commit, and semantic version are set
// with -ldflags; development builds fall back to placeholder values so
// the program runs without them.
package build

type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Populated by -ldflags at link time.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

// GetInfo returns the embedded build metadata, substituting defaults
// for any field the linker did not set.
func GetInfo() Info {
	info := Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	if info.Name == "" {
		info.Name = "spectro"
	}
	if info.Time == "" {
		info.Time = "unknown"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}
