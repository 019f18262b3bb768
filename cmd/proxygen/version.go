package main

import (
	_ "embed"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var releaseLine string

// Version reports the proxygen build: the tagged module version for binaries
// installed from a release, devel-<VERSION>[+rev] for everything else.
func Version() string {
	info, _ := debug.ReadBuildInfo()
	return buildVersion(strings.TrimSpace(releaseLine), info)
}

func buildVersion(release string, info *debug.BuildInfo) string {
	if info == nil {
		return release
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return "devel-" + release + "+" + s.Value[:7]
		}
	}
	return "devel-" + release
}
