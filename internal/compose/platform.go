package compose

import (
	"path/filepath"
	"regexp"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/dbuild/internal/build"
)

// hostTargets maps GOOS to the platform a "current" build targets.
var hostTargets = map[string]build.Platform{
	"darwin":  build.PlatformMacOS,
	"windows": build.PlatformWindows,
	"linux":   build.PlatformLinux,
}

// triples maps every concrete platform to the bob platform string.
var triples = map[build.Platform]string{
	build.PlatformAndroid: "arm64-android",
	build.PlatformIOS:     "arm64-ios",
	build.PlatformMacOS:   "x86_64-macos",
	build.PlatformWindows: "x86_64-win32",
	build.PlatformLinux:   "x86_64-linux",
	build.PlatformHTML5:   "js-web",
}

// ResolvePlatform turns "current" into the host's platform.
func ResolvePlatform(p build.Platform, goos string) (build.Platform, error) {
	if p != build.PlatformCurrent {
		if _, ok := triples[p]; !ok {
			return "", errors.Newf("unsupported platform %q", p)
		}
		return p, nil
	}
	host, ok := hostTargets[goos]
	if !ok {
		return "", errors.Newf("no build target for host %q", goos)
	}
	return host, nil
}

// Triple returns the bob platform string for a concrete platform.
func Triple(p build.Platform) (string, bool) {
	t, ok := triples[p]
	return t, ok
}

// EngineBinary is the file name of the compiled engine on goos.
func EngineBinary(goos string) string {
	if goos == "windows" {
		return "dmengine.exe"
	}
	return "dmengine"
}

// OutputDir is where bob writes the default build of a project.
func OutputDir(projectDir string) string {
	return filepath.Join(projectDir, "build", "default")
}

// BundleDir is where bundles for triple are written.
func BundleDir(projectDir, triple string) string {
	return filepath.Join(projectDir, "build", "bundle", triple)
}

var (
	hasWhitespace = regexp.MustCompile(`\s`)
	whitespaceRun = regexp.MustCompile(`(\s+)`)
)

// Escape protects a path holding whitespace: windows wraps it in double
// quotes, other hosts backslash-escape each whitespace run.
func Escape(path, goos string) string {
	if !hasWhitespace.MatchString(path) {
		return path
	}
	if goos == "windows" {
		return `"` + path + `"`
	}
	return whitespaceRun.ReplaceAllString(path, `\${1}`)
}
