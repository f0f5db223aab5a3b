package magetasks

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/magefile/mage/sh"
)

// golangci-lint checks that do not fit this codebase.
const disabledLinters = "exhaustruct,varnamelen,ireturn,wrapcheck,nlreturn,gochecknoglobals,mnd,depguard,tagalign"

// Ldflags returns linker flags stamping version metadata into internal/version.
func Ldflags(version, commit string, built time.Time) string {
	pkg := ModulePath + "/internal/version"
	return fmt.Sprintf("-s -w -X '%s.Version=%s' -X '%s.CommitHash=%s' -X '%s.BuildDate=%s'",
		pkg, version, pkg, commit, pkg, built.UTC().Format(time.RFC3339))
}

// Build compiles dbuild into BinPath.
func Build() error {
	PrintHeader("Build")
	flags := Ldflags(gitOutput("dev", "describe", "--tags", "--always", "--dirty", "--match=v*"),
		gitOutput("unknown", "rev-parse", "--short", "HEAD"), time.Now())
	if err := sh.RunV("go", "build", "-ldflags", flags, "-o", BinPath, MainPackage); err != nil {
		PrintError("build failed")
		return errors.Wrap(err, "go build")
	}
	PrintSuccess("built " + BinPath)
	return nil
}

// Test runs the test suite, optionally with the race detector.
func Test(race bool) error {
	PrintHeader("Test")
	args := []string{"test"}
	if race {
		args = append(args, "-race")
	}
	args = append(args, "./...")
	if err := sh.RunV("go", args...); err != nil {
		PrintError("tests failed")
		return errors.Wrap(err, "go test")
	}
	PrintSuccess("tests passed")
	return nil
}

// Lint runs go vet and, when installed, golangci-lint.
func Lint() error {
	PrintHeader("Lint")
	var errs []error
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		errs = append(errs, errors.Wrap(err, "go vet"))
	}
	err := sh.RunV("golangci-lint", "run", "--disable="+disabledLinters, "--timeout=5m", "./...")
	switch {
	case IsCommandNotFound(err):
		PrintWarning("golangci-lint not found (install: go install github.com/golangci/golangci-lint/cmd/golangci-lint@latest)")
	case err != nil:
		errs = append(errs, errors.Wrap(err, "golangci-lint"))
	}
	if err := errors.Join(errs...); err != nil {
		PrintError("lint failed")
		return err
	}
	PrintSuccess("lint clean")
	return nil
}

// Clean removes the bin directory and coverage output.
func Clean() error {
	PrintHeader("Clean")
	for _, p := range []string{"bin", "coverage.out"} {
		if err := os.RemoveAll(p); err != nil {
			return errors.Wrapf(err, "remove %s", p)
		}
	}
	PrintSuccess("cleaned")
	return nil
}

func gitOutput(fallback string, args ...string) string {
	out, err := sh.Output("git", args...)
	if err != nil || strings.TrimSpace(out) == "" {
		return fallback
	}
	return strings.TrimSpace(out)
}

// IsCommandNotFound reports whether err means the executable is missing.
func IsCommandNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "executable file not found") || strings.Contains(msg, "no such file or directory")
}
