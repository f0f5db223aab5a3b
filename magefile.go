//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"

	"github.com/dkoosis/dbuild/internal/magetasks"
)

// Default target - build the binary
var Default = Build

func init() {
	if err := magetasks.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(1)
	}
}

// Build builds the dbuild binary
func Build() error {
	return magetasks.Build()
}

// Clean removes build artifacts
func Clean() error {
	return magetasks.Clean()
}

// Lint runs go vet and golangci-lint
func Lint() error {
	return magetasks.Lint()
}

// QA runs lint and tests, then builds
func QA() error {
	mg.SerialDeps(Lint, Test.All)
	return magetasks.Build()
}

// Test namespace for testing commands
type Test mg.Namespace

// All runs all tests
func (Test) All() error {
	return magetasks.Test(false)
}

// Race runs tests with the race detector
func (Test) Race() error {
	return magetasks.Test(true)
}
