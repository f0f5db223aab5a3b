// dbuild drives the Defold build tool from the command line.
//
// Usage:
//
//	dbuild build [-c release]
//	dbuild bundle -p android -c release
//	dbuild run --watch
//	dbuild clean
//	dbuild env
//	dbuild history
//
// The Defold editor installation is taken from --editor-path,
// DBUILD_EDITOR_PATH or editor_path in .dbuild.yaml / .dbuild.toml.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, &app{stdout: stdout, stderr: stderr, getwd: os.Getwd, getenv: os.Getenv}, args)
}

func execute(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		a.fail(err)
		if a.exitCode == 0 {
			return 2
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return a.exitCode
}
