//go:build !unix

package runner

import (
	"os/exec"
)

// setProcessGroup is a no-op on non-Unix platforms.
func setProcessGroup(cmd *exec.Cmd) {}

// terminateProcessGroup kills the process directly; there is no SIGTERM here.
func terminateProcessGroup(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func exitCodeFromError(exitErr *exec.ExitError) (int, bool) {
	if exitErr.ProcessState != nil {
		return exitErr.ProcessState.ExitCode(), true
	}
	return 0, false
}
