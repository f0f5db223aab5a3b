package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/dbuild/internal/version"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

// runCLI executes the CLI in dir with env as the only environment.
func runCLI(t *testing.T, dir string, env map[string]string, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := &app{
		stdout:        &stdout,
		stderr:        &stderr,
		getwd:         func() (string, error) { return dir, nil },
		getenv:        func(k string) string { return env[k] },
		userConfigDir: t.TempDir(),
	}
	code := execute(context.Background(), a, args)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "game.project"), []byte("[project]\ntitle = demo\n"), 0o644))
	return dir
}

func writeInstall(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "packages"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "packages", "defold-abc123.jar"), []byte("PK"), 0o644))
	config := "[build]\nversion = 1.9.6\neditor_sha1 = abc123\n" +
		"[launcher]\njdk = ${bootstrap.resourcespath}/jdk\njava = ${launcher.jdk}/bin/java\n" +
		"jar = ${bootstrap.resourcespath}/packages/defold-${build.editor_sha1}.jar\n" +
		"[bootstrap]\nresourcespath = " + filepath.ToSlash(dir) + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte(config), 0o644))
	return dir
}

func TestRun_When_FlagIsUnknown(t *testing.T) {
	t.Parallel()

	res := runCLI(t, t.TempDir(), nil, "build", "--bogus")

	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "unknown flag")
}

func TestRun_When_ConfigurationIsInvalid(t *testing.T) {
	t.Parallel()

	res := runCLI(t, writeProject(t), nil, "build", "-c", "profile")

	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "profile")
}

func TestRun_When_VersionRequested(t *testing.T) {
	t.Parallel()

	res := runCLI(t, t.TempDir(), nil, "--version")

	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, version.Version)
}

func TestRun_When_ProjectIsMissing(t *testing.T) {
	t.Parallel()

	res := runCLI(t, t.TempDir(), nil, "build")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "game.project")
}

func TestRun_When_EditorPathIsNotConfigured(t *testing.T) {
	t.Parallel()

	res := runCLI(t, writeProject(t), nil, "resolve", "--no-color")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "toolchain path not configured")
	assert.Contains(t, res.stdout, "--editor-path")
	assert.Contains(t, res.stdout, "Resolve failed (exit 1)")
}

func TestRun_When_EnvPrintsResolvedToolchain(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "darwin" {
		t.Skip("install layout differs on macOS")
	}

	install := writeInstall(t)
	res := runCLI(t, writeProject(t), map[string]string{"DBUILD_EDITOR_PATH": install}, "env")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "1.9.6")
	assert.Contains(t, res.stdout, "abc123")
	assert.Contains(t, res.stdout, filepath.Join(install, "packages", "defold-abc123.jar"))
	assert.Contains(t, res.stdout, "game.project")
}

func TestRun_When_EnvHasNoInstall(t *testing.T) {
	t.Parallel()

	res := runCLI(t, t.TempDir(), nil, "env", "--editor-path", filepath.Join(t.TempDir(), "missing"))

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid toolchain installation")
}

func TestRun_When_HistoryIsEmpty(t *testing.T) {
	t.Parallel()

	dir := writeProject(t)
	cfg := "history:\n  path: " + filepath.ToSlash(filepath.Join(t.TempDir(), "h.db")) + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dbuild.yaml"), []byte(cfg), 0o644))

	res := runCLI(t, dir, nil, "history")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "No runs recorded")
}
