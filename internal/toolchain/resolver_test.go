package toolchain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const sampleConfig = `[build]
version = 1.9.6
editor_sha1 = 0a1b2c3d
[launcher]
jdk = ${bootstrap.resourcespath}/jdk
java = ${launcher.jdk}/bin/java
jar = ${bootstrap.resourcespath}/packages/defold-${build.editor_sha1}.jar
vmargs = -Xmx4g,-Dfile.encoding=UTF-8
`

// writeInstall lays out a minimal installation under dir.
func writeInstall(t *testing.T, dir, config string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "packages"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "packages", "defold-0a1b2c3d.jar"), []byte("PK"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte(config), 0o644))
}

func newTestResolver(t *testing.T, opts ...Option) *Resolver {
	opts = append([]Option{WithGOOS("linux")}, opts...)
	return NewResolver(zaptest.NewLogger(t), opts...)
}

func TestResolve_When_ConfigIsComplete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res := filepath.Join(dir, "res")
	writeInstall(t, dir, sampleConfig+"resourcespath = "+filepath.ToSlash(res)+"\n")

	env, err := newTestResolver(t).Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, env.InstallPath)
	assert.Equal(t, "1.9.6", env.Version)
	assert.Equal(t, "0a1b2c3d", env.BuildID)
	assert.Equal(t, filepath.Join(res, "jdk"), env.RuntimePath)
	assert.Equal(t, filepath.Join(res, "jdk", "bin", "java"), env.JavaExecutable)
	assert.Equal(t, filepath.Join(res, "packages", "defold-0a1b2c3d.jar"), env.ArchivePath)
}

func TestResolve_When_SameConfigResolvedTwice(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInstall(t, dir, sampleConfig+"resourcespath = res\n")
	r := newTestResolver(t)

	first, err := r.Resolve(dir)
	require.NoError(t, err)
	second, err := r.Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_When_ResourcesPathIsRelative(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInstall(t, dir, sampleConfig+"resourcespath = res\n")

	env, err := newTestResolver(t).Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "res", "jdk"), env.RuntimePath)
}

func TestResolve_When_VersionKeyMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInstall(t, dir, "editor_sha1 = abc\njdk = /jdk\njava = /jdk/bin/java\njar = /x.jar\n")

	env, err := newTestResolver(t).Resolve(dir)
	require.Error(t, err)
	assert.Nil(t, env)
	assert.True(t, errors.Is(err, ErrMissingKey))

	key, ok := MissingKey(err)
	require.True(t, ok)
	assert.Equal(t, "version", key)
}

func TestResolve_When_PlaceholderKeyAbsent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInstall(t, dir, sampleConfig)

	_, err := newTestResolver(t).Resolve(dir)
	key, ok := MissingKey(err)
	require.True(t, ok)
	assert.Equal(t, "resourcespath", key)
}

func TestResolve_When_ValueContainsEquals(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInstall(t, dir, "version = 1.0\neditor_sha1 = a=b\njdk = /jdk\njava = /jdk/bin/java\njar = /x.jar\n")

	_, err := newTestResolver(t).Resolve(dir)
	key, ok := MissingKey(err)
	require.True(t, ok)
	assert.Equal(t, "editor_sha1", key)
}

func TestResolve_When_NotConfigured(t *testing.T) {
	t.Parallel()

	_, err := newTestResolver(t).Resolve("   ")
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestResolve_When_ConfigFileMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "packages"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "packages", "defold-x.jar"), nil, 0o644))

	_, err := newTestResolver(t).Resolve(dir)
	require.True(t, errors.Is(err, ErrInvalidInstallShape))

	var rerr *ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "config", rerr.Missing)
}

func TestResolve_When_ArchiveMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Config"), []byte(sampleConfig), 0o644))

	_, err := newTestResolver(t).Resolve(dir)
	var rerr *ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "archive", rerr.Missing)
}

func TestResolve_When_ShapeMatchesCaseInsensitively(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Packages"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Packages", "Defold-ABC.JAR"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CONFIG"), []byte(sampleConfig+"resourcespath = r\n"), 0o644))

	_, err := newTestResolver(t).Resolve(dir)
	assert.NoError(t, err)
}

func TestResolve_When_PathHasTildeAndTrailingSeparator(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	dir := filepath.Join(home, "Defold")
	writeInstall(t, dir, sampleConfig+"resourcespath = res\n")

	r := newTestResolver(t, WithHomeDir(func() (string, error) { return home, nil }))
	env, err := r.Resolve("~/Defold/")
	require.NoError(t, err)
	assert.Equal(t, dir, env.InstallPath)
}

func TestResolve_When_ExecutablePathGiven(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeInstall(t, dir, sampleConfig+"resourcespath = res\n")
	exe := filepath.Join(dir, "Defold")
	require.NoError(t, os.WriteFile(exe, nil, 0o755))

	env, err := newTestResolver(t).Resolve(exe)
	require.NoError(t, err)
	assert.Equal(t, dir, env.InstallPath)
}

func TestResolve_When_DarwinAppBundleGiven(t *testing.T) {
	t.Parallel()

	app := filepath.Join(t.TempDir(), "Defold.app")
	dir := filepath.Join(app, "Contents", "Resources")
	writeInstall(t, dir, sampleConfig+"resourcespath = res\n")

	r := newTestResolver(t, WithGOOS("darwin"))
	env, err := r.Resolve(app)
	require.NoError(t, err)
	assert.Equal(t, dir, env.InstallPath)

	env, err = r.Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, env.InstallPath)
}

func TestParseConfig_When_LinesAreMixed(t *testing.T) {
	t.Parallel()

	cfg := parseConfig("[launcher]\r\nkey = value\r\nspaced   =   out\nbroken = a = b\n\nnoequals\n")
	assert.Equal(t, map[string]string{"key": "value", "spaced": "out"}, cfg)
}

func TestSubstitute_When_ReplacementContainsPlaceholder(t *testing.T) {
	t.Parallel()

	got, missing := substitute("${bootstrap.resourcespath}/jdk", map[string]string{
		"resourcespath": "${build.editor_sha1}",
		"editor_sha1":   "sha",
	})
	assert.Empty(t, missing)
	assert.Equal(t, "${build.editor_sha1}/jdk", got)
}
