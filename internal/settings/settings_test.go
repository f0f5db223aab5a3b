package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dkoosis/dbuild/internal/diag"
)

func noEnv(string) string { return "" }

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_When_NoFileExists(t *testing.T) {
	t.Parallel()

	cfg, err := Load(zaptest.NewLogger(t), LoadOptions{
		ProjectDir:    t.TempDir(),
		UserConfigDir: t.TempDir(),
		Getenv:        noEnv,
	})
	require.NoError(t, err)
	assert.Empty(t, cfg.Source)
	assert.Equal(t, DefaultTheme, cfg.Theme)
	assert.Equal(t, diag.DefaultPatterns(), cfg.Patterns)
	assert.Equal(t, "", cfg.String(KeyEmail))
	assert.False(t, cfg.Bool(KeyLiveUpdate))
	assert.Equal(t, "", cfg.String("no.such.key"))
}

func TestLoad_When_ProjectYAMLPresent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dbuild.yaml"), []byte(`
editor_path: /opt/defold
email: dev@example.com
texture_compression: true
android:
  keystore: /keys/release.jks
  keystore_alias: upload
ios:
  identity: "Apple Distribution"
theme: orca
history:
  enabled: true
`), 0o644))

	cfg, err := Load(zaptest.NewLogger(t), LoadOptions{ProjectDir: dir, UserConfigDir: t.TempDir(), Getenv: noEnv})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ".dbuild.yaml"), cfg.Source)
	assert.Equal(t, "/opt/defold", cfg.EditorPath)
	assert.Equal(t, "dev@example.com", cfg.String(KeyEmail))
	assert.True(t, cfg.Bool(KeyTextureCompression))
	assert.Equal(t, "/keys/release.jks", cfg.String(KeyAndroidKeystore))
	assert.Equal(t, "upload", cfg.String(KeyAndroidKeystoreAlias))
	assert.Equal(t, "Apple Distribution", cfg.String(KeyIOSIdentity))
	assert.Equal(t, "orca", cfg.Theme)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, DefaultDebounceMillis, cfg.Watch.DebounceMillis)
	assert.Len(t, cfg.Patterns, len(diag.DefaultPatterns()))
}

func TestLoad_When_UserTOMLPresent(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "dbuild"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "dbuild", "config.toml"), []byte(`
editor_path = "/Applications/Defold.app"
live_update = true

[watch]
debounce_ms = 50

[[patterns]]
name = "defold-build"
regexp = '^(ERROR) (.+):(\d+) (.*)$'
severity = 1
file = 2
line = 3
message = 4
`), 0o644))

	cfg, err := Load(zaptest.NewLogger(t), LoadOptions{ProjectDir: t.TempDir(), UserConfigDir: home, Getenv: noEnv})
	require.NoError(t, err)

	assert.Equal(t, "/Applications/Defold.app", cfg.EditorPath)
	assert.True(t, cfg.Bool(KeyLiveUpdate))
	assert.Equal(t, 50, cfg.Watch.DebounceMillis)
	require.Len(t, cfg.Patterns, 1)
	assert.Equal(t, diag.Pattern{
		Name: "defold-build", Regexp: `^(ERROR) (.+):(\d+) (.*)$`,
		Severity: 1, File: 2, Line: 3, Message: 4,
	}, cfg.Patterns[0])
}

func TestLoad_When_ProjectFileShadowsUserFile(t *testing.T) {
	t.Parallel()

	project, home := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ".dbuild.toml"), []byte(`theme = "mono"`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(home, "dbuild"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "dbuild", "config.yaml"), []byte("theme: orca\n"), 0o644))

	cfg, err := Load(zaptest.NewLogger(t), LoadOptions{ProjectDir: project, UserConfigDir: home, Getenv: noEnv})
	require.NoError(t, err)
	assert.Equal(t, "mono", cfg.Theme)
}

func TestLoad_When_EnvironmentOverridesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dbuild.yaml"), []byte("editor_path: /from/file\nauth: file-token\n"), 0o644))

	cfg, err := Load(zaptest.NewLogger(t), LoadOptions{
		ProjectDir:    dir,
		UserConfigDir: t.TempDir(),
		Getenv: envMap(map[string]string{
			EnvEditorPath: "/from/env",
			EnvDebug:      "1",
			EnvNoColor:    "yes",
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.EditorPath)
	assert.Equal(t, "file-token", cfg.String(KeyAuth))
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.NoColor)
}

func TestLoad_When_FileIsMalformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dbuild.yaml"), []byte("email: [unterminated\n"), 0o644))

	_, err := Load(zaptest.NewLogger(t), LoadOptions{ProjectDir: dir, UserConfigDir: t.TempDir(), Getenv: noEnv})
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestMap_When_ValueHasWrongType(t *testing.T) {
	t.Parallel()

	m := Map{KeyEmail: 42, KeyLiveUpdate: "yes"}
	assert.Equal(t, "", m.String(KeyEmail))
	assert.False(t, m.Bool(KeyLiveUpdate))
}
