// Package settings loads user settings from .dbuild.yaml or .dbuild.toml and
// the environment, and exposes them through Provider.
package settings

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dkoosis/dbuild/internal/diag"
)

// Environment variables read by Load.
const (
	EnvEditorPath = "DBUILD_EDITOR_PATH"
	EnvEmail      = "DBUILD_EMAIL"
	EnvAuth       = "DBUILD_AUTH"
	EnvDebug      = "DBUILD_DEBUG"
	EnvNoColor    = "NO_COLOR"
)

// DefaultTheme is used when no theme is configured.
const DefaultTheme = "default"

// DefaultDebounceMillis is the quiet period before watch mode re-runs.
const DefaultDebounceMillis = 300

// Config is the merged user configuration.
type Config struct {
	EditorPath         string         `yaml:"editor_path" toml:"editor_path"`
	Email              string         `yaml:"email" toml:"email"`
	Auth               string         `yaml:"auth" toml:"auth"`
	TextureCompression bool           `yaml:"texture_compression" toml:"texture_compression"`
	WithSymbols        bool           `yaml:"with_symbols" toml:"with_symbols"`
	LiveUpdate         bool           `yaml:"live_update" toml:"live_update"`
	Android            AndroidSigning `yaml:"android" toml:"android"`
	IOS                IOSSigning     `yaml:"ios" toml:"ios"`
	Theme              string         `yaml:"theme" toml:"theme"`
	NoColor            bool           `yaml:"no_color" toml:"no_color"`
	Debug              bool           `yaml:"debug" toml:"debug"`
	History            History        `yaml:"history" toml:"history"`
	Watch              Watch          `yaml:"watch" toml:"watch"`
	Patterns           []diag.Pattern `yaml:"patterns" toml:"patterns"`

	// Source is the file the configuration was read from, if any.
	Source string `yaml:"-" toml:"-"`
}

// AndroidSigning holds Android bundle signing options.
type AndroidSigning struct {
	Keystore      string `yaml:"keystore" toml:"keystore"`
	KeystorePass  string `yaml:"keystore_pass" toml:"keystore_pass"`
	KeystoreAlias string `yaml:"keystore_alias" toml:"keystore_alias"`
	BundleFormat  string `yaml:"bundle_format" toml:"bundle_format"`
}

// IOSSigning holds iOS bundle signing options.
type IOSSigning struct {
	Identity                      string `yaml:"identity" toml:"identity"`
	MobileProvisioningProfilePath string `yaml:"mobile_provisioning_profile" toml:"mobile_provisioning_profile"`
}

// History configures the run history database.
type History struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// Path defaults to <user config dir>/dbuild/history.db.
	Path string `yaml:"path" toml:"path"`
}

// Watch configures watch mode.
type Watch struct {
	DebounceMillis int      `yaml:"debounce_ms" toml:"debounce_ms"`
	Ignore         []string `yaml:"ignore" toml:"ignore"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Theme:    DefaultTheme,
		Watch:    Watch{DebounceMillis: DefaultDebounceMillis},
		Patterns: diag.DefaultPatterns(),
	}
}

// String implements Provider.
func (c *Config) String(key string) string {
	switch key {
	case KeyEmail:
		return c.Email
	case KeyAuth:
		return c.Auth
	case KeyAndroidKeystore:
		return c.Android.Keystore
	case KeyAndroidKeystorePass:
		return c.Android.KeystorePass
	case KeyAndroidKeystoreAlias:
		return c.Android.KeystoreAlias
	case KeyAndroidBundleFormat:
		return c.Android.BundleFormat
	case KeyIOSIdentity:
		return c.IOS.Identity
	case KeyIOSProvisioningProfile:
		return c.IOS.MobileProvisioningProfilePath
	default:
		return ""
	}
}

// Bool implements Provider.
func (c *Config) Bool(key string) bool {
	switch key {
	case KeyTextureCompression:
		return c.TextureCompression
	case KeyWithSymbols:
		return c.WithSymbols
	case KeyLiveUpdate:
		return c.LiveUpdate
	default:
		return false
	}
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// ProjectDir is searched first.
	ProjectDir string
	// UserConfigDir is searched second, under a "dbuild" subdirectory.
	// Empty means os.UserConfigDir.
	UserConfigDir string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

var projectFiles = []string{".dbuild.yaml", ".dbuild.yml", ".dbuild.toml"}

var userFiles = []string{"config.yaml", "config.yml", "config.toml"}

// Load merges defaults, the first settings file found and the environment,
// in increasing order of precedence.
func Load(logger *zap.Logger, opts LoadOptions) (*Config, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	cfg := Defaults()

	path := findFile(opts)
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.Source = path
		logger.Debug("settings loaded", zap.String("path", path))
	}

	applyEnv(cfg, opts.Getenv)

	if len(cfg.Patterns) == 0 {
		cfg.Patterns = diag.DefaultPatterns()
	}
	if cfg.Theme == "" {
		cfg.Theme = DefaultTheme
	}
	if cfg.Watch.DebounceMillis <= 0 {
		cfg.Watch.DebounceMillis = DefaultDebounceMillis
	}
	return cfg, nil
}

func findFile(opts LoadOptions) string {
	var candidates []string
	if opts.ProjectDir != "" {
		for _, name := range projectFiles {
			candidates = append(candidates, filepath.Join(opts.ProjectDir, name))
		}
	}

	configHome := opts.UserConfigDir
	if configHome == "" {
		if dir, err := os.UserConfigDir(); err == nil && dir != "/" {
			configHome = dir
		}
	}
	if configHome != "" {
		for _, name := range userFiles {
			candidates = append(candidates, filepath.Join(configHome, "dbuild", name))
		}
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read settings %s", path)
	}
	// A file's pattern table replaces the defaults rather than extending them.
	cfg.Patterns = nil
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return errors.WithHint(errors.Wrapf(err, "parse settings %s", path), "Fix or remove the settings file.")
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(EnvEditorPath); v != "" {
		cfg.EditorPath = v
	}
	if v := getenv(EnvEmail); v != "" {
		cfg.Email = v
	}
	if v := getenv(EnvAuth); v != "" {
		cfg.Auth = v
	}
	if v := getenv(EnvDebug); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		} else {
			cfg.Debug = true
		}
	}
	if getenv(EnvNoColor) != "" {
		cfg.NoColor = true
	}
}

// HistoryPath returns the configured history database path or the default
// under the user config directory.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "locate user config directory")
	}
	return filepath.Join(dir, "dbuild", "history.db"), nil
}
