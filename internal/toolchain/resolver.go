// Package toolchain locates a Defold editor installation and resolves the
// Java runtime and bob archive it ships.
package toolchain

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Environment is a fully resolved toolchain. It is never partially populated.
type Environment struct {
	InstallPath    string
	Version        string
	BuildID        string
	RuntimePath    string
	JavaExecutable string
	ArchivePath    string
}

const (
	configFileName  = "config"
	archivePattern  = "defold*.jar"
	darwinResources = "Contents/Resources"
)

// Resolver turns an install path into an Environment.
type Resolver struct {
	logger  *zap.Logger
	goos    string
	homeDir func() (string, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGOOS overrides the host operating system used for path adjustments.
func WithGOOS(goos string) Option {
	return func(r *Resolver) { r.goos = goos }
}

// WithHomeDir overrides home directory lookup for "~" expansion.
func WithHomeDir(fn func() (string, error)) Option {
	return func(r *Resolver) { r.homeDir = fn }
}

// NewResolver creates a Resolver for the running host.
func NewResolver(logger *zap.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		logger:  logger,
		goos:    runtime.GOOS,
		homeDir: os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve validates the installation at installPath, parses its config file
// and returns the resolved Environment. Failures are *ResolutionError values
// carrying a reconfiguration hint.
func (r *Resolver) Resolve(installPath string) (*Environment, error) {
	dir, err := r.normalize(installPath)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("resolving toolchain", zap.String("input", installPath), zap.String("dir", dir))

	configPath, err := validateShape(dir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, newResolutionError(ErrUnreadableConfig, configPath, "", err)
	}
	cfg := parseConfig(string(data))

	env, missing := buildEnvironment(dir, cfg)
	if missing != "" {
		return nil, newResolutionError(ErrMissingKey, configPath, missing, nil)
	}

	r.logger.Debug("toolchain resolved",
		zap.String("version", env.Version),
		zap.String("build_id", env.BuildID),
		zap.String("java", env.JavaExecutable),
		zap.String("archive", env.ArchivePath))
	return env, nil
}

// normalize expands "~", trims trailing separators and applies the host
// specific adjustment.
func (r *Resolver) normalize(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", newResolutionError(ErrNotConfigured, "", "", nil)
	}

	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := r.homeDir()
		if err == nil {
			p = home + p[1:]
		}
	}

	if trimmed := strings.TrimRight(p, `/\`); trimmed != "" {
		p = trimmed
	}
	p = filepath.Clean(p)

	if r.goos == "darwin" {
		if !strings.HasSuffix(filepath.ToSlash(p), "/"+darwinResources) {
			p = filepath.Join(p, filepath.FromSlash(darwinResources))
		}
		return p, nil
	}

	// The editor executable itself may be configured instead of its folder.
	if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
		p = filepath.Dir(p)
	}
	return p, nil
}

// validateShape checks for a "config" file and a subdirectory holding the
// bob archive among the direct children of dir. Names compare case-insensitively.
func validateShape(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", newResolutionError(ErrInvalidInstallShape, dir, "directory", err)
	}

	var configPath string
	hasArchive := false
	for _, e := range entries {
		if !e.IsDir() {
			if configPath == "" && strings.EqualFold(e.Name(), configFileName) {
				configPath = filepath.Join(dir, e.Name())
			}
			continue
		}
		if !hasArchive && containsArchive(filepath.Join(dir, e.Name())) {
			hasArchive = true
		}
	}

	switch {
	case configPath == "":
		return "", newResolutionError(ErrInvalidInstallShape, dir, configFileName, nil)
	case !hasArchive:
		return "", newResolutionError(ErrInvalidInstallShape, dir, "archive", nil)
	}
	return configPath, nil
}

func containsArchive(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(archivePattern, strings.ToLower(e.Name())); ok {
			return true
		}
	}
	return false
}

// buildEnvironment substitutes placeholders and returns the first missing key
// if any required value cannot be produced.
func buildEnvironment(dir string, cfg map[string]string) (*Environment, string) {
	for _, key := range []string{keyVersion, keyBuildID, keyJDK, keyJava, keyJar} {
		if cfg[key] == "" {
			return nil, key
		}
	}

	vars := map[string]string{
		keyResourcesPath: cfg[keyResourcesPath],
		keyBuildID:       cfg[keyBuildID],
	}

	jdk, missing := substitute(cfg[keyJDK], vars)
	if missing != "" {
		return nil, missing
	}
	jdk = absolutize(dir, jdk)
	vars[keyJDK] = jdk

	java, missing := substitute(cfg[keyJava], vars)
	if missing != "" {
		return nil, missing
	}
	jar, missing := substitute(cfg[keyJar], vars)
	if missing != "" {
		return nil, missing
	}

	return &Environment{
		InstallPath:    dir,
		Version:        cfg[keyVersion],
		BuildID:        cfg[keyBuildID],
		RuntimePath:    jdk,
		JavaExecutable: absolutize(dir, java),
		ArchivePath:    absolutize(dir, jar),
	}, ""
}

func absolutize(dir, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}
