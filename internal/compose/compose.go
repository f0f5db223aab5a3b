// Package compose builds the command line for each build action.
//
// Compose is a pure function of its inputs apart from creating the bundle
// output directory for the bundle action.
package compose

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dkoosis/dbuild/internal/build"
	"github.com/dkoosis/dbuild/internal/settings"
	"github.com/dkoosis/dbuild/internal/toolchain"
)

// ErrNotBuilt is returned for the run action when no compiled project exists.
var ErrNotBuilt = errors.New("project has not been built")

const (
	bobMainClass     = "com.dynamo.bob.Bob"
	compiledProject  = "game.projectc"
	buildReportName  = "report.html"
	excludedFolders  = ".git,.internal,build,node_modules"
	notBuiltHintText = "Build the project first, for example with: dbuild build"
)

// Invocation is a fully composed process launch.
type Invocation struct {
	Executable string
	Args       []string
	Dir        string
}

// String renders the invocation for logs.
func (inv *Invocation) String() string {
	return strings.Join(append([]string{inv.Executable}, inv.Args...), " ")
}

// Options carries the per-project inputs of Compose.
type Options struct {
	// ProjectFile is the path of the project's game.project file.
	ProjectFile string
	Settings    settings.Provider
	// GOOS overrides the host operating system.
	GOOS string
	// Logger receives best-effort failures. Nil discards them.
	Logger *zap.Logger
}

// Compose returns the executable, argument vector and working directory for d.
func Compose(d build.Descriptor, env *toolchain.Environment, opts Options) (*Invocation, error) {
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	cfg := opts.Settings
	if cfg == nil {
		cfg = settings.Map{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	projectDir := filepath.Dir(opts.ProjectFile)

	if d.Action == build.ActionRun {
		return composeRun(projectDir, goos)
	}
	if env == nil {
		return nil, errors.New("compose: toolchain environment is required")
	}

	c := &composer{goos: goos, settings: cfg, configuration: d.Configuration}
	c.required(env, projectDir)

	switch d.Action {
	case build.ActionBuild:
		c.credentials()
		c.variant()
		c.textureCompression()
		c.args = append(c.args, "resolve", "build")

	case build.ActionBundle:
		platform, err := ResolvePlatform(d.Platform, goos)
		if err != nil {
			return nil, err
		}
		triple, _ := Triple(platform)
		bundleDir := BundleDir(projectDir, triple)
		if err := os.MkdirAll(bundleDir, 0o755); err != nil {
			// The build tool reports the unusable directory itself.
			logger.Debug("bundle directory not created", zap.String("dir", bundleDir), zap.Error(err))
		}

		c.credentials()
		c.add("--archive")
		c.add("--platform", triple)
		c.variant()
		c.textureCompression()
		c.add("--bundle-output", Escape(bundleDir, goos))
		c.add("--build-report-html", Escape(filepath.Join(bundleDir, buildReportName), goos))
		if cfg.Bool(settings.KeyLiveUpdate) {
			c.add("--liveupdate", "yes")
		}
		c.signing(platform)
		c.args = append(c.args, "resolve", "distclean", "build", "bundle")

	case build.ActionClean:
		c.args = append(c.args, "distclean")

	case build.ActionResolve:
		c.credentials()
		c.args = append(c.args, "resolve")

	default:
		return nil, errors.Newf("compose: unknown action %q", d.Action)
	}

	return &Invocation{
		Executable: env.JavaExecutable,
		Args:       c.args,
		Dir:        projectDir,
	}, nil
}

// composeRun launches the compiled engine against the compiled project.
func composeRun(projectDir, goos string) (*Invocation, error) {
	outDir := OutputDir(projectDir)
	descriptor := filepath.Join(outDir, compiledProject)
	if _, err := os.Stat(descriptor); err != nil {
		return nil, errors.WithHint(errors.Wrapf(ErrNotBuilt, "missing %s", descriptor), notBuiltHintText)
	}
	return &Invocation{
		Executable: filepath.Join(outDir, EngineBinary(goos)),
		Args:       []string{descriptor},
		Dir:        outDir,
	}, nil
}

type composer struct {
	goos          string
	settings      settings.Provider
	configuration build.Configuration
	args          []string
}

func (c *composer) add(args ...string) {
	c.args = append(c.args, args...)
}

// required adds the arguments every bob invocation starts with.
func (c *composer) required(env *toolchain.Environment, projectDir string) {
	dir := Escape(projectDir, c.goos)
	c.add("-cp", Escape(env.ArchivePath, c.goos), bobMainClass)
	c.add("--input", dir, "--root", dir)
	c.add("--exclude-build-folder", excludedFolders)
}

func (c *composer) credentials() {
	if email := c.settings.String(settings.KeyEmail); email != "" {
		c.add("--email", email)
	}
	if auth := c.settings.String(settings.KeyAuth); auth != "" {
		c.add("--auth", auth)
	}
}

func (c *composer) variant() {
	configuration := c.configuration
	if configuration == "" {
		configuration = build.Debug
	}
	c.add("--variant", string(configuration))
	if c.settings.Bool(settings.KeyWithSymbols) {
		c.add("--with-symbols")
	}
	if configuration == build.Release {
		c.add("--strip-executable")
	}
}

func (c *composer) textureCompression() {
	if c.settings.Bool(settings.KeyTextureCompression) {
		c.add("--texture-compression", "true")
	}
}

// signing adds mobile signing options that are configured; others are skipped.
func (c *composer) signing(platform build.Platform) {
	switch platform {
	case build.PlatformIOS:
		if id := c.settings.String(settings.KeyIOSIdentity); id != "" {
			c.add("--identity", id)
		}
		if profile := c.settings.String(settings.KeyIOSProvisioningProfile); profile != "" {
			c.add("--mobileprovisioning", Escape(profile, c.goos))
		}
	case build.PlatformAndroid:
		if keystore := c.settings.String(settings.KeyAndroidKeystore); keystore != "" {
			c.add("--keystore", Escape(keystore, c.goos))
		}
		if pass := c.settings.String(settings.KeyAndroidKeystorePass); pass != "" {
			c.add("--keystore-pass", pass)
		}
		if alias := c.settings.String(settings.KeyAndroidKeystoreAlias); alias != "" {
			c.add("--keystore-alias", alias)
		}
		if format := c.settings.String(settings.KeyAndroidBundleFormat); format != "" {
			c.add("--bundle-format", format)
		}
	}
}
