package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/dkoosis/dbuild/internal/project"
	"github.com/dkoosis/dbuild/internal/render"
	"github.com/dkoosis/dbuild/internal/settings"
	"github.com/dkoosis/dbuild/internal/version"
)

// globalFlags are shared by every sub-command.
type globalFlags struct {
	project    string
	editorPath string
	theme      string
	noColor    bool
	debug      bool
	history    bool
}

// app carries state from flag parsing into the commands.
type app struct {
	stdout io.Writer
	stderr io.Writer
	getwd  func() (string, error)
	getenv func(string) string
	// userConfigDir overrides os.UserConfigDir for settings lookup.
	userConfigDir string

	flags    globalFlags
	logger   *zap.Logger
	cfg      *settings.Config
	exitCode int

	projectFile  string
	workspaceDir string
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dbuild",
		Short:         "Build, bundle and run Defold projects",
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.project, "project", "", "game.project file or directory to search (default: search the working directory)")
	pf.StringVar(&a.flags.editorPath, "editor-path", "", "Defold editor installation (overrides "+settings.EnvEditorPath+")")
	pf.StringVar(&a.flags.theme, "theme", "", "Theme: default, orca, mono")
	pf.BoolVar(&a.flags.noColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&a.flags.debug, "debug", false, "Enable debug logging on stderr")
	pf.BoolVar(&a.flags.history, "history", false, "Record this run in the history database")

	for _, c := range newActionCmds(a) {
		root.AddCommand(c)
	}
	root.AddCommand(newEnvCmd(a), newHistoryCmd(a))
	return root
}

// setup locates the project and loads settings. requireProject controls
// whether a missing game.project is an error.
func (a *app) setup(cmd *cobra.Command, requireProject bool) error {
	wd, err := a.getwd()
	if err != nil {
		return a.setupError(errors.Wrap(err, "determine working directory"))
	}

	if err := a.locateProject(wd); err != nil {
		if requireProject || !errors.Is(err, project.ErrNotFound) {
			return a.setupError(err)
		}
	}

	projectDir := ""
	if a.projectFile != "" {
		projectDir = filepath.Dir(a.projectFile)
	}

	// Settings are needed to know whether debug logging is on.
	cfg, err := settings.Load(zap.NewNop(), settings.LoadOptions{
		ProjectDir:    projectDir,
		UserConfigDir: a.userConfigDir,
		Getenv:        a.getenv,
	})
	if err != nil {
		return a.setupError(err)
	}
	a.applyFlags(cmd, cfg)
	a.cfg = cfg
	a.logger = newLogger(a.stderr, cfg.Debug)

	a.logger.Debug("configured",
		zap.String("project", a.projectFile),
		zap.String("workspace", a.workspaceDir),
		zap.String("settings", cfg.Source),
		zap.String("editor_path", cfg.EditorPath))
	return nil
}

func (a *app) locateProject(wd string) error {
	target := a.flags.project
	if target == "" {
		target = wd
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(wd, target)
	}

	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		a.projectFile = target
	} else {
		found, err := project.Find(target)
		if err != nil {
			return err
		}
		a.projectFile = found
	}

	// Paths are reported relative to the working directory when the project
	// lives inside it.
	a.workspaceDir = filepath.Dir(a.projectFile)
	if rel, err := filepath.Rel(wd, a.projectFile); err == nil && !strings.HasPrefix(rel, "..") {
		a.workspaceDir = wd
	}
	return nil
}

// applyFlags gives explicitly set flags precedence over settings.
func (a *app) applyFlags(cmd *cobra.Command, cfg *settings.Config) {
	flags := cmd.Flags()
	if flags.Changed("editor-path") {
		cfg.EditorPath = a.flags.editorPath
	}
	if flags.Changed("theme") {
		cfg.Theme = a.flags.theme
	}
	if flags.Changed("no-color") {
		cfg.NoColor = a.flags.noColor
	}
	if flags.Changed("debug") {
		cfg.Debug = a.flags.debug
	}
	if flags.Changed("history") {
		cfg.History.Enabled = a.flags.history
	}
}

// theme picks the render theme, falling back to mono without color.
func (a *app) theme() render.Theme {
	if a.cfg.NoColor {
		return render.MonoTheme()
	}
	return render.ThemeByName(a.cfg.Theme)
}

func (a *app) setupError(err error) error {
	a.exitCode = 1
	return err
}

// fail prints a one-line explanation of err.
func (a *app) fail(err error) {
	fmt.Fprintf(a.stderr, "dbuild: %s\n", render.Explain(err))
}

// newLogger writes console-encoded logs to w at warn, or debug when enabled.
func newLogger(w io.Writer, debug bool) *zap.Logger {
	level := zapcore.WarnLevel
	if debug {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if isTTYWriter(w) {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
