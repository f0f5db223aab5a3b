package main

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dkoosis/dbuild/internal/build"
	"github.com/dkoosis/dbuild/internal/history"
	"github.com/dkoosis/dbuild/internal/materialize"
	"github.com/dkoosis/dbuild/internal/pipeline"
	"github.com/dkoosis/dbuild/internal/render"
	"github.com/dkoosis/dbuild/internal/runner"
	"github.com/dkoosis/dbuild/internal/toolchain"
	"github.com/dkoosis/dbuild/internal/tui"
	"github.com/dkoosis/dbuild/internal/watch"
)

type actionFlags struct {
	configuration string
	platform      string
	incremental   bool
	watch         bool
	tui           bool
}

var actionShort = map[build.Action]string{
	build.ActionBuild:   "Resolve dependencies and build the project",
	build.ActionBundle:  "Build and bundle the project for a platform",
	build.ActionClean:   "Remove build output",
	build.ActionResolve: "Fetch library dependencies",
	build.ActionRun:     "Run the built project with the engine",
}

func newActionCmds(a *app) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(build.Actions))
	for _, action := range build.Actions {
		action := action
		var f actionFlags
		c := &cobra.Command{
			Use:   string(action),
			Short: actionShort[action],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runAction(cmd, action, f)
			},
		}
		c.Flags().StringVarP(&f.configuration, "configuration", "c", string(build.Debug), "Build variant: debug or release")
		c.Flags().StringVarP(&f.platform, "platform", "p", string(build.PlatformCurrent), "Target platform")
		c.Flags().BoolVar(&f.incremental, "incremental", false, "Report whether results of the previous run are reused")
		c.Flags().BoolVarP(&f.watch, "watch", "w", false, "Run again whenever project files change")
		c.Flags().BoolVar(&f.tui, "tui", false, "Show output in an interactive viewer")
		cmds = append(cmds, c)
	}
	return cmds
}

func (a *app) runAction(cmd *cobra.Command, action build.Action, f actionFlags) error {
	configuration, err := build.ParseConfiguration(f.configuration)
	if err != nil {
		return err
	}
	platform, err := build.ParsePlatform(f.platform)
	if err != nil {
		return err
	}
	if err := a.setup(cmd, true); err != nil {
		return err
	}

	store, err := a.openHistory()
	if err != nil {
		return a.setupError(err)
	}
	defer store.Close()

	req := pipeline.Request{
		Descriptor:   build.Descriptor{Action: action, Configuration: configuration, Platform: platform},
		ProjectFile:  a.projectFile,
		WorkspaceDir: a.workspaceDir,
		Incremental:  f.incremental,
	}

	session := func(ctx context.Context, sink render.Sink) int {
		p := a.newPipeline(sink, store)
		state := &pipeline.BuildState{}
		code := p.Run(ctx, req, state).Summary.ExitCode
		if !f.watch {
			return code
		}
		return a.watch(ctx, p, req, state, code)
	}

	ctx := cmd.Context()
	if f.tui {
		code, err := tui.Run(ctx, a.theme(), session)
		a.exitCode = code
		if err != nil {
			a.exitCode = 1
			return err
		}
		return nil
	}
	a.exitCode = session(ctx, render.NewTerminal(a.stdout, a.theme()))
	return nil
}

func (a *app) newPipeline(sink render.Sink, store *history.Store) *pipeline.Pipeline {
	opts := []pipeline.Option{}
	if store.Enabled() {
		opts = append(opts, pipeline.WithRecorder(store))
	}
	return pipeline.New(a.logger, a.cfg,
		toolchain.NewResolver(a.logger),
		materialize.New(a.logger, runtime.GOOS),
		runner.New(a.logger),
		sink,
		opts...)
}

// watch re-runs req on every settled change until ctx is done and returns
// the exit code of the last run.
func (a *app) watch(ctx context.Context, p *pipeline.Pipeline, req pipeline.Request,
	state *pipeline.BuildState, code int) int {
	debounce := time.Duration(a.cfg.Watch.DebounceMillis) * time.Millisecond
	w, err := watch.New(a.logger, filepath.Dir(req.ProjectFile), debounce, a.cfg.Watch.Ignore...)
	if err != nil {
		a.logger.Error("watch unavailable", zap.Error(err))
		return code
	}
	defer w.Close()

	req.Incremental = true
	_ = w.Run(ctx, func(ctx context.Context, changed []string) {
		a.logger.Info("rebuilding", zap.Int("changed", len(changed)))
		code = p.Run(ctx, req, state).Summary.ExitCode
	})
	return code
}

func (a *app) openHistory() (*history.Store, error) {
	if !a.cfg.History.Enabled {
		return history.Open("")
	}
	path, err := a.cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}
