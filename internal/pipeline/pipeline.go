// Package pipeline runs one build action end to end: resolve the toolchain,
// compose the command, prepare runtime files, spawn, then classify and
// report every output line.
package pipeline

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkoosis/dbuild/internal/build"
	"github.com/dkoosis/dbuild/internal/compose"
	"github.com/dkoosis/dbuild/internal/diag"
	"github.com/dkoosis/dbuild/internal/history"
	"github.com/dkoosis/dbuild/internal/render"
	"github.com/dkoosis/dbuild/internal/runner"
	"github.com/dkoosis/dbuild/internal/settings"
	"github.com/dkoosis/dbuild/internal/sourcemap"
	"github.com/dkoosis/dbuild/internal/toolchain"
)

// AbortExitCode is reported when a run stops before spawning.
const AbortExitCode = 1

// Resolver produces a toolchain environment from an install path.
type Resolver interface {
	Resolve(installPath string) (*toolchain.Environment, error)
}

// Materializer prepares runtime binaries before a run action.
type Materializer interface {
	Ensure(env *toolchain.Environment, projectDir string) error
}

// Starter spawns processes.
type Starter interface {
	Start(ctx context.Context, inv *compose.Invocation) *runner.Process
}

// Recorder stores completed runs.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// BuildState carries results from one run to the next. The pipeline never
// keeps a reference to it between calls.
type BuildState struct {
	// LastResult describes when the last successful run finished.
	LastResult   string
	LastRunID    string
	LastExitCode int
	Runs         int
}

// Request selects what to run.
type Request struct {
	Descriptor  build.Descriptor
	ProjectFile string
	// WorkspaceDir is the root diagnostic paths are reported against.
	// Defaults to the project directory.
	WorkspaceDir string
	// Incremental reports reuse of the previous result when there is one.
	Incremental bool
}

// Result is the outcome of Run.
type Result struct {
	RunID   string
	Summary render.Summary
	// Err is set when the run aborted or the process could not be started.
	Err error
}

// Pipeline wires the components for repeated runs.
type Pipeline struct {
	logger       *zap.Logger
	settings     *settings.Config
	resolver     Resolver
	materializer Materializer
	starter      Starter
	sink         render.Sink
	recorder     Recorder
	goos         string
	now          func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder records each run.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithGOOS overrides the host operating system.
func WithGOOS(goos string) Option {
	return func(p *Pipeline) { p.goos = goos }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(logger *zap.Logger, cfg *settings.Config, resolver Resolver, materializer Materializer,
	starter Starter, sink render.Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:       logger,
		settings:     cfg,
		resolver:     resolver,
		materializer: materializer,
		starter:      starter,
		sink:         sink,
		goos:         runtime.GOOS,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes req once and updates state. Resolution and composition
// failures are reported to the sink and abort before anything is spawned.
func (p *Pipeline) Run(ctx context.Context, req Request, state *BuildState) Result {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID), zap.Stringer("task", req.Descriptor))
	started := p.now()
	projectDir := filepath.Dir(req.ProjectFile)

	if req.Incremental {
		if state != nil && state.LastResult != "" {
			p.sink.Note("Using last build results: " + state.LastResult)
		} else {
			p.sink.Note("No result from last build. Doing full build.")
		}
	}

	env, err := p.resolver.Resolve(p.settings.EditorPath)
	if err != nil {
		return p.abort(ctx, logger, runID, req, state, started, err)
	}

	inv, err := compose.Compose(req.Descriptor, env, compose.Options{
		ProjectFile: req.ProjectFile,
		Settings:    p.settings,
		GOOS:        p.goos,
		Logger:      logger,
	})
	if err != nil {
		return p.abort(ctx, logger, runID, req, state, started, err)
	}

	if req.Descriptor.Action == build.ActionRun {
		if err := p.materializer.Ensure(env, projectDir); err != nil {
			return p.abort(ctx, logger, runID, req, state, started, err)
		}
	}

	p.sink.Start(req.Descriptor, inv.String())
	logger.Info("spawning", zap.String("executable", inv.Executable), zap.String("dir", inv.Dir))

	classifier := diag.New(logger, p.settings.Patterns, diag.Options{
		Action:       req.Descriptor.Action,
		ProjectDir:   projectDir,
		WorkspaceDir: req.WorkspaceDir,
		Remapper:     sourcemap.NewCache(logger),
	})

	proc := p.starter.Start(ctx, inv)
	counts := &counter{}

	var wg sync.WaitGroup
	wg.Add(2)
	go p.drain(&wg, proc.Stdout(), diag.Stdout, classifier, counts)
	go p.drain(&wg, proc.Stderr(), diag.Stderr, classifier, counts)
	wg.Wait()
	code := proc.Wait()
	perr := proc.Err()
	switch {
	case errors.Is(perr, runner.ErrSpawn):
		logger.Debug("spawn failed", zap.Error(perr))
		p.sink.Failure(perr)
	case perr != nil:
		logger.Debug("process error", zap.Error(perr))
	}

	summary := render.Summary{
		Descriptor: req.Descriptor,
		ExitCode:   code,
		Errors:     counts.errors,
		Warnings:   counts.warnings,
		Duration:   p.now().Sub(started),
	}
	p.finish(ctx, logger, runID, req, state, started, summary)
	res := Result{RunID: runID, Summary: summary}
	if errors.Is(perr, runner.ErrSpawn) {
		res.Err = perr
	}
	return res
}

func (p *Pipeline) drain(wg *sync.WaitGroup, lines <-chan string, stream diag.Stream, c *diag.Classifier, counts *counter) {
	defer wg.Done()
	for line := range lines {
		ev := c.Classify(line, stream)
		counts.add(ev.Severity)
		p.sink.Event(ev)
	}
}

func (p *Pipeline) abort(ctx context.Context, logger *zap.Logger, runID string, req Request,
	state *BuildState, started time.Time, err error) Result {
	logger.Debug("run aborted", zap.Error(err))
	p.sink.Failure(err)

	summary := render.Summary{
		Descriptor: req.Descriptor,
		ExitCode:   AbortExitCode,
		Duration:   p.now().Sub(started),
	}
	p.finish(ctx, logger, runID, req, state, started, summary)
	return Result{RunID: runID, Summary: summary, Err: err}
}

func (p *Pipeline) finish(ctx context.Context, logger *zap.Logger, runID string, req Request,
	state *BuildState, started time.Time, s render.Summary) {
	if state != nil {
		state.Runs++
		state.LastRunID = runID
		state.LastExitCode = s.ExitCode
		if s.ExitCode == 0 {
			state.LastResult = p.now().Format("15:04:05 Mon Jan 2 2006")
		}
	}

	if p.recorder != nil {
		err := p.recorder.Record(ctx, history.Entry{
			RunID:         runID,
			StartedAt:     started,
			Project:       req.ProjectFile,
			Action:        string(s.Descriptor.Action),
			Configuration: string(s.Descriptor.Configuration),
			Platform:      string(s.Descriptor.Platform),
			ExitCode:      s.ExitCode,
			Errors:        s.Errors,
			Warnings:      s.Warnings,
			Duration:      s.Duration,
		})
		if err != nil {
			logger.Warn("history not recorded", zap.Error(err))
		}
	}

	p.sink.End(s)
}

type counter struct {
	mu       sync.Mutex
	errors   int
	warnings int
}

func (c *counter) add(s diag.Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch s {
	case diag.SeverityError:
		c.errors++
	case diag.SeverityWarning:
		c.warnings++
	}
}
