// Package runner spawns a composed invocation and exposes its output as
// separate line streams plus a single completion signal.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dkoosis/dbuild/internal/compose"
)

const (
	// DefaultSpawnFailureCode is reported when the executable cannot be started.
	DefaultSpawnFailureCode = 127

	// DefaultMaxLineLength bounds a single output line. Longer lines are
	// truncated.
	DefaultMaxLineLength = 1024 * 1024

	lineChannelSize = 64
	readBufferSize  = 64 * 1024
)

// ErrSpawn marks errors from processes that never started.
var ErrSpawn = errors.New("process could not be started")

// Runner starts processes.
type Runner struct {
	logger           *zap.Logger
	spawnFailureCode int
	maxLineLength    int
}

// Option configures a Runner.
type Option func(*Runner)

// WithSpawnFailureCode sets the exit code reported when spawning fails.
func WithSpawnFailureCode(code int) Option {
	return func(r *Runner) { r.spawnFailureCode = code }
}

// WithMaxLineLength sets the longest line delivered; the excess is dropped.
func WithMaxLineLength(n int) Option {
	return func(r *Runner) { r.maxLineLength = n }
}

// New creates a Runner.
func New(logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger:           logger,
		spawnFailureCode: DefaultSpawnFailureCode,
		maxLineLength:    DefaultMaxLineLength,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Process is a running (or failed to start) invocation.
//
// Callers must drain both Stdout and Stderr; a reader blocks the child once
// its channel fills.
type Process struct {
	logger     *zap.Logger
	cmd        *exec.Cmd
	executable string

	stdout chan string
	stderr chan string
	done   chan struct{}

	exitCode int
	err      error

	closeOnce sync.Once
}

// Stdout yields complete stdout lines in order; it is closed at EOF.
func (p *Process) Stdout() <-chan string { return p.stdout }

// Stderr yields complete stderr lines in order; it is closed at EOF.
func (p *Process) Stderr() <-chan string { return p.stderr }

// Done is closed once the process has exited and both streams are drained.
func (p *Process) Done() <-chan struct{} { return p.done }

// ExitCode is valid after Done is closed.
func (p *Process) ExitCode() int { return p.exitCode }

// Err holds the spawn or wait error, if any. Valid after Done is closed.
func (p *Process) Err() error { return p.err }

// Wait blocks until the process completes and returns its exit code.
func (p *Process) Wait() int {
	<-p.done
	return p.exitCode
}

// Close asks the process group to terminate. It does not wait for exit.
func (p *Process) Close() {
	p.closeOnce.Do(func() {
		if p.cmd == nil || p.cmd.Process == nil {
			return
		}
		if err := terminateProcessGroup(p.cmd); err != nil {
			p.logger.Debug("terminate failed", zap.Error(err))
		}
	})
}

// Start spawns inv. Cancelling ctx has the same effect as Close.
func (r *Runner) Start(ctx context.Context, inv *compose.Invocation) *Process {
	p := &Process{
		logger:     r.logger,
		executable: inv.Executable,
		stdout:     make(chan string, lineChannelSize),
		stderr:     make(chan string, lineChannelSize),
		done:       make(chan struct{}),
	}

	cmd := exec.Command(inv.Executable, inv.Args...)
	cmd.Dir = inv.Dir
	setProcessGroup(cmd)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return r.failed(p, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return r.failed(p, err)
	}

	r.logger.Debug("starting process",
		zap.String("executable", inv.Executable),
		zap.Strings("args", inv.Args),
		zap.String("dir", inv.Dir))

	if err := cmd.Start(); err != nil {
		return r.failed(p, err)
	}
	p.cmd = cmd

	var wg sync.WaitGroup
	wg.Add(2)
	go r.readLines(&wg, stdoutPipe, p.stdout, "stdout")
	go r.readLines(&wg, stderrPipe, p.stderr, "stderr")

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.Close()
		case <-stop:
		}
	}()

	go func() {
		// Pipes must be fully read before Wait closes them.
		wg.Wait()
		werr := cmd.Wait()
		close(stop)
		p.exitCode = r.exitCode(werr)
		if werr != nil {
			p.err = werr
		}
		r.logger.Debug("process exited", zap.Int("exit_code", p.exitCode))
		close(p.done)
	}()

	return p
}

func (r *Runner) failed(p *Process, err error) *Process {
	r.logger.Debug("spawn failed", zap.Error(err))
	p.err = errors.WithHint(
		errors.Mark(errors.Wrapf(err, "start %s", p.executable), ErrSpawn),
		"Check that the executable exists and is runnable.")
	p.exitCode = r.spawnFailureCode
	close(p.stdout)
	close(p.stderr)
	close(p.done)
	return p
}

// readLines forwards complete lines from rd to out. A trailing line without
// a terminator is delivered at EOF. Lines longer than maxLineLength are
// truncated and reading continues with the next line.
func (r *Runner) readLines(wg *sync.WaitGroup, rd io.Reader, out chan<- string, stream string) {
	defer wg.Done()
	defer close(out)

	br := bufio.NewReaderSize(rd, min(readBufferSize, max(r.maxLineLength, 16)))
	var (
		line      []byte
		truncated bool
	)
	for {
		chunk, err := br.ReadSlice('\n')
		complete := err == nil
		chunk = bytes.TrimSuffix(chunk, []byte{'\n'})
		if room := r.maxLineLength - len(line); len(chunk) > room {
			line = append(line, chunk[:max(room, 0)]...)
			truncated = true
		} else {
			line = append(line, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if complete || len(line) > 0 {
			if truncated {
				r.logger.Warn("output line truncated", zap.String("stream", stream), zap.Int("limit", r.maxLineLength))
			}
			out <- string(bytes.TrimSuffix(line, []byte{'\r'}))
		}
		line, truncated = line[:0], false

		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.logger.Warn("output read error", zap.String("stream", stream), zap.Error(err))
				// Keep the child from blocking on a full pipe.
				_, _ = io.Copy(io.Discard, rd)
			}
			return
		}
	}
}

func (r *Runner) exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code, ok := exitCodeFromError(exitErr); ok {
			return code
		}
		return 1
	}
	if errors.Is(err, exec.ErrNotFound) {
		return r.spawnFailureCode
	}
	return 1
}
