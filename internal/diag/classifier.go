// Package diag classifies build and engine output lines into diagnostics and
// rewrites their source locations to workspace-relative, source-mapped paths.
package diag

import (
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dkoosis/dbuild/internal/build"
	"github.com/dkoosis/dbuild/internal/sourcemap"
)

// Stream identifies which output stream a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Event is one classified output line.
type Event struct {
	Stream   Stream
	Severity Severity
	// Pattern is the name of the matching pattern, empty if none matched.
	Pattern string
	Raw     string
	// Text is Raw with its source location rewritten.
	Text     string
	File     string
	Line     int
	Message  string
	Remapped bool
}

// Remapper resolves compiled positions to original source positions.
type Remapper interface {
	OriginalPosition(compiledPath string, line, column int) (sourcemap.Position, bool)
}

// Options scopes a Classifier to one run.
type Options struct {
	Action build.Action
	// ProjectDir is the directory holding game.project; resource paths such
	// as /main/main.script are resolved against it.
	ProjectDir string
	// WorkspaceDir is the root reported paths are relative to. Defaults to ProjectDir.
	WorkspaceDir string
	// Remapper may be nil to disable source maps.
	Remapper Remapper
}

// Classifier turns raw lines into Events. It holds per-run state and must
// not be reused across runs.
type Classifier struct {
	logger   *zap.Logger
	patterns []compiledPattern
	opts     Options
}

// New compiles patterns for one run. Patterns that fail to compile are
// logged and skipped.
func New(logger *zap.Logger, patterns []Pattern, opts Options) *Classifier {
	if opts.WorkspaceDir == "" {
		opts.WorkspaceDir = opts.ProjectDir
	}
	return &Classifier{
		logger:   logger,
		patterns: compilePatterns(logger, patterns),
		opts:     opts,
	}
}

// Classify returns the Event for one line from stream.
func (c *Classifier) Classify(line string, stream Stream) Event {
	ev := Event{Stream: stream, Raw: line, Text: line}

	for _, p := range c.patterns {
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		switch p.Name {
		case PatternBuild, PatternRun:
			if sev := ParseSeverity(group(m, p.Severity)); sev != SeverityUnknown {
				ev.Pattern = p.Name
				ev.Severity = sev
				ev.Message = group(m, p.Message)
				c.locate(&ev, group(m, p.File), group(m, p.Line))
				return ev
			}
		}
		// First match decides, even when it falls through to defaults.
		break
	}

	ev.Severity = c.streamDefault(stream)
	return ev
}

func (c *Classifier) streamDefault(stream Stream) Severity {
	if stream == Stderr && c.opts.Action != build.ActionRun {
		return SeverityError
	}
	return SeverityUnknown
}

// locate fills File and Line, rewriting the "file:line" text to the original
// source when a source map covers it and to the workspace-relative compiled
// file otherwise.
func (c *Classifier) locate(ev *Event, file, lineText string) {
	if file == "" {
		return
	}
	line, err := strconv.Atoi(lineText)
	if err != nil {
		return
	}

	compiled := c.absolute(file)
	ev.File = c.relative(compiled)
	ev.Line = line

	if c.opts.Remapper != nil {
		if pos, ok := c.opts.Remapper.OriginalPosition(compiled, line, 0); ok {
			ev.File = c.relative(pos.Source)
			ev.Line = pos.Line
			ev.Remapped = true
		}
	}

	original := file + ":" + lineText
	if strings.Contains(ev.Text, original) {
		ev.Text = strings.Replace(ev.Text, original, ev.File+":"+strconv.Itoa(ev.Line), 1)
	} else {
		ev.Text = strings.Replace(ev.Text, file, ev.File, 1)
	}
}

// absolute resolves a reported path against the project directory. Paths
// already inside the project are kept.
func (c *Classifier) absolute(file string) string {
	p := filepath.FromSlash(file)
	if filepath.IsAbs(p) && c.opts.ProjectDir != "" {
		if rel, err := filepath.Rel(c.opts.ProjectDir, p); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.Clean(p)
		}
	}
	return filepath.Join(c.opts.ProjectDir, p)
}

func (c *Classifier) relative(p string) string {
	rel, err := filepath.Rel(c.opts.WorkspaceDir, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}
