// Package render writes run progress and classified output lines to a
// terminal or any other io.Writer.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dkoosis/dbuild/internal/build"
	"github.com/dkoosis/dbuild/internal/diag"
)

// Summary describes a finished run.
type Summary struct {
	Descriptor build.Descriptor
	ExitCode   int
	Errors     int
	Warnings   int
	Duration   time.Duration
}

// Sink receives everything a run reports. Implementations must be safe for
// concurrent use; stdout and stderr events arrive from separate goroutines.
type Sink interface {
	Start(d build.Descriptor, command string)
	Note(msg string)
	Event(ev diag.Event)
	Failure(err error)
	End(s Summary)
}

// Terminal renders to a writer with a Theme.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	theme Theme
}

// NewTerminal creates a terminal sink.
func NewTerminal(w io.Writer, theme Theme) *Terminal {
	return &Terminal{w: w, theme: theme}
}

// Label is the display name of an action, e.g. "Bundle".
func Label(a build.Action) string {
	// A Caser keeps state between calls.
	return cases.Title(language.English).String(string(a))
}

func (t *Terminal) Start(d build.Descriptor, command string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	head := fmt.Sprintf("%s %s (%s, %s)", t.theme.Icons.Start, Label(d.Action), d.Configuration, d.Platform)
	fmt.Fprintln(t.w, t.theme.Primary.Render(head))
	if command != "" {
		fmt.Fprintln(t.w, t.theme.Muted.Render(command))
	}
}

func (t *Terminal) Note(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, msg)
}

// Event writes the rewritten line with severity emphasis.
func (t *Terminal) Event(ev diag.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, t.FormatEvent(ev))
}

// FormatEvent renders one event without a trailing newline.
func (t *Terminal) FormatEvent(ev diag.Event) string {
	style, icon := t.theme.SeverityStyle(ev.Severity)
	if icon == "" {
		return ev.Text
	}
	return style.Render(icon + " " + ev.Text)
}

// Failure writes a one-line explanation of an aborted run.
func (t *Terminal) Failure(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, t.theme.Error.Render(t.theme.Icons.Fail+" "+Explain(err)))
}

// Explain renders err and its hints on a single line.
func Explain(err error) string {
	msg := err.Error()
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		msg += ". " + strings.Join(hints, " ")
	}
	return strings.Join(strings.Fields(msg), " ")
}

func (t *Terminal) End(s Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, t.FormatSummary(s))
}

// FormatSummary renders the closing line of a run.
func (t *Terminal) FormatSummary(s Summary) string {
	label := Label(s.Descriptor.Action)
	counts := fmt.Sprintf("%d error(s), %d warning(s), %s", s.Errors, s.Warnings, s.Duration.Round(time.Millisecond))
	if s.ExitCode == 0 {
		return t.theme.Success.Render(fmt.Sprintf("%s %s complete", t.theme.Icons.Pass, label)) +
			" " + t.theme.Muted.Render(counts)
	}
	return t.theme.Error.Render(fmt.Sprintf("%s %s failed (exit %d)", t.theme.Icons.Fail, label, s.ExitCode)) +
		" " + t.theme.Muted.Render(counts)
}
