// Package tui shows a run's decorated output in a scrolling viewport.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dkoosis/dbuild/internal/build"
	"github.com/dkoosis/dbuild/internal/diag"
	"github.com/dkoosis/dbuild/internal/render"
)

// RunFunc performs the work whose output is shown. It must report through
// sink and return the exit code.
type RunFunc func(ctx context.Context, sink render.Sink) int

type lineMsg string
type statusMsg string

// doneMsg is delivered once the run has returned and its output is drained.
type doneMsg struct{}

// Sink forwards run output to the program as messages.
type Sink struct {
	ctx     context.Context
	fmt     *render.Terminal
	updates chan<- tea.Msg
}

var _ render.Sink = (*Sink)(nil)

func (s *Sink) send(msg tea.Msg) {
	select {
	case s.updates <- msg:
	case <-s.ctx.Done():
	}
}

func (s *Sink) Start(d build.Descriptor, command string) {
	s.send(statusMsg(fmt.Sprintf("%s (%s, %s) running", render.Label(d.Action), d.Configuration, d.Platform)))
	if command != "" {
		s.send(lineMsg(command))
	}
}

func (s *Sink) Note(msg string) { s.send(lineMsg(msg)) }

func (s *Sink) Event(ev diag.Event) { s.send(lineMsg(s.fmt.FormatEvent(ev))) }

func (s *Sink) Failure(err error) { s.send(lineMsg(render.Explain(err))) }

func (s *Sink) End(sum render.Summary) { s.send(statusMsg(s.fmt.FormatSummary(sum))) }

// Run starts fn and displays its output until the user quits. ctrl+c
// cancels fn; q leaves once fn has returned.
func Run(parent context.Context, theme render.Theme, fn RunFunc) (int, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	updates := make(chan tea.Msg, 256)
	sink := &Sink{ctx: parent, fmt: render.NewTerminal(nil, theme), updates: updates}

	result := make(chan int, 1)
	go func() {
		result <- fn(ctx, sink)
		close(updates)
	}()

	m := newModel(theme, updates, cancel)
	// The program outlives ctx so cancelled output can still be read.
	_, err := tea.NewProgram(m, tea.WithContext(parent), tea.WithAltScreen()).Run()
	cancel()
	go func() {
		for range updates {
		}
	}()
	return <-result, err
}

type model struct {
	theme    render.Theme
	updates  <-chan tea.Msg
	cancel   context.CancelFunc
	viewport viewport.Model
	lines    []string
	status   string
	ready    bool
	done     bool
}

func newModel(theme render.Theme, updates <-chan tea.Msg, cancel context.CancelFunc) model {
	return model{
		theme:    theme,
		updates:  updates,
		cancel:   cancel,
		viewport: viewport.New(0, 0),
		status:   "starting",
	}
}

func (m model) Init() tea.Cmd {
	return m.listen()
}

func (m model) listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.updates
		if !ok {
			return doneMsg{}
		}
		return msg
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.done {
				return m, tea.Quit
			}
			m.cancel()
			m.status = "cancelling"
		case "q", "esc":
			if m.done {
				return m, tea.Quit
			}
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 2
		m.ready = true
		m.refresh()
	case lineMsg:
		m.lines = append(m.lines, string(msg))
		m.refresh()
		return m, m.listen()
	case statusMsg:
		m.status = string(msg)
		return m, m.listen()
	case doneMsg:
		m.done = true
	}
	return m, nil
}

func (m *model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	if atBottom || !m.ready {
		m.viewport.GotoBottom()
	}
}

func (m model) View() string {
	bar := m.status
	if m.done {
		bar += m.theme.Muted.Render("  q: quit")
	} else {
		bar += m.theme.Muted.Render("  ctrl+c: cancel")
	}
	return m.viewport.View() + "\n" + lipgloss.NewStyle().Bold(true).Render(bar)
}
