package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/danitzn/sb-frontend/internal/diagnostics"
	"github.com/danitzn/sb-frontend/internal/models"
)

// DiagnosticsController is the part of diagnostics.Controller the TUI drives
type DiagnosticsController interface {
	RunFullDiagnostics(ctx context.Context) ([]models.ProbeResult, error)
	TestSpecificEndpoint(ctx context.Context, url string) ([]models.ProbeResult, error)
	ClearResults()
	Results() []models.ProbeResult
	TargetURL() string
	SetTargetURL(url string)
	Busy() bool
	SetObserver(fn diagnostics.Observer)
}

type (
	resultsMsg struct {
		results []models.ProbeResult
	}
	runDoneMsg struct {
		err error
	}
)

// DiagnosticsModel is the interactive diagnostics view
type DiagnosticsModel struct {
	ctrl DiagnosticsController
	ctx  context.Context

	urlInput textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	results []models.ProbeResult
	running bool
	ready   bool
	err     error

	width  int
	height int
}

// NewDiagnosticsModel creates the diagnostics view for ctrl
func NewDiagnosticsModel(ctx context.Context, ctrl DiagnosticsController) DiagnosticsModel {
	ti := textinput.New()
	ti.Placeholder = "https://host/api/chat/cloud/"
	ti.SetValue(ctrl.TargetURL())
	ti.Prompt = ""
	ti.CharLimit = 2048
	ti.TextStyle = lipgloss.NewStyle().Foreground(palette.Text)
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = loadingStyle

	return DiagnosticsModel{
		ctrl:     ctrl,
		ctx:      ctx,
		urlInput: ti,
		spinner:  s,
		results:  ctrl.Results(),
	}
}

// Init initializes the model
func (m DiagnosticsModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles messages and updates the model
func (m DiagnosticsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentWidth := m.width - 4
		vpHeight := m.height - 12
		if vpHeight < 5 {
			vpHeight = 5
		}
		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.urlInput.Width = contentWidth - 10
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			if m.running {
				return m, nil
			}
			m.ctrl.SetTargetURL(m.urlInput.Value())
			m.start()
			return m, tea.Batch(m.runFull(), m.spinner.Tick)

		case "ctrl+e":
			if m.running {
				return m, nil
			}
			m.start()
			return m, tea.Batch(m.runEndpoint(m.urlInput.Value()), m.spinner.Tick)

		case "ctrl+l":
			if m.running {
				return m, nil
			}
			m.err = nil
			return m, m.clearResults()
		}

	case clearedMsg:
		m.results = m.ctrl.Results()
		m.updateViewport()

	case resultsMsg:
		m.results = msg.results
		m.updateViewport()
		m.viewport.GotoBottom()

	case runDoneMsg:
		m.running = m.ctrl.Busy()
		m.results = m.ctrl.Results()
		m.err = msg.err
		m.updateViewport()

	case spinner.TickMsg:
		if m.running {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if _, ok := msg.(tea.KeyMsg); ok && !m.running {
		m.urlInput, cmd = m.urlInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *DiagnosticsModel) start() {
	m.running = true
	m.err = nil
}

func (m DiagnosticsModel) runFull() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		_, err := ctrl.RunFullDiagnostics(ctx)
		return runDoneMsg{err: err}
	}
}

// clearResults runs off the event loop for the same reason as ChatModel.clear
func (m DiagnosticsModel) clearResults() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.ClearResults()
		return clearedMsg{}
	}
}

func (m DiagnosticsModel) runEndpoint(url string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		_, err := ctrl.TestSpecificEndpoint(ctx, url)
		return runDoneMsg{err: err}
	}
}

// View renders the TUI
func (m DiagnosticsModel) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	contentWidth := m.width - 4
	var sections []string

	sections = append(sections, headerStyle.Width(contentWidth).Render(lipgloss.JoinHorizontal(
		lipgloss.Center,
		titleStyle.Render("🔍 CORS diagnostics"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render("why can't the client reach the API?"),
	)))

	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(
		lipgloss.JoinHorizontal(lipgloss.Left, inputLabelStyle.Render("URL ›"), m.urlInput.View()),
	))

	body := m.viewport.View()
	if len(m.results) == 0 {
		body = hintStyle.Render("Press Enter to run the full diagnostics, or Ctrl+E to test only the endpoint.")
	}
	sections = append(sections, messagesAreaStyle.Width(contentWidth).Height(m.viewport.Height).Render(body))

	status := renderStatusBar(contentWidth, []shortcut{
		{"Enter", "Run all"},
		{"Ctrl+E", "Test endpoint"},
		{"Ctrl+L", "Clear"},
		{"Esc", "Quit"},
	})
	if m.running {
		status = m.spinner.View() + loadingStyle.Render(" Running probes...") + "\n" + status
	}
	sections = append(sections, status)

	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *DiagnosticsModel) updateViewport() {
	if !m.ready {
		return
	}

	cardWidth := m.viewport.Width - 2
	cards := make([]string, len(m.results))
	for i, r := range m.results {
		cards[i] = renderResultCard(r, cardWidth)
	}
	m.viewport.SetContent(strings.Join(cards, "\n"))
}

func renderResultCard(r models.ProbeResult, width int) string {
	color := palette.StatusColor(r.Status)
	icon := lipgloss.NewStyle().Foreground(color).Bold(true).Render(r.Status.Icon())

	headline := icon + " " + resultNameStyle.Render(r.Name)
	if r.ElapsedMs != nil {
		headline += resultDetailStyle.Render(fmt.Sprintf("  %dms", *r.ElapsedMs))
	}

	lines := []string{headline, r.Message}
	if r.Details != "" {
		lines = append(lines, resultDetailStyle.Render(r.Details))
	}

	return resultCardStyle.
		BorderForeground(color).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

// RunDiagnostics starts the diagnostics TUI
func RunDiagnostics(ctx context.Context, ctrl DiagnosticsController) error {
	p, detach := newDiagnosticsProgram(ctx, ctrl, tea.WithAltScreen())
	defer detach()

	_, err := p.Run()
	return err
}

func newDiagnosticsProgram(ctx context.Context, ctrl DiagnosticsController, progOpts ...tea.ProgramOption) (*tea.Program, func()) {
	progOpts = append(progOpts, tea.WithContext(ctx))
	p := tea.NewProgram(NewDiagnosticsModel(ctx, ctrl), progOpts...)

	ctrl.SetObserver(func(results []models.ProbeResult) {
		p.Send(resultsMsg{results: results})
	})
	return p, func() { ctrl.SetObserver(nil) }
}
