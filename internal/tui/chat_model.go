package tui

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/danitzn/sb-frontend/internal/chat"
	apierrors "github.com/danitzn/sb-frontend/internal/errors"
	"github.com/danitzn/sb-frontend/internal/models"
	"github.com/danitzn/sb-frontend/internal/render"
)

// ChatController is the part of chat.Controller the TUI drives
type ChatController interface {
	Submit(ctx context.Context, text string) (models.Message, error)
	TestConnection(ctx context.Context) (models.Message, error)
	Clear()
	Transcript() []models.Message
	Busy() bool
	Endpoint() string
	SetObserver(fn chat.Observer)
}

// copyToClipboard is replaced in tests
var copyToClipboard = clipboard.WriteAll

type (
	// transcriptMsg carries a snapshot pushed by the controller
	transcriptMsg struct {
		messages []models.Message
	}
	// settledMsg is sent when a Submit or TestConnection call returns
	settledMsg struct {
		reply models.Message
		err   error
	}
	// clearedMsg is sent once a clear has gone through the controller
	clearedMsg struct{}
)

// ChatModel is the interactive chat view
type ChatModel struct {
	ctrl       ChatController
	ctx        context.Context
	renderOpts render.Options

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	messages []models.Message
	loading  bool
	ready    bool
	err      error
	feedback string

	width  int
	height int
}

// NewChatModel creates the chat view for ctrl
func NewChatModel(ctx context.Context, ctrl ChatController, opts render.Options) ChatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about products, prices, store hours..."
	ti.CharLimit = 2000
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(palette.Text)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(palette.TextDim)
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return ChatModel{
		ctrl:       ctrl,
		ctx:        ctx,
		renderOpts: opts,
		input:      ti,
		spinner:    s,
		messages:   ctrl.Transcript(),
	}
}

// Init initializes the model
func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles messages and updates the model
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3
		inputHeight := 4
		statusHeight := 2
		vpHeight := m.height - headerHeight - inputHeight - statusHeight - 2
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.input.Width = contentWidth - 8
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.loading {
				return m, nil
			}
			if text == "/quit" || text == "/exit" {
				return m, tea.Quit
			}
			m.input.Reset()
			m.startRequest()
			return m, tea.Batch(m.submit(text), m.spinner.Tick)

		case "ctrl+t":
			if m.loading {
				return m, nil
			}
			m.startRequest()
			return m, tea.Batch(m.testConnection(), m.spinner.Tick)

		case "ctrl+l":
			m.err = nil
			m.feedback = ""
			return m, m.clear()

		case "ctrl+y":
			m.copyLastReply()
			return m, nil
		}

	case transcriptMsg:
		m.messages = msg.messages
		m.updateViewport()
		m.viewport.GotoBottom()

	case clearedMsg:
		m.messages = m.ctrl.Transcript()
		m.updateViewport()

	case settledMsg:
		m.loading = m.ctrl.Busy()
		m.messages = m.ctrl.Transcript()
		if msg.err != nil && !isNoop(msg.err) {
			m.err = msg.err
		}
		m.updateViewport()
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	// Only key presses reach the input so escape sequences don't leak into it
	if _, ok := msg.(tea.KeyMsg); ok && !m.loading {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func isNoop(err error) bool {
	return err == apierrors.ErrBusy || err == apierrors.ErrEmptyMessage
}

func (m *ChatModel) startRequest() {
	m.loading = true
	m.err = nil
	m.feedback = ""
}

func (m ChatModel) submit(text string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		reply, err := ctrl.Submit(ctx, text)
		return settledMsg{reply: reply, err: err}
	}
}

func (m ChatModel) testConnection() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		reply, err := ctrl.TestConnection(ctx)
		return settledMsg{reply: reply, err: err}
	}
}

// clear runs off the event loop: the controller notifies its observer,
// which sends to the program and would block inside Update.
func (m ChatModel) clear() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Clear()
		return clearedMsg{}
	}
}

func (m *ChatModel) copyLastReply() {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Sender == models.SenderBot {
			if err := copyToClipboard(m.messages[i].Text); err != nil {
				m.err = err
				return
			}
			m.feedback = "Copied last reply to clipboard"
			return
		}
	}
	m.feedback = "Nothing to copy yet"
}

// View renders the TUI
func (m ChatModel) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	contentWidth := m.width - 4
	var sections []string

	endpoint := runewidth.Truncate(m.ctrl.Endpoint(), max(contentWidth-24, 10), "…")
	header := headerStyle.Width(contentWidth).Render(lipgloss.JoinHorizontal(
		lipgloss.Center,
		titleStyle.Render("🛒 Store Assistant"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(endpoint),
	))
	sections = append(sections, header)

	body := m.viewport.View()
	if len(m.messages) == 0 {
		body = m.renderWelcome()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(body))

	var inputContent string
	if m.loading {
		inputContent = m.spinner.View() + loadingStyle.Render(" Waiting for the assistant...")
	} else {
		inputContent = lipgloss.JoinHorizontal(lipgloss.Left, inputLabelStyle.Render("You ›"), m.input.View())
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	sections = append(sections, renderStatusBar(contentWidth, []shortcut{
		{"Enter", "Send"},
		{"Ctrl+T", "Test connection"},
		{"Ctrl+L", "Clear"},
		{"Ctrl+Y", "Copy reply"},
		{"Esc", "Quit"},
	}))

	if m.feedback != "" {
		sections = append(sections, feedbackStyle.Render(m.feedback))
	}
	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ChatModel) renderWelcome() string {
	width := m.viewport.Width - 4
	content := lipgloss.JoinVertical(
		lipgloss.Center,
		welcomeTitleStyle.Width(width).Render("Welcome to the store assistant"),
		"",
		welcomeStyle.Width(width).Render("Type a question below, or press Ctrl+T to check the connection"),
	)

	top := (m.viewport.Height - lipgloss.Height(content)) / 2
	if top < 0 {
		top = 0
	}
	return strings.Repeat("\n", top) + content
}

// updateViewport refreshes the viewport content with styled messages
func (m *ChatModel) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6

	for i, msg := range m.messages {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.IsUser() {
			content.WriteString(userLabelStyle.Render("● You") + "\n")
			content.WriteString(userBubbleStyle.Width(bubbleWidth).Render(msg.Text))
		} else {
			content.WriteString(botLabelStyle.Render("🤖 Assistant") + "\n")
			if chat.IsFailureText(msg.Text) {
				content.WriteString(botErrorBubbleStyle.Width(bubbleWidth).Render(msg.Text))
			} else {
				rendered := render.Reply(msg.Text, m.renderOpts.WithWidth(bubbleWidth-4))
				content.WriteString(botBubbleStyle.Width(bubbleWidth).Render(rendered))
			}
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

type shortcut struct {
	key  string
	desc string
}

func renderStatusBar(width int, shortcuts []shortcut) string {
	items := make([]string, len(shortcuts))
	for i, s := range shortcuts {
		items[i] = statusKeyStyle.Render(s.key) + statusDescStyle.Render(" "+s.desc)
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// RunChat starts the chat TUI. The controller's observer is pointed at the
// program so optimistic user messages appear before the reply arrives.
func RunChat(ctx context.Context, ctrl ChatController, opts render.Options) error {
	p, detach := newChatProgram(ctx, ctrl, opts, tea.WithAltScreen())
	defer detach()

	_, err := p.Run()
	return err
}

// newChatProgram builds the program and points the controller's observer at
// it. detach removes the observer.
func newChatProgram(ctx context.Context, ctrl ChatController, opts render.Options, progOpts ...tea.ProgramOption) (*tea.Program, func()) {
	progOpts = append(progOpts, tea.WithContext(ctx))
	p := tea.NewProgram(NewChatModel(ctx, ctrl, opts), progOpts...)

	ctrl.SetObserver(func(msgs []models.Message) {
		p.Send(transcriptMsg{messages: msgs})
	})
	return p, func() { ctrl.SetObserver(nil) }
}
