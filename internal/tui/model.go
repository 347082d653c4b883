// Package tui is the terminal front end: a chat transcript, an input line and
// a handful of slash commands around one chat.Session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/chat"
	"github.com/runcoach-ai/runcoach/internal/profile"
)

// Backend is what the terminal needs from the service besides chatting.
type Backend interface {
	LoadProfile(ctx context.Context) (*profile.Profile, error)
	SaveProfile(ctx context.Context, p profile.Profile) error
	QuickQuestions(ctx context.Context) ([]string, error)
}

type (
	sendDoneMsg     struct{ err error }
	resetDoneMsg    struct{ err error }
	profileSavedMsg struct{ err error }

	profileLoadedMsg struct {
		profile *profile.Profile
		err     error
	}
	questionsLoadedMsg struct {
		questions []string
		err       error
	}
)

type Model struct {
	ctx     context.Context
	session *chat.Session
	backend Backend
	logger  *zap.Logger

	profile   profile.Profile
	questions []string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	ready    bool
	width    int
	height   int

	pending      bool // a send or reset is in flight
	showThinking bool
	confirmReset bool
	notice       string
}

func NewModel(ctx context.Context, session *chat.Session, backend Backend, logger *zap.Logger) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask your coach anything, or /help"
	ti.CharLimit = 2000
	ti.Prompt = "› "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = noticeStyle

	return Model{
		ctx:     ctx,
		session: session,
		backend: backend,
		logger:  logger.With(zap.String("module", "tui")),
		profile: profile.Default(),
		input:   ti,
		spinner: sp,
		width:   100,
		height:  30,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.loadProfile(),
		m.loadQuestions(),
	)
}

func (m Model) loadProfile() tea.Cmd {
	return func() tea.Msg {
		p, err := m.backend.LoadProfile(m.ctx)
		return profileLoadedMsg{profile: p, err: err}
	}
}

func (m Model) loadQuestions() tea.Cmd {
	return func() tea.Msg {
		qs, err := m.backend.QuickQuestions(m.ctx)
		return questionsLoadedMsg{questions: qs, err: err}
	}
}

func (m Model) send(text string) tea.Cmd {
	session, ctx := m.session, m.ctx
	snapshot := m.profile.Clone()
	return func() tea.Msg {
		return sendDoneMsg{err: session.SendUserMessage(ctx, text, &snapshot)}
	}
}

func (m Model) reset() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return resetDoneMsg{err: session.ResetSession(ctx)}
	}
}

func (m Model) saveProfile() tea.Cmd {
	backend, ctx, p := m.backend, m.ctx, m.profile.Clone()
	return func() tea.Msg {
		return profileSavedMsg{err: backend.SaveProfile(ctx, p)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		switch {
		case m.confirmReset:
			m, cmd = m.updateConfirmReset(msg)
		case msg.Type == tea.KeyCtrlT:
			m.showThinking = !m.showThinking
			m.refresh()
		case msg.Type == tea.KeyEnter:
			if !m.pending {
				m, cmd = m.handleSubmit()
			}
		case msg.Type == tea.KeyPgUp, msg.Type == tea.KeyPgDown, msg.Type == tea.KeyUp, msg.Type == tea.KeyDown:
			m.viewport, cmd = m.viewport.Update(msg)
		case !m.pending:
			// Input is disabled while a reply is outstanding.
			m.input, cmd = m.input.Update(msg)
		}
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case spinner.TickMsg:
		if m.pending {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			// The user turn is appended from the send command; pick it up.
			m.refresh()
			cmds = append(cmds, cmd)
		}

	case sendDoneMsg:
		m.pending = false
		if msg.err != nil && !errors.Is(msg.err, chat.ErrBusy) {
			m.notice = msg.err.Error()
		}
		cmds = append(cmds, m.input.Focus())
		m.refresh()

	case resetDoneMsg:
		m.pending = false
		if msg.err != nil {
			m.logger.Warn("reset failed", zap.Error(msg.err))
			m.notice = "Could not reset the conversation: " + msg.err.Error()
		} else {
			m.notice = "Conversation cleared."
		}
		cmds = append(cmds, m.input.Focus())
		m.refresh()

	case profileLoadedMsg:
		switch {
		case msg.err != nil:
			m.logger.Warn("failed to load profile", zap.Error(msg.err))
			m.notice = "Could not load your profile, using defaults."
		case msg.profile != nil:
			m.profile = msg.profile.Clone()
		}

	case questionsLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("failed to load quick questions", zap.Error(msg.err))
		} else {
			m.questions = msg.questions
		}

	case profileSavedMsg:
		if msg.err != nil {
			m.notice = "Could not save profile: " + msg.err.Error()
		} else {
			m.notice = "Profile saved."
		}
	}

	m.layout()
	return m, tea.Batch(cmds...)
}

func (m Model) updateConfirmReset(msg tea.KeyMsg) (Model, tea.Cmd) {
	m.confirmReset = false
	switch strings.ToLower(msg.String()) {
	case "y":
		m.pending = true
		m.notice = ""
		m.input.Blur()
		return m, tea.Batch(m.reset(), m.spinner.Tick)
	default:
		m.notice = "Reset cancelled."
		return m, nil
	}
}

func (m Model) handleSubmit() (Model, tea.Cmd) {
	raw := m.input.Value()
	line := strings.TrimSpace(raw)
	if line == "" {
		return m, nil
	}
	m.input.Reset()
	m.notice = ""

	cmd, err := parseCommand(line)
	if err != nil {
		m.notice = err.Error()
		return m, nil
	}

	switch cmd.kind {
	case cmdMessage:
		// Sent as typed; trimming is only for recognizing commands.
		return m.startSend(raw)

	case cmdQuick:
		if cmd.index > len(m.questions) {
			m.notice = fmt.Sprintf("There are %d quick questions.", len(m.questions))
			return m, nil
		}
		return m.startSend(chat.NormalizeShortcut(m.questions[cmd.index-1]))

	case cmdReset:
		if m.session.Len() == 0 {
			m.notice = "Nothing to clear."
			return m, nil
		}
		m.confirmReset = true
		m.notice = "Clear the whole conversation? (y/n)"

	case cmdProfile:
		m.notice = strings.Join(m.profile.Lines(), "\n")

	case cmdSet:
		updated := m.profile.Clone()
		if err := updated.Set(cmd.key, cmd.value); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		if err := updated.Validate(); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.profile = updated
		m.notice = fmt.Sprintf("%s updated, /save to keep it.", cmd.key)

	case cmdSave:
		return m, m.saveProfile()

	case cmdHelp:
		m.notice = helpText

	case cmdQuit:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) startSend(text string) (Model, tea.Cmd) {
	m.pending = true
	m.input.Blur()
	return m, tea.Batch(m.send(text), m.spinner.Tick)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	if !m.ready {
		m.viewport = viewport.New(width, height)
		m.ready = true
	}
	m.viewport.Width = width
	m.input.Width = width - 8
	m.layout()

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", zap.Error(err))
		renderer = nil
	}
	m.renderer = renderer
	m.refresh()
}

// layout gives the transcript every row not taken by the title, status line,
// notice area, input box and help line.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	chrome := 1 + 1 + 3 + 1
	if above := m.aboveInput(); above != "" {
		chrome += lipgloss.Height(above)
	}
	m.viewport.Height = max(3, m.height-chrome-1)
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Starting RunCoach..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("🏃 RunCoach AI"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	if above := m.aboveInput(); above != "" {
		b.WriteString(above)
		b.WriteString("\n")
	}
	b.WriteString(inputBoxStyle.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send • /q N quick question • /help commands • ctrl+t thinking • ctrl+c quit"))
	return b.String()
}

func (m Model) statusLine() string {
	state := m.session.Status().String()
	if m.pending {
		state = m.spinner.View() + " coach is thinking"
	}
	thinking := "hidden"
	if m.showThinking {
		thinking = "shown"
	}
	return statusBarStyle.Render(fmt.Sprintf("%s │ goal %s │ thinking %s │ %d messages",
		state, m.profile.Goal, thinking, m.session.Len()))
}

// aboveInput shows the current notice, or the numbered quick questions.
func (m Model) aboveInput() string {
	if m.notice != "" {
		return noticeStyle.Width(m.width).Render(m.notice)
	}
	if len(m.questions) == 0 {
		return ""
	}
	return dimStyle.Width(m.width).Render(QuickQuestionList(m.questions))
}

// QuickQuestionList numbers the shortcuts for /q N.
func QuickQuestionList(questions []string) string {
	if len(questions) == 0 {
		return ""
	}
	items := make([]string, len(questions))
	for i, q := range questions {
		items[i] = fmt.Sprintf("%d. %s", i+1, q)
	}
	return "Quick questions: " + strings.Join(items, "  ")
}
