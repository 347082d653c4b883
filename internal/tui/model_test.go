package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/chat"
	"github.com/runcoach-ai/runcoach/internal/profile"
)

type stubAssistant struct {
	reply    string
	err      error
	resetErr error
	sent     []string
	profiles []*profile.Profile
}

func (s *stubAssistant) Send(_ context.Context, message string, p *profile.Profile) (string, error) {
	s.sent = append(s.sent, message)
	s.profiles = append(s.profiles, p)
	return s.reply, s.err
}

func (s *stubAssistant) Reset(context.Context) error { return s.resetErr }

type stubBackend struct {
	saved *profile.Profile
}

func (b *stubBackend) LoadProfile(context.Context) (*profile.Profile, error) {
	p := profile.Default()
	p.Name = "Asha"
	return &p, nil
}

func (b *stubBackend) SaveProfile(_ context.Context, p profile.Profile) error {
	b.saved = &p
	return nil
}

func (b *stubBackend) QuickQuestions(context.Context) ([]string, error) {
	return []string{"🏃 How do I start running as a beginner?", "🍎 What should I eat before a run?"}, nil
}

func newTestModel(t *testing.T, a *stubAssistant) (Model, *stubBackend) {
	t.Helper()
	backend := &stubBackend{}
	m := NewModel(context.Background(), chat.NewSession(a, nil), backend, zap.NewNop())
	m = update(t, m, questionsLoadedMsg{questions: []string{
		"🏃 How do I start running as a beginner?",
		"🍎 What should I eat before a run?",
	}})
	return m, backend
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// submit types line, presses enter and feeds every resulting message back in.
func submit(t *testing.T, m Model, line string) Model {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	for _, msg := range run(cmd) {
		m = update(t, m, msg)
	}
	return m
}

// run executes cmd and any batched commands, skipping blinks and ticks.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, run(c)...)
		}
		return out
	case sendDoneMsg, resetDoneMsg, profileSavedMsg, profileLoadedMsg, questionsLoadedMsg:
		return []tea.Msg{msg}
	default:
		return nil
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    command
		wantErr bool
	}{
		{in: "how far today?", want: command{kind: cmdMessage, text: "how far today?"}},
		{in: "/q 3", want: command{kind: cmdQuick, index: 3}},
		{in: "/q", wantErr: true},
		{in: "/q 0", wantErr: true},
		{in: "/reset", want: command{kind: cmdReset}},
		{in: "/profile", want: command{kind: cmdProfile}},
		{in: "/set goal Half Marathon", want: command{kind: cmdSet, key: "goal", value: "Half Marathon"}},
		{in: "/set age", want: command{kind: cmdSet, key: "age"}},
		{in: "/set", wantErr: true},
		{in: "/save", want: command{kind: cmdSave}},
		{in: "/HELP", want: command{kind: cmdHelp}},
		{in: "/exit", want: command{kind: cmdQuit}},
		{in: "/dance", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCommand(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSendMessage(t *testing.T) {
	a := &stubAssistant{reply: "<thinking>easy week</thinking>Run 3x this week."}
	m, _ := newTestModel(t, a)
	m = update(t, m, profileLoadedMsg{profile: &profile.Profile{Name: "Asha", Goal: "10K"}})

	m = submit(t, m, "Plan my week")

	require.Equal(t, []string{"Plan my week"}, a.sent)
	require.NotNil(t, a.profiles[0])
	assert.Equal(t, "10K", a.profiles[0].Goal)
	assert.False(t, m.pending)
	assert.Equal(t, 2, m.session.Len())

	out := m.transcript()
	assert.Contains(t, out, "Plan my week")
	assert.Contains(t, out, "Run 3x this week.")
	assert.Contains(t, out, "Thinking hidden")
	assert.NotContains(t, out, "easy week")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Contains(t, m.transcript(), "easy week")
}

func TestSendKeepsTypedText(t *testing.T) {
	a := &stubAssistant{reply: "ok"}
	m, _ := newTestModel(t, a)

	m = submit(t, m, "  two  spaces  ")
	require.Equal(t, []string{"  two  spaces  "}, a.sent)
	msgs := m.session.Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "  two  spaces  ", msgs[0].Raw)

	m = submit(t, m, "   ")
	assert.Len(t, a.sent, 1)
}

func TestQuickQuestionShortcut(t *testing.T) {
	a := &stubAssistant{reply: "Oats and a banana."}
	m, _ := newTestModel(t, a)

	m = submit(t, m, "/q 2")
	assert.Equal(t, []string{"What should I eat before a run?"}, a.sent)

	m = submit(t, m, "/q 9")
	assert.Len(t, a.sent, 1)
	assert.Equal(t, "There are 2 quick questions.", m.notice)
}

func TestSendFailureShowsErrorEntry(t *testing.T) {
	a := &stubAssistant{err: errors.New("connection refused")}
	m, _ := newTestModel(t, a)

	m = submit(t, m, "hello")
	msgs := m.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.RoleError, msgs[1].Role)
	assert.Contains(t, m.transcript(), chat.ErrorReplyText)
}

func TestInputDisabledWhilePending(t *testing.T) {
	m, _ := newTestModel(t, &stubAssistant{})
	m.input.SetValue("first")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.pending)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Empty(t, m.input.Value())

	m.input.SetValue("second")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestResetNeedsConfirmation(t *testing.T) {
	a := &stubAssistant{reply: "ok"}
	m, _ := newTestModel(t, a)

	m = submit(t, m, "/reset")
	assert.Equal(t, "Nothing to clear.", m.notice)

	m = submit(t, m, "hi")
	m = submit(t, m, "/reset")
	assert.True(t, m.confirmReset)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.False(t, m.confirmReset)
	assert.Equal(t, 2, m.session.Len())

	m = submit(t, m, "/reset")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	m = next.(Model)
	for _, msg := range run(cmd) {
		m = update(t, m, msg)
	}
	assert.Zero(t, m.session.Len())
	assert.Equal(t, "Conversation cleared.", m.notice)
}

func TestResetFailureKeepsTranscript(t *testing.T) {
	a := &stubAssistant{reply: "ok", resetErr: errors.New("503")}
	m, _ := newTestModel(t, a)
	m = submit(t, m, "hi")
	m = submit(t, m, "/reset")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	m = next.(Model)
	for _, msg := range run(cmd) {
		m = update(t, m, msg)
	}
	assert.Equal(t, 2, m.session.Len())
	assert.Contains(t, m.notice, "Could not reset")
}

func TestProfileCommands(t *testing.T) {
	m, backend := newTestModel(t, &stubAssistant{})

	m = submit(t, m, "/set goal Marathon")
	assert.Equal(t, "Marathon", m.profile.Goal)

	m = submit(t, m, "/set goal Ultra")
	assert.Equal(t, "Marathon", m.profile.Goal, "invalid values are rejected")
	assert.Contains(t, m.notice, "invalid profile")

	m = submit(t, m, "/set shoe_size 44")
	assert.Contains(t, m.notice, "unknown profile field")

	m = submit(t, m, "/profile")
	assert.Contains(t, m.notice, "goal: Marathon")

	m = submit(t, m, "/save")
	require.NotNil(t, backend.saved)
	assert.Equal(t, "Marathon", backend.saved.Goal)
	assert.Equal(t, "Profile saved.", m.notice)
}

func TestViewAfterResize(t *testing.T) {
	m, _ := newTestModel(t, &stubAssistant{})
	assert.Contains(t, m.View(), "Starting RunCoach")

	m = update(t, m, tea.WindowSizeMsg{Width: 160, Height: 30})
	view := m.View()
	assert.Contains(t, view, "RunCoach AI")
	assert.Contains(t, view, "1. 🏃 How do I start running as a beginner?")
	assert.Contains(t, view, "idle")
}

func TestRenderTranscriptPlain(t *testing.T) {
	assert.Contains(t, renderTranscript(nil, false, nil), "running coach")

	trace := "step one"
	out := renderTranscript([]chat.Message{
		{Role: chat.RoleUser, Content: "q"},
		{Role: chat.RoleAssistant, Content: "**bold** answer", Thinking: &trace},
		{Role: chat.RoleError, Content: chat.ErrorReplyText},
	}, true, nil)
	assert.Contains(t, out, "**bold** answer")
	assert.Contains(t, out, "step one")
	assert.True(t, strings.Index(out, "step one") < strings.Index(out, "**bold** answer"))
	assert.Contains(t, out, chat.ErrorReplyText)
}

func TestQuickQuestionList(t *testing.T) {
	assert.Empty(t, QuickQuestionList(nil))
	assert.Equal(t, "Quick questions: 1. a  2. b", QuickQuestionList([]string{"a", "b"}))
}
