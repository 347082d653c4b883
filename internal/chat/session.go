package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/runcoach-ai/runcoach/internal/profile"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("session is awaiting a reply")
)

// Assistant is the remote service a Session talks to.
type Assistant interface {
	Send(ctx context.Context, message string, p *profile.Profile) (string, error)
	Reset(ctx context.Context) error
}

type Status int

const (
	StatusIdle Status = iota
	StatusAwaitingReply
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAwaitingReply:
		return "awaiting-reply"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Session owns one conversation transcript and its in-flight state.
// Only one remote call (send or reset) runs at a time; the lock is never held
// while that call is outstanding.
type Session struct {
	assistant Assistant
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	messages []Message
	status   Status
}

func NewSession(assistant Assistant, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		assistant: assistant,
		logger:    logger.With(zap.String("module", "chat")),
		now:       time.Now,
	}
}

// SendUserMessage appends the user's turn, asks the assistant for a reply and
// appends either the parsed reply or the fixed error entry. Send failures are
// recorded in the transcript, not returned; the only errors are ErrEmptyMessage
// and ErrBusy, both of which leave the session untouched.
func (s *Session) SendUserMessage(ctx context.Context, text string, p *profile.Profile) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.status != StatusIdle {
		s.mu.Unlock()
		s.logger.Debug("send ignored while busy")
		return ErrBusy
	}
	s.messages = append(s.messages, newUserMessage(text, s.now()))
	s.status = StatusAwaitingReply
	s.mu.Unlock()

	defer s.setStatus(StatusIdle)

	var snapshot *profile.Profile
	if p != nil {
		c := p.Clone()
		snapshot = &c
	}

	reply, err := s.exchange(ctx, text, snapshot)
	if err != nil {
		s.logger.Warn("assistant send failed", zap.Error(err))
		reply = newErrorMessage(s.now())
	}
	s.append(reply)
	return nil
}

func (s *Session) exchange(ctx context.Context, text string, p *profile.Profile) (msg Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assistant exchange panicked: %v", r)
		}
	}()

	raw, err := s.assistant.Send(ctx, text, p)
	if err != nil {
		return Message{}, err
	}
	return newAssistantMessage(raw, s.now()), nil
}

func (s *Session) resetRemote(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assistant reset panicked: %v", r)
		}
	}()
	return s.assistant.Reset(ctx)
}

// ResetSession clears the remote history and, only if that succeeds, the
// local transcript. The caller is expected to have confirmed with the user.
func (s *Session) ResetSession(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	s.status = StatusAwaitingReply
	s.mu.Unlock()

	defer s.setStatus(StatusIdle)

	if err := s.resetRemote(ctx); err != nil {
		s.logger.Warn("assistant reset failed", zap.Error(err))
		return fmt.Errorf("reset conversation: %w", err)
	}

	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()

	s.logger.Info("conversation reset")
	return nil
}

// Messages returns a snapshot of the transcript in insertion order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Busy() bool {
	return s.Status() == StatusAwaitingReply
}

func (s *Session) append(m Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}
