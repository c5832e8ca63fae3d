package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"bhashakit/core"
)

// Config holds the conversation-manager tunables.
type Config struct {
	// Priming is the fixed prefix installed into every new session's history.
	Priming []core.ChatMessage
	// MaxPairs is K, the maximum retained user/assistant exchange pairs.
	// History is capped at len(Priming) + 2*K entries.
	MaxPairs int
	// UpstreamTimeout bounds each call to the chat service.
	UpstreamTimeout time.Duration
}

// DefaultConfig returns the production defaults: the tutor priming prefix,
// ten retained exchange pairs and a 30 second upstream timeout.
func DefaultConfig() Config {
	return Config{
		Priming:         TutorPriming("", ""),
		MaxPairs:        10,
		UpstreamTimeout: 30 * time.Second,
	}
}

// Manager owns per-session bounded conversation history and mediates exactly
// one in-flight upstream call per session. History mutation for a given
// session is linearized: the per-session lock is held across the upstream
// call, so concurrent submits for the same session queue behind it. At most
// one caller may wait; further concurrent submits are rejected as busy.
type Manager struct {
	store  Store
	chat   core.IChatService
	cfg    Config
	logger *core.Logger

	createMu sync.Mutex
}

func NewManager(store Store, chat core.IChatService, cfg Config, logger *core.Logger) *Manager {
	if cfg.MaxPairs <= 0 {
		cfg.MaxPairs = 10
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 30 * time.Second
	}
	return &Manager{
		store:  store,
		chat:   chat,
		cfg:    cfg,
		logger: logger.With(map[string]interface{}{"component": "session_manager"}),
	}
}

// SubmitUtterance appends text as a user turn to the session's history, calls
// the upstream chat service with the history as it stood before the append,
// and on success appends the assistant reply and applies retention. On
// upstream failure the user turn is kept; the reply is simply never appended.
func (m *Manager) SubmitUtterance(ctx context.Context, sessionID, text string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", core.NewChatError(core.ErrKindValidation, "Session ID is required", nil)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", core.NewChatError(core.ErrKindValidation, "Message cannot be empty", nil)
	}

	s := m.getOrCreate(sessionID)

	// Bounded queue of depth 1: one submit in flight, one waiting.
	if atomic.AddInt32(&s.waiters, 1) > 2 {
		atomic.AddInt32(&s.waiters, -1)
		return "", core.NewChatError(core.ErrKindBusy, "A previous message is still being processed. Please try again.", nil)
	}
	defer atomic.AddInt32(&s.waiters, -1)

	var reply string
	err := m.store.WithLock(sessionID, func(s *Session) error {
		snapshot := make([]core.ChatMessage, len(s.History))
		copy(snapshot, s.History)

		s.History = append(s.History, core.ChatMessage{Role: core.ChatRoleUser, Text: text})

		callCtx, cancel := context.WithTimeout(ctx, m.cfg.UpstreamTimeout)
		defer cancel()

		out, err := m.chat.GenerateReply(callCtx, snapshot, text)
		if err != nil {
			return m.classifyUpstreamError(err)
		}
		if strings.TrimSpace(out) == "" {
			return core.NewChatError(core.ErrKindUnknown, "Received no response from the model.", nil)
		}

		s.History = append(s.History, core.ChatMessage{Role: core.ChatRoleAssistant, Text: out})
		m.applyRetention(s)
		reply = out
		return nil
	})
	if err != nil {
		m.logger.Warnf("submit failed for session %s: %v", sessionID, err)
		return "", err
	}
	return reply, nil
}

// History returns a copy of the session's current transcript, or nil if the
// session does not exist.
func (m *Manager) History(sessionID string) []core.ChatMessage {
	if _, ok := m.store.Get(sessionID); !ok {
		return nil
	}
	var out []core.ChatMessage
	_ = m.store.WithLock(sessionID, func(s *Session) error {
		out = make([]core.ChatMessage, len(s.History))
		copy(out, s.History)
		return nil
	})
	return out
}

func (m *Manager) getOrCreate(sessionID string) *Session {
	if s, ok := m.store.Get(sessionID); ok {
		return s
	}
	m.createMu.Lock()
	defer m.createMu.Unlock()
	if s, ok := m.store.Get(sessionID); ok {
		return s
	}
	m.logger.Infof("initializing history for session %s", sessionID)
	s := &Session{
		ID:         sessionID,
		History:    append([]core.ChatMessage(nil), m.cfg.Priming...),
		primingLen: len(m.cfg.Priming),
	}
	m.store.Put(s)
	return s
}

// applyRetention evicts the oldest non-priming user/assistant pair while the
// history exceeds its cap. The priming prefix is never evicted.
func (m *Manager) applyRetention(s *Session) {
	limit := s.primingLen + 2*m.cfg.MaxPairs
	for len(s.History) > limit {
		m.logger.Debugf("pruning history for session %s from %d entries", s.ID, len(s.History))
		s.History = append(s.History[:s.primingLen], s.History[s.primingLen+2:]...)
	}
}

func (m *Manager) classifyUpstreamError(err error) error {
	var ce *core.ChatError
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return core.NewChatError(core.ErrKindUnavailable, "The model is unreachable right now. Please try again.", err)
	}
	return core.NewChatError(core.ErrKindUnknown, "Sorry, I encountered an error processing your request. Please try again.", err)
}
