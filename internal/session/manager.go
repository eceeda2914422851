// Package session bridges the UI's view of the current conversation with
// the persisted per-session record and drives the remote completion call.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/heydayle/next-gen-ai/internal/domain"
	"github.com/heydayle/next-gen-ai/internal/llm"
)

// Status is the submission state of the active session
type Status string

const (
	StatusIdle          Status = "idle"
	StatusSubmitting    Status = "submitting"
	StatusAwaitingReply Status = "awaiting_reply"
	StatusErrored       Status = "errored"
)

// Message is one entry of the in-memory projection consumed by the UI
type Message struct {
	ID      string          `json:"id"`
	Role    domain.TurnRole `json:"role"`
	Content string          `json:"content"`
}

// Result is returned by SubmitQuestion on a successful round trip
type Result struct {
	SessionID  string    `json:"sessionId"`
	Reply      string    `json:"reply"`
	Messages   []Message `json:"messages"`
	Model      string    `json:"model"`
	TokensUsed int       `json:"tokens_used"`
	LatencyMs  int64     `json:"latency_ms"`
}

// Options carries the injected dependencies that would otherwise be ambient:
// the clock behind record timestamps and the generator behind session and
// message IDs. Zero values fall back to time.Now and random UUIDs.
type Options struct {
	MinQuestionLength int
	RequestTimeout    time.Duration
	Clock             func() time.Time
	NewID             func() string
}

// Manager owns the in-memory message projection for one session at a time
// and reconciles it with the persisted record around each completion call.
type Manager struct {
	store          domain.SessionStore
	completions    *llm.Router
	clock          func() time.Time
	newID          func() string
	minQuestionLen int
	requestTimeout time.Duration

	mu            sync.Mutex
	activeSession string
	messages      []Message
	status        Status
	inFlight      bool
}

// NewManager creates a session manager on top of an opened store
func NewManager(store domain.SessionStore, completions *llm.Router, opts Options) *Manager {
	if opts.MinQuestionLength <= 0 {
		opts.MinQuestionLength = 3
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Manager{
		store:          store,
		completions:    completions,
		clock:          opts.Clock,
		newID:          opts.NewID,
		minQuestionLen: opts.MinQuestionLength,
		requestTimeout: opts.RequestTimeout,
		status:         StatusIdle,
	}
}

// NewSession mints a fresh session ID. Nothing is persisted until the first
// question is submitted.
func (m *Manager) NewSession() string {
	return m.newID()
}

// Status returns the current submission state
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ActiveSession returns the session the projection currently belongs to
func (m *Manager) ActiveSession() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeSession
}

// Messages returns a snapshot of the in-memory projection
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() []Message {
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// LoadHistory resets the projection and rebuilds it from the persisted
// record. A session with no record yet yields an empty projection. Must be
// called whenever the UI switches conversations.
func (m *Manager) LoadHistory(ctx context.Context, sessionID string) ([]Message, error) {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return nil, domain.ErrSubmissionInFlight
	}
	m.activeSession = sessionID
	m.messages = nil
	m.status = StatusIdle
	m.mu.Unlock()

	record, err := m.store.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]Message, 0, len(record.History))
	for _, turn := range record.History {
		messages = append(messages, Message{
			ID:      m.newID(),
			Role:    turn.Role,
			Content: turn.Text(),
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeSession != sessionID {
		// Switched again while reading; the later load wins.
		return nil, nil
	}
	m.messages = messages
	return m.snapshotLocked(), nil
}

// SubmitQuestion runs one optimistic round trip: the user turn is appended
// to the projection and persisted before the completion call; the model
// turn is appended and persisted only when the call succeeds. On remote
// failure the persisted user turn stays in place and the status flips to
// errored. A second submission while one is in flight is rejected.
func (m *Manager) SubmitQuestion(ctx context.Context, sessionID, text string) (*Result, error) {
	if utf8.RuneCountInString(text) < m.minQuestionLen {
		return nil, &domain.ValidationError{
			Field:   "question",
			Message: fmt.Sprintf("must be at least %d characters", m.minQuestionLen),
		}
	}
	if sessionID == "" {
		return nil, &domain.ValidationError{Field: "sessionId", Message: "must not be empty"}
	}

	if err := m.beginSubmission(ctx, sessionID); err != nil {
		return nil, err
	}

	// Optimistic append: the UI sees the user turn before anything durable
	// or remote happens.
	m.mu.Lock()
	m.messages = append(m.messages, Message{ID: m.newID(), Role: domain.RoleUser, Content: text})
	m.status = StatusSubmitting
	m.mu.Unlock()

	record, err := m.appendTurn(ctx, sessionID, domain.NewTurn(domain.RoleUser, text))
	if err != nil {
		m.endSubmission(StatusErrored)
		return nil, err
	}

	m.setStatus(StatusAwaitingReply)

	provider, err := m.completions.GetProvider("")
	if err != nil {
		m.endSubmission(StatusErrored)
		return nil, &domain.RemoteError{Provider: m.completions.DefaultProvider(), Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, m.requestTimeout)
	defer cancel()

	resp, err := provider.Complete(callCtx, llm.Request{Prompt: text, History: record.History}, "")
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("completion call failed")
		m.endSubmission(StatusErrored)
		return nil, &domain.RemoteError{Provider: provider.Name(), Err: err}
	}

	m.mu.Lock()
	m.messages = append(m.messages, Message{ID: m.newID(), Role: domain.RoleModel, Content: resp.Text})
	m.mu.Unlock()

	if _, err := m.appendTurn(ctx, sessionID, domain.NewTurn(domain.RoleModel, resp.Text)); err != nil {
		// The reply reached the UI but not the store; the user turn is the
		// last successful write and a retry can recover the reply.
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to persist model turn")
		m.endSubmission(StatusErrored)
		return nil, err
	}

	m.endSubmission(StatusIdle)

	m.mu.Lock()
	defer m.mu.Unlock()
	return &Result{
		SessionID:  sessionID,
		Reply:      resp.Text,
		Messages:   m.snapshotLocked(),
		Model:      resp.Model,
		TokensUsed: resp.TokensUsed,
		LatencyMs:  resp.LatencyMs,
	}, nil
}

// beginSubmission takes the in-flight slot and makes sessionID the active
// session, reloading the projection when the caller switched conversations.
func (m *Manager) beginSubmission(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return domain.ErrSubmissionInFlight
	}
	m.inFlight = true
	switched := m.activeSession != sessionID
	if switched {
		m.activeSession = sessionID
		m.messages = nil
		m.status = StatusIdle
	}
	m.mu.Unlock()

	if !switched {
		return nil
	}

	record, err := m.store.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		m.endSubmission(StatusErrored)
		return fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]Message, 0, len(record.History))
	for _, turn := range record.History {
		messages = append(messages, Message{ID: m.newID(), Role: turn.Role, Content: turn.Text()})
	}

	m.mu.Lock()
	m.messages = messages
	m.mu.Unlock()
	return nil
}

func (m *Manager) endSubmission(status Status) {
	m.mu.Lock()
	m.status = status
	m.inFlight = false
	m.mu.Unlock()
}

func (m *Manager) setStatus(status Status) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

// appendTurn reads the current persisted record immediately before writing
// so a write that completed in between is never clobbered, then upserts
// history + turn as the new record state.
func (m *Manager) appendTurn(ctx context.Context, sessionID string, turn domain.Turn) (*domain.ChatSession, error) {
	record, err := m.store.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		record = &domain.ChatSession{SessionID: sessionID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read session before write: %w", err)
	}

	record.History = append(record.History, turn)
	record.Date = m.nextDate(record.Date)

	if err := m.store.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return record, nil
}

// nextDate keeps the record timestamp monotonically non-decreasing even if
// the clock steps backwards.
func (m *Manager) nextDate(prev time.Time) time.Time {
	now := m.clock()
	if now.Before(prev) {
		return prev
	}
	return now
}

// ListSessions returns every stored session, newest first. The store gives
// no ordering guarantee, so the sort happens here.
func (m *Manager) ListSessions(ctx context.Context) ([]domain.ChatSession, error) {
	sessions, err := m.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Date.After(sessions[j].Date)
	})
	return sessions, nil
}

// GetSession returns the persisted record for one session
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	return m.store.Get(ctx, sessionID)
}

// DeleteSession removes the persisted record and clears the projection if
// it belonged to the removed session
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.store.Remove(ctx, sessionID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeSession == sessionID && !m.inFlight {
		m.messages = nil
		m.status = StatusIdle
	}
	return nil
}
