package domain

import (
	"context"
	"time"
)

// TurnRole represents the author of a conversation turn
type TurnRole string

const (
	RoleUser  TurnRole = "user"
	RoleModel TurnRole = "model"
)

// Part holds one text fragment of a turn
type Part struct {
	Text string `json:"text"`
}

// Turn represents one message in a conversation
type Turn struct {
	Role  TurnRole `json:"role"`
	Parts []Part   `json:"parts"`
}

// Text returns the concatenated text of all parts
func (t Turn) Text() string {
	if len(t.Parts) == 1 {
		return t.Parts[0].Text
	}
	var s string
	for _, p := range t.Parts {
		s += p.Text
	}
	return s
}

// NewTurn creates a single-part turn
func NewTurn(role TurnRole, text string) Turn {
	return Turn{Role: role, Parts: []Part{{Text: text}}}
}

// ChatSession is the persisted record for one conversation.
// SessionID is assigned by the caller and serves as the primary key.
// History is append-only and ordered oldest first. Date is set on every
// write and never moves backwards for a given session.
type ChatSession struct {
	SessionID string    `json:"sessionId"`
	History   []Turn    `json:"history"`
	Date      time.Time `json:"date"`
}

// SessionStore defines the interface for durable session storage.
// Each operation runs in its own transaction; callers needing
// read-modify-write consistency must re-read immediately before writing.
type SessionStore interface {
	// Open prepares the underlying engine and creates the collection if it
	// does not exist. Idempotent; must complete before any other call.
	Open(ctx context.Context) error

	// Add inserts a new record and returns its key. Fails with
	// ErrDuplicateKey if the session already exists.
	Add(ctx context.Context, session *ChatSession) (string, error)

	// Get returns the record for id, or ErrSessionNotFound. Absence is an
	// expected case, not an engine failure.
	Get(ctx context.Context, id string) (*ChatSession, error)

	// GetAll returns every record with no ordering guarantee.
	GetAll(ctx context.Context) ([]ChatSession, error)

	// Update upserts by SessionID: overwrites if present, inserts if absent.
	Update(ctx context.Context, session *ChatSession) error

	// Remove deletes by SessionID. Removing an absent key is not an error.
	Remove(ctx context.Context, id string) error

	Close() error
}
