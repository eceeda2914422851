package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/heydayle/next-gen-ai/internal/api/response"
	"github.com/heydayle/next-gen-ai/internal/domain"
	"github.com/heydayle/next-gen-ai/internal/session"
)

var validate = validator.New()

// SessionHandler exposes the session manager over HTTP
type SessionHandler struct {
	manager *session.Manager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(manager *session.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// List returns all stored sessions, newest first
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.manager.ListSessions(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sessions == nil {
		sessions = []domain.ChatSession{}
	}
	response.OK(w, sessions)
}

// Create mints a new session ID. Nothing is persisted until the first
// question is submitted.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	response.Created(w, map[string]string{
		"sessionId": h.manager.NewSession(),
	})
}

// Get returns the persisted record for one session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	record, err := h.manager.GetSession(r.Context(), sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		response.NotFound(w, "session not found")
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}

	response.OK(w, record)
}

// Delete removes a session record. Removing an absent session succeeds.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.manager.DeleteSession(r.Context(), sessionID); err != nil {
		writeStoreError(w, err)
		return
	}

	response.OK(w, map[string]string{"message": "session deleted"})
}

type submitRequest struct {
	Question string `json:"question" validate:"required"`
}

// Submit runs one question round trip on a session
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, "question is required")
		return
	}

	result, err := h.manager.SubmitQuestion(r.Context(), sessionID, req.Question)
	if err != nil {
		writeSubmitError(w, err)
		return
	}

	response.Created(w, result)
}

func writeSubmitError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var remoteErr *domain.RemoteError

	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, validationErr.Error())
	case errors.Is(err, domain.ErrSubmissionInFlight):
		response.Conflict(w, err.Error())
	case errors.As(err, &remoteErr):
		// The user turn is already persisted; the client may resubmit.
		response.BadGateway(w, remoteErr.Error())
	default:
		writeStoreError(w, err)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotInitialized) || errors.Is(err, domain.ErrStoreUnavailable) {
		response.ServiceUnavailable(w, err.Error())
		return
	}
	response.InternalError(w, err.Error())
}
