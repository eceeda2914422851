package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/heydayle/next-gen-ai/internal/domain"
	"github.com/heydayle/next-gen-ai/internal/llm"
)

func newTestRouter(provider llm.Provider) *llm.Router {
	router := llm.NewRouter("mock")
	router.RegisterProvider(provider)
	return router
}

func newMockProvider() *MockProvider {
	provider := new(MockProvider)
	provider.On("Name").Return("mock")
	provider.On("IsConfigured").Return(true)
	return provider
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestManager_SubmitQuestion_Success(t *testing.T) {
	store := newFakeStore()
	provider := newMockProvider()
	provider.On("Complete", mock.Anything, mock.AnythingOfType("llm.Request"), "").
		Return(&llm.Response{Text: "hi", Model: "mock-1"}, nil)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr := NewManager(store, newTestRouter(provider), Options{
		Clock: func() time.Time { return now },
		NewID: sequentialIDs(),
	})

	result, err := mgr.SubmitQuestion(context.Background(), "s1", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "hi", result.Reply)
	assert.Equal(t, "s1", result.SessionID)

	// In-memory projection holds both turns in order.
	messages := mgr.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
	assert.Equal(t, "hello there", messages[0].Content)
	assert.Equal(t, domain.RoleModel, messages[1].Role)
	assert.Equal(t, "hi", messages[1].Content)

	// Persisted record converged to the same content.
	record, ok := store.record("s1")
	require.True(t, ok)
	require.Len(t, record.History, 2)
	assert.Equal(t, domain.RoleUser, record.History[0].Role)
	assert.Equal(t, "hello there", record.History[0].Text())
	assert.Equal(t, domain.RoleModel, record.History[1].Role)
	assert.Equal(t, "hi", record.History[1].Text())
	assert.True(t, record.Date.Equal(now))

	assert.Equal(t, StatusIdle, mgr.Status())

	// The completion call carried the already-updated history as context.
	calls := provider.Calls
	require.NotEmpty(t, calls)
	req := calls[len(calls)-1].Arguments.Get(1).(llm.Request)
	assert.Equal(t, "hello there", req.Prompt)
	require.Len(t, req.History, 1)
	assert.Equal(t, domain.RoleUser, req.History[0].Role)
}

func TestManager_SubmitQuestion_UserTurnPersistedBeforeReply(t *testing.T) {
	store := newFakeStore()
	provider := newMockProvider()
	provider.On("Complete", mock.Anything, mock.AnythingOfType("llm.Request"), "").
		Run(func(args mock.Arguments) {
			// While the remote call is in flight the store already holds the
			// user turn.
			record, ok := store.record("s1")
			assert.True(t, ok)
			assert.Len(t, record.History, 1)
		}).
		Return(&llm.Response{Text: "hi"}, nil)

	mgr := NewManager(store, newTestRouter(provider), Options{})
	_, err := mgr.SubmitQuestion(context.Background(), "s1", "hello")
	require.NoError(t, err)
}

func TestManager_SubmitQuestion_RemoteFailure(t *testing.T) {
	store := newFakeStore()
	provider := newMockProvider()
	provider.On("Complete", mock.Anything, mock.AnythingOfType("llm.Request"), "").
		Return(nil, errors.New("upstream exploded"))

	mgr := NewManager(store, newTestRouter(provider), Options{})

	_, err := mgr.SubmitQuestion(context.Background(), "s1", "hello")

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "mock", remoteErr.Provider)

	// The user turn stays persisted, no compensating delete.
	record, ok := store.record("s1")
	require.True(t, ok)
	require.Len(t, record.History, 1)
	assert.Equal(t, domain.RoleUser, record.History[0].Role)

	// The projection keeps the user turn only; status flips to errored.
	messages := mgr.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
	assert.Equal(t, StatusErrored, mgr.Status())
}

func TestManager_SubmitQuestion_Validation(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store, newTestRouter(newMockProvider()), Options{MinQuestionLength: 3})

	_, err := mgr.SubmitQuestion(context.Background(), "s1", "hi")

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "question", validationErr.Field)

	// No store or network access happens on local rejection.
	assert.Zero(t, store.gets)
	assert.Zero(t, store.updates)
	assert.Empty(t, mgr.Messages())
}

func TestManager_SubmitQuestion_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.updateErr = errors.New("disk full")
	provider := newMockProvider()

	mgr := NewManager(store, newTestRouter(provider), Options{})

	_, err := mgr.SubmitQuestion(context.Background(), "s1", "hello")
	require.Error(t, err)
	assert.Equal(t, StatusErrored, mgr.Status())

	// The optimistic user turn is still visible to the UI.
	require.Len(t, mgr.Messages(), 1)

	// The remote call never happened.
	provider.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestManager_SubmitQuestion_RejectsWhileInFlight(t *testing.T) {
	store := newFakeStore()
	provider := newMockProvider()

	entered := make(chan struct{})
	release := make(chan struct{})
	provider.On("Complete", mock.Anything, mock.AnythingOfType("llm.Request"), "").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&llm.Response{Text: "hi"}, nil).
		Once()
	provider.On("Complete", mock.Anything, mock.AnythingOfType("llm.Request"), "").
		Return(&llm.Response{Text: "hi"}, nil)

	mgr := NewManager(store, newTestRouter(provider), Options{})

	done := make(chan error, 1)
	go func() {
		_, err := mgr.SubmitQuestion(context.Background(), "s1", "first question")
		done <- err
	}()

	<-entered
	_, err := mgr.SubmitQuestion(context.Background(), "s1", "second question")
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-done)

	// Once the first submission resolved, the slot is free again.
	_, err = mgr.SubmitQuestion(context.Background(), "s1", "third question")
	require.NoError(t, err)
}

func TestManager_SubmitQuestion_AppendsAcrossRoundTrips(t *testing.T) {
	store := newFakeStore()
	provider := newMockProvider()
	provider.On("Complete", mock.Anything, mock.AnythingOfType("llm.Request"), "").
		Return(&llm.Response{Text: "reply"}, nil)

	mgr := NewManager(store, newTestRouter(provider), Options{})

	for i := 0; i < 3; i++ {
		_, err := mgr.SubmitQuestion(context.Background(), "s1", fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	record, ok := store.record("s1")
	require.True(t, ok)
	require.Len(t, record.History, 6)
	for i, turn := range record.History {
		if i%2 == 0 {
			assert.Equal(t, domain.RoleUser, turn.Role)
		} else {
			assert.Equal(t, domain.RoleModel, turn.Role)
		}
	}
}

func TestManager_DateMonotonicAcrossClockSkew(t *testing.T) {
	store := newFakeStore()
	provider := newMockProvider()
	provider.On("Complete", mock.Anything, mock.AnythingOfType("llm.Request"), "").
		Return(&llm.Response{Text: "reply"}, nil)

	times := []time.Time{
		time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC), // clock stepped back
	}
	i := 0
	clock := func() time.Time {
		t := times[i%len(times)]
		i++
		return t
	}

	mgr := NewManager(store, newTestRouter(provider), Options{Clock: clock})

	var prev time.Time
	for q := 0; q < 2; q++ {
		_, err := mgr.SubmitQuestion(context.Background(), "s1", "hello again")
		require.NoError(t, err)

		record, ok := store.record("s1")
		require.True(t, ok)
		assert.False(t, record.Date.Before(prev), "record date moved backwards")
		prev = record.Date
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	store := newFakeStore()
	provider := newMockProvider()
	provider.On("Complete", mock.Anything, mock.AnythingOfType("llm.Request"), "").
		Return(&llm.Response{Text: "reply"}, nil)

	mgr := NewManager(store, newTestRouter(provider), Options{})

	_, err := mgr.SubmitQuestion(context.Background(), "a", "question for a")
	require.NoError(t, err)
	_, err = mgr.SubmitQuestion(context.Background(), "b", "question for b")
	require.NoError(t, err)

	recordA, ok := store.record("a")
	require.True(t, ok)
	recordB, ok := store.record("b")
	require.True(t, ok)

	require.Len(t, recordA.History, 2)
	require.Len(t, recordB.History, 2)
	assert.Equal(t, "question for a", recordA.History[0].Text())
	assert.Equal(t, "question for b", recordB.History[0].Text())
}

func TestManager_LoadHistory(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store, newTestRouter(newMockProvider()), Options{NewID: sequentialIDs()})

	t.Run("no record yet", func(t *testing.T) {
		messages, err := mgr.LoadHistory(context.Background(), "fresh")
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("reload fidelity", func(t *testing.T) {
		record := &domain.ChatSession{SessionID: "s1", Date: time.Now()}
		for i := 0; i < 3; i++ {
			record.History = append(record.History,
				domain.NewTurn(domain.RoleUser, fmt.Sprintf("q%d", i)),
				domain.NewTurn(domain.RoleModel, fmt.Sprintf("a%d", i)),
			)
		}
		require.NoError(t, store.Update(context.Background(), record))

		messages, err := mgr.LoadHistory(context.Background(), "s1")
		require.NoError(t, err)
		require.Len(t, messages, 6)
		for i, msg := range messages {
			if i%2 == 0 {
				assert.Equal(t, domain.RoleUser, msg.Role)
				assert.Equal(t, fmt.Sprintf("q%d", i/2), msg.Content)
			} else {
				assert.Equal(t, domain.RoleModel, msg.Role)
				assert.Equal(t, fmt.Sprintf("a%d", i/2), msg.Content)
			}
		}
	})

	t.Run("switching resets the projection", func(t *testing.T) {
		_, err := mgr.LoadHistory(context.Background(), "s1")
		require.NoError(t, err)
		require.NotEmpty(t, mgr.Messages())

		messages, err := mgr.LoadHistory(context.Background(), "empty")
		require.NoError(t, err)
		assert.Empty(t, messages)
		assert.Empty(t, mgr.Messages())
		assert.Equal(t, "empty", mgr.ActiveSession())
	})
}

func TestManager_NewSessionUsesInjectedGenerator(t *testing.T) {
	mgr := NewManager(newFakeStore(), newTestRouter(newMockProvider()), Options{NewID: sequentialIDs()})
	assert.Equal(t, "id-1", mgr.NewSession())
	assert.Equal(t, "id-2", mgr.NewSession())
}

func TestManager_DeleteSessionClearsProjection(t *testing.T) {
	store := newFakeStore()
	provider := newMockProvider()
	provider.On("Complete", mock.Anything, mock.AnythingOfType("llm.Request"), "").
		Return(&llm.Response{Text: "reply"}, nil)

	mgr := NewManager(store, newTestRouter(provider), Options{})

	_, err := mgr.SubmitQuestion(context.Background(), "s1", "hello")
	require.NoError(t, err)
	require.NotEmpty(t, mgr.Messages())

	require.NoError(t, mgr.DeleteSession(context.Background(), "s1"))
	assert.Empty(t, mgr.Messages())

	_, ok := store.record("s1")
	assert.False(t, ok)
}
