package session

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/heydayle/next-gen-ai/internal/domain"
	"github.com/heydayle/next-gen-ai/internal/llm"
)

// fakeStore is an in-memory domain.SessionStore. The manager's protocol is
// read-modify-write, so a stateful fake is more useful here than a canned
// mock; failure injection covers the error paths.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]domain.ChatSession

	gets    int
	updates int

	getErr    error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]domain.ChatSession)}
}

func (s *fakeStore) Open(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                   { return nil }

func (s *fakeStore) Add(ctx context.Context, session *domain.ChatSession) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[session.SessionID]; ok {
		return "", domain.ErrDuplicateKey
	}
	s.records[session.SessionID] = copyRecord(*session)
	return session.SessionID, nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	out := copyRecord(record)
	return &out, nil
}

func (s *fakeStore) GetAll(ctx context.Context) ([]domain.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ChatSession
	for _, record := range s.records {
		out = append(out, copyRecord(record))
	}
	return out, nil
}

func (s *fakeStore) Update(ctx context.Context, session *domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.updateErr != nil {
		return s.updateErr
	}
	s.records[session.SessionID] = copyRecord(*session)
	return nil
}

func (s *fakeStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *fakeStore) record(id string) (domain.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	return copyRecord(record), ok
}

func copyRecord(record domain.ChatSession) domain.ChatSession {
	history := make([]domain.Turn, len(record.History))
	copy(history, record.History)
	record.History = history
	return record
}

// MockProvider mocks llm.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) AvailableModels() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockProvider) DefaultModel() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockProvider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	args := m.Called(ctx, req, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}
