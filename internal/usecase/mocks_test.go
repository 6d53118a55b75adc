package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/foodflow/backend/internal/domain"
)

// mockGateway is a scriptable ModelGateway. Each call pops the next response
// from the queue; when the queue is empty the last response repeats.
type mockGateway struct {
	mu        sync.Mutex
	responses []mockResponse
	calls     []mockCall
}

type mockResponse struct {
	reply string
	err   error
}

type mockCall struct {
	model string
	task  domain.TaskType
}

func (m *mockGateway) Invoke(ctx context.Context, modelID string, task domain.TaskType, payload domain.ModelPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, mockCall{model: modelID, task: task})

	if len(m.responses) == 0 {
		return "", &domain.ModelError{Kind: domain.KindTransportError, Model: modelID}
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp.reply, resp.err
}

func (m *mockGateway) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockGateway) calledModels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	models := make([]string, len(m.calls))
	for i, c := range m.calls {
		models[i] = c.model
	}
	return models
}

// mockCache is an in-memory CacheRepository without TTL handling
type mockCache struct {
	mu      sync.Mutex
	entries map[string]*domain.CacheEntry
	puts    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]*domain.CacheEntry)}
}

func (m *mockCache) key(fingerprint string, task domain.TaskType) string {
	return string(task) + ":" + fingerprint
}

func (m *mockCache) Get(ctx context.Context, fingerprint string, task domain.TaskType) (*domain.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[m.key(fingerprint, task)]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return entry, nil
}

func (m *mockCache) Put(ctx context.Context, entry *domain.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	stored := *entry
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.entries[m.key(entry.Fingerprint, entry.Task)] = &stored
	return nil
}

func (m *mockCache) Delete(ctx context.Context, fingerprint string, task domain.TaskType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, m.key(fingerprint, task))
	return nil
}

func (m *mockCache) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func modelErr(kind domain.ErrorKind, model string) error {
	return &domain.ModelError{Kind: kind, Model: model}
}

func strPtr(s string) *string { return &s }
