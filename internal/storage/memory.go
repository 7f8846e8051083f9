package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore keeps uploads in process memory. Useful for tests and
// local development without an S3 endpoint.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
	nextSeq int

	// FailNext forces the next Upload to fail, for exercising
	// upstream-failure paths in tests.
	FailNext error
}

func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "mem://images"
	}
	return &MemoryStore{
		objects: make(map[string][]byte),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (m *MemoryStore) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrMissingFileName
	}
	if !ValidImageContentType(contentType) {
		return "", ErrInvalidContentType
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return "", err
	}

	m.nextSeq++
	key := fmt.Sprintf("%d_%s", m.nextSeq, filename)
	m.objects[key] = append([]byte(nil), data...)
	return m.baseURL + "/" + key, nil
}

// Get returns a stored object by the URL Upload returned.
func (m *MemoryStore) Get(url string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := strings.TrimPrefix(url, m.baseURL+"/")
	data, ok := m.objects[key]
	return data, ok
}

// Len reports the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
