package archive

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Archiver. Expired records are dropped lazily on
// Load.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[string]memoryRecord
}

type memoryRecord struct {
	data    []byte
	expires time.Time
}

// NewMemory creates a Memory archive. A non-positive ttl keeps records
// forever.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, records: make(map[string]memoryRecord)}
}

func (m *Memory) Save(_ context.Context, runID string, data []byte) error {
	rec := memoryRecord{data: append([]byte(nil), data...)}
	if m.ttl > 0 {
		rec.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[runID] = rec
	return nil
}

func (m *Memory) Load(_ context.Context, runID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[runID]
	if ok && !rec.expires.IsZero() && !m.now().Before(rec.expires) {
		delete(m.records, runID)
		ok = false
	}
	if !ok {
		return nil, fmt.Errorf("run '%s': %w", runID, ErrNotFound)
	}
	return append([]byte(nil), rec.data...), nil
}

func (m *Memory) Close() error { return nil }
