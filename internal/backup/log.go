package backup

import (
	"context"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
)

// LogBackend persists the backup log. Every mutating call is a single write:
// Remove must delete all ids atomically or none of them.
type LogBackend interface {
	Append(ctx context.Context, rec *Record) error
	// List returns every record in log order.
	List(ctx context.Context) ([]*Record, error)
	// Remove deletes the given ids and returns how many were present.
	Remove(ctx context.Context, ids []string) (int, error)
	Close() error
}

// MemoryLog is a LogBackend kept in process memory.
type MemoryLog struct {
	records []*Record
	writes  atomic.Int64
	mu      sync.RWMutex
}

func NewMemoryLog(records ...*Record) *MemoryLog {
	return &MemoryLog{records: records}
}

func (m *MemoryLog) Append(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *rec
	m.records = append(m.records, &c)
	m.writes.Add(1)
	return nil
}

func (m *MemoryLog) List(_ context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

func (m *MemoryLog) Remove(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept, removed := filterOut(m.records, ids)
	m.records = kept
	m.writes.Add(1)
	return removed, nil
}

// Writes counts mutating calls.
func (m *MemoryLog) Writes() int64 {
	return m.writes.Load()
}

func (m *MemoryLog) Close() error {
	return nil
}

// filterOut drops records whose id is in ids, keeping log order.
func filterOut(records []*Record, ids []string) ([]*Record, int) {
	drop := mapset.NewThreadUnsafeSet(ids...)
	kept := make([]*Record, 0, len(records))
	for _, r := range records {
		if !drop.Contains(r.ID) {
			kept = append(kept, r)
		}
	}
	return kept, len(records) - len(kept)
}

var _ LogBackend = (*MemoryLog)(nil)
