package calls

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory repository for tests and local development.
// Reads are scoped to the owning account.
type MemoryRepo struct {
	mu      sync.Mutex
	records []Record

	// FailInsert, when set, is returned from Insert.
	FailInsert error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (m *MemoryRepo) Insert(ctx context.Context, r Record) (Record, error) {
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailInsert != nil {
		return Record{}, m.FailInsert
	}
	m.records = append(m.records, r)
	return r, nil
}

func (m *MemoryRepo) ListRecent(ctx context.Context, userID string, limit int) ([]Record, error) {
	if userID == "" {
		return nil, errors.New("calls: user_id required")
	}
	if limit <= 0 {
		limit = 10
	}
	out := m.filter(func(r Record) bool { return r.UserID == userID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepo) ListRange(ctx context.Context, userID string, from, to time.Time) ([]Record, error) {
	if userID == "" {
		return nil, errors.New("calls: user_id required")
	}
	return m.filter(func(r Record) bool {
		return r.UserID == userID && !r.CreatedAt.Before(from) && r.CreatedAt.Before(to)
	}), nil
}

// All returns every stored row in insertion order.
func (m *MemoryRepo) All() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// filter returns matching rows, newest first.
func (m *MemoryRepo) filter(keep func(Record) bool) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0)
	for _, r := range m.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
