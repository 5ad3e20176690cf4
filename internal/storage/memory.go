package storage

import (
	"context"
	"sync"
)

// Memory keeps records in process memory. It backs the in-memory trade log
// and tests.
type Memory[T any] struct {
	mu      sync.RWMutex
	records []T
}

func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{}
}

func (m *Memory[T]) Save(ctx context.Context, record T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.records = append(m.records, record)
	m.mu.Unlock()
	return nil
}

func (m *Memory[T]) List(ctx context.Context, page, pageSize int) (PageResult[T], error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return PageResult[T]{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.records)
	start := Offset(page, pageSize)
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	data := make([]T, end-start)
	copy(data, m.records[start:end])
	return NewPageResult(page, pageSize, total, data), nil
}

// All returns a copy of every record.
func (m *Memory[T]) All() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, len(m.records))
	copy(out, m.records)
	return out
}

func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Since returns a copy of the records appended after the first n.
func (m *Memory[T]) Since(n int) []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(m.records) {
		return nil
	}
	out := make([]T, len(m.records)-n)
	copy(out, m.records[n:])
	return out
}
