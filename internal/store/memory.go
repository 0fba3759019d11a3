package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/whookdev/echoprobe/internal/models"
)

// Memory keeps the most recent exchanges in a fixed-size ring.
type Memory struct {
	mu       sync.RWMutex
	items    []models.Exchange
	next     int
	full     bool
	capacity int
}

func NewMemory(capacity int) (*Memory, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	return &Memory{
		items:    make([]models.Exchange, capacity),
		capacity: capacity,
	}, nil
}

func (m *Memory) Record(_ context.Context, ex *models.Exchange) error {
	if ex == nil {
		return fmt.Errorf("exchange cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[m.next] = *ex
	m.next = (m.next + 1) % m.capacity
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns up to n exchanges, oldest first. n <= 0 means all of them.
func (m *Memory) Recent(_ context.Context, n int) ([]models.Exchange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	size := m.next
	start := 0
	if m.full {
		size = m.capacity
		start = m.next
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]models.Exchange, 0, n)
	for i := size - n; i < size; i++ {
		out = append(out, m.items[(start+i)%m.capacity])
	}
	return out, nil
}
