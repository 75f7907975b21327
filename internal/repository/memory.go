package repository

import (
	"context"
	"sync"

	"titan/internal/models"
)

// MemoryMirror keeps the last saved sequence in process memory only.
// Bookings are lost on restart.
type MemoryMirror struct {
	mu       sync.Mutex
	bookings []models.Booking
	saves    int
	err      error
}

func NewMemoryMirror(seed ...models.Booking) *MemoryMirror {
	return &MemoryMirror{bookings: cloneAll(seed)}
}

func (m *MemoryMirror) Load(ctx context.Context) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.bookings), nil
}

func (m *MemoryMirror) Save(ctx context.Context, bookings []models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.bookings = cloneAll(bookings)
	m.saves++
	return nil
}

// FailWith makes subsequent saves return err. Pass nil to recover.
func (m *MemoryMirror) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Saves reports how many saves succeeded.
func (m *MemoryMirror) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func cloneAll(in []models.Booking) []models.Booking {
	if in == nil {
		return nil
	}
	out := make([]models.Booking, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
