package service

import (
	"strconv"
	"sync"
	"time"

	"titan/internal/models"
)

// IDGenerator derives booking ids from the creation time in Unix
// milliseconds. Ids are strictly increasing within a process: two bookings
// created in the same millisecond get consecutive values.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Observe raises the floor to the largest numeric id among bookings, so
// ids stay unique across restarts and backward clock steps. Non-numeric ids
// are ignored.
func (g *IDGenerator) Observe(bookings []models.Booking) *IDGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, b := range bookings {
		ms, err := strconv.ParseInt(b.ID, 10, 64)
		if err == nil && ms > g.last {
			g.last = ms
		}
	}
	return g
}

// Next returns a fresh id and the creation timestamp it was derived from.
func (g *IDGenerator) Next() (string, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	created := g.now().UTC().Truncate(time.Millisecond)
	ms := created.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10), created
}
