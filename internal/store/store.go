// Package store holds the authoritative booking sequence and keeps a durable
// mirror of it. Every mutation rewrites the whole mirror; there is no log.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"titan/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound    = errors.New("booking not found")
	ErrPersistence = errors.New("booking persistence failed")
)

// Mirror is the durable copy of the full booking sequence.
// Load returns the previously saved sequence; Save replaces it entirely.
type Mirror interface {
	Load(ctx context.Context) ([]models.Booking, error)
	Save(ctx context.Context, bookings []models.Booking) error
}

// PersistObserver is told about every completed mirror write.
type PersistObserver func(err error)

type Store struct {
	mu       sync.RWMutex
	bookings []*models.Booking

	mirror   Mirror
	logger   *zerolog.Logger
	now      func() time.Time
	observer PersistObserver
	inflight sync.WaitGroup
}

type Option func(*Store)

// WithClock overrides the time source used for assignedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPersistObserver registers a callback for persist outcomes.
func WithPersistObserver(fn PersistObserver) Option {
	return func(s *Store) { s.observer = fn }
}

func New(mirror Mirror, logger *zerolog.Logger, opts ...Option) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Store{
		mirror: mirror,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize adopts the mirror contents. Any load failure leaves the store
// empty and is only logged.
func (s *Store) Initialize(ctx context.Context) {
	loaded, err := s.mirror.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not load bookings mirror, starting empty")
		loaded = nil
	}

	bookings := make([]*models.Booking, 0, len(loaded))
	for i := range loaded {
		b := loaded[i].Clone()
		bookings = append(bookings, &b)
	}

	s.mu.Lock()
	s.bookings = bookings
	s.mu.Unlock()

	s.logger.Info().Int("count", len(bookings)).Msg("bookings loaded")
}

// Append adds rec at the end of the sequence and waits for the mirror
// write. The record stays in memory even if that write fails.
func (s *Store) Append(ctx context.Context, rec models.Booking) (models.Booking, error) {
	stored := rec.Clone()

	s.mu.Lock()
	s.bookings = append(s.bookings, &stored)
	out := stored.Clone()
	s.mu.Unlock()

	if err := s.Persist(ctx); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Store) List() []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings)
}

func (s *Store) FindByID(id string) (models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b := s.findLocked(id); b != nil {
		return b.Clone(), nil
	}
	return models.Booking{}, ErrNotFound
}

// UpdateStatus sets the status of booking id. An empty status keeps the
// current one. A non-nil technicianID is attached and stamps assignedAt.
// The mirror write runs in the background and its failure is not returned.
func (s *Store) UpdateStatus(ctx context.Context, id, status string, technicianID *string) (models.Booking, error) {
	s.mu.Lock()
	b := s.findLocked(id)
	if b == nil {
		s.mu.Unlock()
		return models.Booking{}, ErrNotFound
	}

	if status != "" {
		b.Status = status
	}
	if technicianID != nil {
		tech := *technicianID
		at := s.now().UTC()
		b.TechnicianID = &tech
		b.AssignedAt = &at
	}
	out := b.Clone()
	s.mu.Unlock()

	s.persistAsync(context.WithoutCancel(ctx))
	return out, nil
}

// Persist writes the whole current sequence to the mirror.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.RLock()
	snapshot := s.snapshotLocked()
	s.mu.RUnlock()

	err := s.mirror.Save(ctx, snapshot)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrPersistence, err)
		s.logger.Error().Err(err).Int("count", len(snapshot)).Msg("bookings mirror write failed")
	}
	if s.observer != nil {
		s.observer(err)
	}
	return err
}

// Wait blocks until background mirror writes have finished.
func (s *Store) Wait() {
	s.inflight.Wait()
}

func (s *Store) persistAsync(ctx context.Context) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		_ = s.Persist(ctx)
	}()
}

func (s *Store) findLocked(id string) *models.Booking {
	for _, b := range s.bookings {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (s *Store) snapshotLocked() []models.Booking {
	out := make([]models.Booking, len(s.bookings))
	for i, b := range s.bookings {
		out[i] = b.Clone()
	}
	return out
}
