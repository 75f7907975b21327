package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"titan/internal/models"
	"titan/internal/store"

	"github.com/rs/zerolog"
)

const failoverRecheck = time.Minute

// FailoverMirror writes to primary and switches to fallback once primary
// fails. Primary is retried on the next call after failoverRecheck.
// Saves always go to fallback as well, so it stays current for restarts.
type FailoverMirror struct {
	primary  store.Mirror
	fallback store.Mirror
	logger   *zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	isDown    bool
	lastCheck time.Time
}

func NewFailoverMirror(primary, fallback store.Mirror, logger *zerolog.Logger) *FailoverMirror {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverMirror{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverMirror) usePrimary() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.isDown || r.now().Sub(r.lastCheck) > failoverRecheck
}

func (r *FailoverMirror) markDown(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isDown {
		r.logger.Error().Err(err).Msg("primary bookings mirror failed, falling back")
	}
	r.isDown = true
	r.lastCheck = r.now()
}

func (r *FailoverMirror) markUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isDown {
		r.logger.Info().Msg("primary bookings mirror recovered")
	}
	r.isDown = false
}

func (r *FailoverMirror) Load(ctx context.Context) ([]models.Booking, error) {
	if r.usePrimary() {
		bookings, err := r.primary.Load(ctx)
		if err == nil {
			r.markUp()
			return bookings, nil
		}
		if !errors.Is(err, ErrMirrorEmpty) {
			r.markDown(err)
		}
	}
	return r.fallback.Load(ctx)
}

func (r *FailoverMirror) Save(ctx context.Context, bookings []models.Booking) error {
	fallbackErr := r.fallback.Save(ctx, bookings)
	if fallbackErr != nil {
		r.logger.Error().Err(fallbackErr).Int("count", len(bookings)).Msg("fallback bookings mirror write failed")
	}

	if r.usePrimary() {
		err := r.primary.Save(ctx, bookings)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return fallbackErr
}
