package repository

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"titan/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyMirror struct {
	*MemoryMirror
	loadErr error
	loads   int
}

func (f *flakyMirror) Load(ctx context.Context) ([]models.Booking, error) {
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.MemoryMirror.Load(ctx)
}

func TestFailoverMirror(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("PrimaryHealthy", func(t *testing.T) {
		primary := &flakyMirror{MemoryMirror: NewMemoryMirror()}
		fallback := NewMemoryMirror()
		repo := NewFailoverMirror(primary, fallback, &logger)

		require.NoError(t, repo.Save(ctx, sampleBookings()))
		assert.Equal(t, 1, primary.Saves())
		assert.Equal(t, 1, fallback.Saves())

		got, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("PrimaryFailsOnSave", func(t *testing.T) {
		primary := &flakyMirror{MemoryMirror: NewMemoryMirror()}
		primary.FailWith(errors.New("redis down"))
		fallback := NewMemoryMirror()
		repo := NewFailoverMirror(primary, fallback, &logger)

		require.NoError(t, repo.Save(ctx, sampleBookings()))
		assert.Equal(t, 1, fallback.Saves())
		assert.True(t, repo.isDown)
	})

	t.Run("BothFail", func(t *testing.T) {
		primary := &flakyMirror{MemoryMirror: NewMemoryMirror()}
		primary.FailWith(errors.New("redis down"))
		fallback := NewMemoryMirror()
		fallback.FailWith(errors.New("disk full"))
		repo := NewFailoverMirror(primary, fallback, &logger)

		assert.Error(t, repo.Save(ctx, sampleBookings()))
	})

	t.Run("FallbackFailsWhilePrimaryHealthy", func(t *testing.T) {
		var buf bytes.Buffer
		bufLogger := zerolog.New(&buf)
		primary := &flakyMirror{MemoryMirror: NewMemoryMirror()}
		fallback := NewMemoryMirror()
		fallback.FailWith(errors.New("disk full"))
		repo := NewFailoverMirror(primary, fallback, &bufLogger)

		require.NoError(t, repo.Save(ctx, sampleBookings()))
		assert.Equal(t, 1, primary.Saves())
		assert.Zero(t, fallback.Saves())
		assert.False(t, repo.isDown)
		assert.Contains(t, buf.String(), `"level":"error"`)
		assert.Contains(t, buf.String(), "disk full")
		assert.Contains(t, buf.String(), "fallback bookings mirror write failed")
	})

	t.Run("EmptyPrimaryLoadsFallback", func(t *testing.T) {
		primary := &flakyMirror{MemoryMirror: NewMemoryMirror(), loadErr: ErrMirrorEmpty}
		fallback := NewMemoryMirror(sampleBookings()...)
		repo := NewFailoverMirror(primary, fallback, &logger)

		got, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.False(t, repo.isDown)
	})

	t.Run("RecoversAfterRecheck", func(t *testing.T) {
		primary := &flakyMirror{MemoryMirror: NewMemoryMirror(), loadErr: errors.New("timeout")}
		fallback := NewMemoryMirror(sampleBookings()...)
		repo := NewFailoverMirror(primary, fallback, &logger)
		clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		repo.now = func() time.Time { return clock }

		_, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.True(t, repo.isDown)

		_, _ = repo.Load(ctx)
		assert.Equal(t, 1, primary.loads, "primary skipped while down")

		primary.loadErr = nil
		clock = clock.Add(2 * failoverRecheck)
		_, err = repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, primary.loads)
		assert.False(t, repo.isDown)
	})
}
