package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"titan/internal/events"
	"titan/internal/models"
	"titan/internal/repository"
	"titan/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyBookingCreated(ctx context.Context, b models.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

type recordingBus struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingBus) PublishJSON(eventType string, _ interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	return nil
}

func testRoster() []models.Technician {
	return []models.Technician{
		{ID: "t1", Name: "Sam", Services: []string{"smart-home"}},
		{ID: "t2", Name: "Lee", Services: []string{"tv-mounting", "smart-home"}},
		{ID: "t3", Name: "Kim", Services: []string{"tv-mounting"}},
	}
}

type fixture struct {
	svc      *BookingService
	store    *store.Store
	mirror   *repository.MemoryMirror
	notifier *MockNotifier
	bus      *recordingBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	mirror := repository.NewMemoryMirror()
	st := store.New(mirror, &logger)
	st.Initialize(context.Background())
	notifier := new(MockNotifier)
	bus := &recordingBus{}

	clock := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	ids := NewIDGenerator(func() time.Time { return clock })

	svc := NewBookingService(st, notifier, bus, NewTechnicianService(testRoster()), ids, &logger)
	t.Cleanup(st.Wait)
	return &fixture{svc: svc, store: st, mirror: mirror, notifier: notifier, bus: bus}
}

func TestBookingService_CreateBooking(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("NotifyBookingCreated", mock.Anything, mock.Anything).Return(nil)

	b, err := f.svc.CreateBooking(context.Background(), []byte(`{"service":"tv-mounting","customerName":"A","customerEmail":"a@x.com","status":"confirmed","id":"forged"}`))
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.NotEqual(t, "forged", b.ID)
	assert.Equal(t, models.StatusPending, b.Status)
	assert.False(t, b.CreatedAt.IsZero())
	assert.Equal(t, "tv-mounting", b.Field(models.FieldService))

	list := f.svc.ListBookings(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, 1, f.mirror.Saves(), "create waits for the mirror write")

	f.notifier.AssertNumberOfCalls(t, "NotifyBookingCreated", 1)
	assert.Equal(t, []string{events.EventBookingCreated}, f.bus.events)
}

func TestBookingService_CreateBookingUniqueIDs(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("NotifyBookingCreated", mock.Anything, mock.Anything).Return(nil)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		b, err := f.svc.CreateBooking(context.Background(), []byte(`{}`))
		require.NoError(t, err)
		assert.False(t, seen[b.ID], "duplicate id %s", b.ID)
		seen[b.ID] = true
	}

	list := f.svc.ListBookings(context.Background())
	require.Len(t, list, 5)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].ID, list[i].ID, "append order follows creation order")
	}
}

func TestBookingService_CreateBookingInvalidPayload(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBooking(context.Background(), []byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, f.svc.ListBookings(context.Background()))
	f.notifier.AssertNotCalled(t, "NotifyBookingCreated", mock.Anything, mock.Anything)
}

func TestBookingService_CreateBookingPersistFailure(t *testing.T) {
	f := newFixture(t)
	f.mirror.FailWith(errors.New("disk full"))

	_, err := f.svc.CreateBooking(context.Background(), []byte(`{"service":"x"}`))
	assert.ErrorIs(t, err, store.ErrPersistence)
	f.notifier.AssertNotCalled(t, "NotifyBookingCreated", mock.Anything, mock.Anything)
}

func TestBookingService_NotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("NotifyBookingCreated", mock.Anything, mock.Anything).Return(errors.New("gmail down"))

	b, err := f.svc.CreateBooking(context.Background(), []byte(`{"service":"x"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Contains(t, f.bus.events, events.EventNotificationFailed)
}

func TestBookingService_UpdateBooking(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("NotifyBookingCreated", mock.Anything, mock.Anything).Return(nil)
	b, err := f.svc.CreateBooking(context.Background(), []byte(`{"service":"tv-mounting"}`))
	require.NoError(t, err)

	updated, err := f.svc.UpdateBooking(context.Background(), b.ID, models.StatusConfirmed, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Nil(t, updated.TechnicianID)
	assert.Nil(t, updated.AssignedAt)

	tech := "t3"
	updated, err = f.svc.UpdateBooking(context.Background(), b.ID, models.StatusAssigned, &tech)
	require.NoError(t, err)
	require.NotNil(t, updated.TechnicianID)
	assert.Equal(t, "t3", *updated.TechnicianID)
	assert.NotNil(t, updated.AssignedAt)
	assert.Contains(t, f.bus.events, events.EventBookingAssigned)

	_, err = f.svc.UpdateBooking(context.Background(), "nope", models.StatusConfirmed, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBookingService_AutoAssign(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("NotifyBookingCreated", mock.Anything, mock.Anything).Return(nil)

	b, err := f.svc.CreateBooking(context.Background(), []byte(`{"service":"tv-mounting"}`))
	require.NoError(t, err)

	updated, tech, err := f.svc.AutoAssign(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "t2", tech.ID, "first roster match wins")
	assert.Equal(t, models.StatusAssigned, updated.Status)
	require.NotNil(t, updated.TechnicianID)
	assert.Equal(t, "t2", *updated.TechnicianID)

	other, err := f.svc.CreateBooking(context.Background(), []byte(`{"service":"plumbing"}`))
	require.NoError(t, err)
	_, _, err = f.svc.AutoAssign(context.Background(), other.ID)
	assert.ErrorIs(t, err, ErrNoTechnician)

	_, _, err = f.svc.AutoAssign(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTechnicianService(t *testing.T) {
	s := NewTechnicianService(testRoster())

	tech, err := s.AssignTechnician("smart-home")
	require.NoError(t, err)
	assert.Equal(t, "t1", tech.ID)

	_, err = s.AssignTechnician("roofing")
	assert.ErrorIs(t, err, ErrNoTechnician)

	matches := s.ByService("tv-mounting")
	require.Len(t, matches, 2)
	assert.Equal(t, "t2", matches[0].ID)
	assert.Equal(t, "t3", matches[1].ID)

	assert.Empty(t, s.ByService("roofing"))
	assert.Len(t, s.List(), 3)
}

func TestLoadRoster(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "technicians.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
technicians:
  - id: t1
    name: Sam
    phone: "555-0100"
    email: sam@example.com
    services: [tv-mounting, smart-home]
  - id: t2
    name: Lee
    services: [plumbing]
`), 0o644))

	roster, err := LoadRoster(good)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "555-0100", roster[0].Phone)
	assert.Equal(t, []string{"tv-mounting", "smart-home"}, roster[0].Services)

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("technicians:\n  - id: a\n  - id: a\n"), 0o644))
	_, err = LoadRoster(dup)
	assert.Error(t, err)

	_, err = LoadRoster(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestIDGenerator(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 500_000, time.UTC)
	g := NewIDGenerator(func() time.Time { return clock })

	id1, created := g.Next()
	id2, _ := g.Next()
	assert.Equal(t, "1735689600000", id1)
	assert.Equal(t, "1735689600001", id2)
	assert.Equal(t, int64(0), int64(created.Nanosecond()), "created time is truncated to ms")

	clock = clock.Add(-time.Second)
	id3, _ := g.Next()
	assert.Equal(t, "1735689600002", id3, "ids never go backwards")
}

func TestIDGeneratorObserveLoadedBookings(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	loaded := []models.Booking{
		{ID: "1735689600004"},
		{ID: "legacy-7"},
		{ID: "1735689600001"},
	}

	g := NewIDGenerator(func() time.Time { return clock }).Observe(loaded)
	id, created := g.Next()
	assert.Equal(t, "1735689600005", id, "restart after a burst continues past stored ids")
	assert.True(t, clock.Equal(created), "createdAt still follows the clock")

	later := clock.Add(time.Hour)
	g = NewIDGenerator(func() time.Time { return later }).Observe(loaded)
	id, _ = g.Next()
	assert.Equal(t, strconv.FormatInt(later.UnixMilli(), 10), id)
}

func TestBookingService_CreateAfterRestartKeepsIDsUnique(t *testing.T) {
	logger := zerolog.Nop()
	clock := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	mirror := repository.NewMemoryMirror()

	first := store.New(mirror, &logger)
	first.Initialize(context.Background())
	svc := NewBookingService(first, nil, nil, nil, NewIDGenerator(now), &logger)
	for i := 0; i < 3; i++ {
		_, err := svc.CreateBooking(context.Background(), []byte(`{}`))
		require.NoError(t, err)
	}

	restarted := store.New(mirror, &logger)
	restarted.Initialize(context.Background())
	svc = NewBookingService(restarted, nil, nil, nil, NewIDGenerator(now).Observe(restarted.List()), &logger)
	b, err := svc.CreateBooking(context.Background(), []byte(`{}`))
	require.NoError(t, err)

	seen := map[string]int{}
	for _, rec := range restarted.List() {
		seen[rec.ID]++
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, 1, seen[b.ID])
}
