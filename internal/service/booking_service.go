package service

import (
	"context"
	"errors"
	"fmt"

	"titan/internal/domain"
	"titan/internal/events"
	"titan/internal/models"

	"github.com/rs/zerolog"
)

var ErrInvalidPayload = errors.New("invalid booking payload")

type BookingService struct {
	store       domain.BookingStore
	notifier    domain.Notifier
	eventBus    domain.EventPublisher
	technicians domain.TechnicianService
	ids         *IDGenerator
	logger      *zerolog.Logger
}

func NewBookingService(
	store domain.BookingStore,
	notifier domain.Notifier,
	eventBus domain.EventPublisher,
	technicians domain.TechnicianService,
	ids *IDGenerator,
	logger *zerolog.Logger,
) *BookingService {
	if ids == nil {
		ids = NewIDGenerator(nil)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		store:       store,
		notifier:    notifier,
		eventBus:    eventBus,
		technicians: technicians,
		ids:         ids,
		logger:      logger,
	}
}

// CreateBooking stores the payload as a new pending booking and waits for
// the mirror write. Notifications are attempted only after a successful
// write and never fail the call.
func (s *BookingService) CreateBooking(ctx context.Context, body []byte) (models.Booking, error) {
	fields, err := models.PayloadFields(body)
	if err != nil {
		return models.Booking{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	id, createdAt := s.ids.Next()
	rec := models.Booking{
		ID:        id,
		Status:    models.StatusPending,
		CreatedAt: createdAt,
		Fields:    fields,
	}

	stored, err := s.store.Append(ctx, rec)
	if err != nil {
		return stored, err
	}

	s.publishEvent(events.EventBookingCreated, stored)
	s.notify(ctx, stored)

	return stored, nil
}

func (s *BookingService) ListBookings(ctx context.Context) []models.Booking {
	return s.store.List()
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (models.Booking, error) {
	return s.store.FindByID(id)
}

// UpdateBooking changes the status and optionally attaches a technician.
func (s *BookingService) UpdateBooking(ctx context.Context, id, status string, technicianID *string) (models.Booking, error) {
	updated, err := s.store.UpdateStatus(ctx, id, status, technicianID)
	if err != nil {
		return models.Booking{}, err
	}

	s.publishEvent(events.EventBookingStatusChanged, updated)
	if technicianID != nil {
		s.publishEvent(events.EventBookingAssigned, updated)
	}
	return updated, nil
}

// AutoAssign attaches the first technician whose tags cover the booking's
// service and marks the booking assigned.
func (s *BookingService) AutoAssign(ctx context.Context, id string) (models.Booking, models.Technician, error) {
	if s.technicians == nil {
		return models.Booking{}, models.Technician{}, ErrNoTechnician
	}

	b, err := s.store.FindByID(id)
	if err != nil {
		return models.Booking{}, models.Technician{}, err
	}

	tech, err := s.technicians.AssignTechnician(b.Field(models.FieldService))
	if err != nil {
		return models.Booking{}, models.Technician{}, err
	}

	techID := tech.ID
	updated, err := s.UpdateBooking(ctx, id, models.StatusAssigned, &techID)
	if err != nil {
		return models.Booking{}, models.Technician{}, err
	}
	return updated, tech, nil
}

func (s *BookingService) notify(ctx context.Context, b models.Booking) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyBookingCreated(ctx, b); err != nil {
		s.logger.Error().Err(err).Str("booking_id", b.ID).Msg("booking notification failed")
		s.publishEvent(events.EventNotificationFailed, b)
	}
}

func (s *BookingService) publishEvent(eventType string, b models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: b.ID,
		Service:   b.Field(models.FieldService),
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
	}
	if b.TechnicianID != nil {
		payload.TechnicianID = *b.TechnicianID
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", b.ID).Msg("publish event error")
	}
}
