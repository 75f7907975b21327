package domain

import (
	"context"

	"titan/internal/models"
)

// BookingStore is the booking sequence the handlers work against.
type BookingStore interface {
	Append(ctx context.Context, rec models.Booking) (models.Booking, error)
	List() []models.Booking
	FindByID(id string) (models.Booking, error)
	UpdateStatus(ctx context.Context, id, status string, technicianID *string) (models.Booking, error)
}

// Notifier delivers the new-booking messages. Implementations report
// failure through the returned error and never panic.
type Notifier interface {
	NotifyBookingCreated(ctx context.Context, booking models.Booking) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, body []byte) (models.Booking, error)
	ListBookings(ctx context.Context) []models.Booking
	GetBooking(ctx context.Context, id string) (models.Booking, error)
	UpdateBooking(ctx context.Context, id, status string, technicianID *string) (models.Booking, error)
	AutoAssign(ctx context.Context, id string) (models.Booking, models.Technician, error)
}

type TechnicianService interface {
	List() []models.Technician
	ByService(serviceType string) []models.Technician
	AssignTechnician(serviceType string) (models.Technician, error)
}
