// Package notify sends the new-booking messages to the business owner and
// the customer. Senders report failures as errors wrapping ErrNotification.
package notify

import (
	"context"
	"errors"
	"fmt"

	"titan/internal/domain"
	"titan/internal/models"
)

var ErrNotification = errors.New("notification failed")

// Multi fans a booking out to every notifier and joins their errors.
type Multi []domain.Notifier

func (m Multi) NotifyBookingCreated(ctx context.Context, booking models.Booking) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := safeNotify(ctx, n, booking); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every notification.
type Nop struct{}

func (Nop) NotifyBookingCreated(context.Context, models.Booking) error { return nil }

func safeNotify(ctx context.Context, n domain.Notifier, booking models.Booking) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrNotification, r)
		}
	}()
	return n.NotifyBookingCreated(ctx, booking)
}
