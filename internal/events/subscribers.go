package events

import (
	"titan/internal/metrics"

	"github.com/rs/zerolog"
)

// SubscribeMetrics feeds booking events into the prometheus collectors.
// stored reports the current number of bookings after each creation.
func SubscribeMetrics(bus *EventBus, stored func() int, logger *zerolog.Logger) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	bus.OnError(func(event *Event, err error) {
		logger.Error().Err(err).Str("event_type", event.Type).Msg("event handler failed")
	})

	count := func(event *Event) error {
		metrics.IncBookingEvent(event.Type)
		return nil
	}
	bus.Subscribe(EventBookingCreated, count)
	bus.Subscribe(EventBookingStatusChanged, count)
	bus.Subscribe(EventBookingAssigned, count)

	if stored != nil {
		bus.Subscribe(EventBookingCreated, func(*Event) error {
			metrics.SetBookingsStored(stored())
			return nil
		})
	}

	bus.Subscribe(EventNotificationFailed, func(event *Event) error {
		metrics.IncNotificationFailure()

		var payload BookingEventPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		logger.Warn().
			Str("booking_id", payload.BookingID).
			Str("service", payload.Service).
			Msg("booking accepted without notification")
		return nil
	})
}
