package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "titan_booking"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	bookingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_events_total",
			Help:      "Booking lifecycle events by type.",
		},
		[]string{"event"},
	)

	persistResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_writes_total",
			Help:      "Durable mirror writes by result.",
		},
		[]string{"result"},
	)

	notificationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Bookings whose notifications failed at least partially.",
		},
	)

	bookingsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bookings_stored",
			Help:      "Bookings currently held in memory.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			bookingEvents,
			persistResults,
			notificationFailures,
			bookingsStored,
		)
	})
}

// ObserveHTTP records one finished request.
func ObserveHTTP(route string, code int, dur time.Duration) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route).Observe(dur.Seconds())
}

// IncBookingEvent counts a lifecycle event such as booking_created.
func IncBookingEvent(event string) {
	bookingEvents.WithLabelValues(event).Inc()
}

// ObservePersist counts a mirror write outcome.
func ObservePersist(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	persistResults.WithLabelValues(result).Inc()
}

func IncNotificationFailure() {
	notificationFailures.Inc()
}

func SetBookingsStored(n int) {
	bookingsStored.Set(float64(n))
}
