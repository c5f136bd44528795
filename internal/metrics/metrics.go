package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smena",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smena",
			Name:      "bookings_created_total",
			Help:      "Bookings added to live shifts.",
		},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smena",
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions by action.",
		},
		[]string{"action"},
	)

	shiftsArchived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smena",
			Name:      "shifts_archived_total",
			Help:      "Shifts moved to the archive on rollover.",
		},
	)

	reportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smena",
			Name:      "report_duration_seconds",
			Help:      "Time spent assembling reports.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			bookingTransitions,
			shiftsArchived,
			reportDuration,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingCreated counts a new booking.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncBookingTransition counts a status transition by action label.
func IncBookingTransition(action string) {
	bookingTransitions.WithLabelValues(action).Inc()
}

// IncShiftArchived counts an archived shift.
func IncShiftArchived() {
	shiftsArchived.Inc()
}

// ObserveReportDuration records how long a report took to build.
func ObserveReportDuration(kind string, seconds float64) {
	reportDuration.WithLabelValues(kind).Observe(seconds)
}
