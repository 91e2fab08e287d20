package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "salonbook"

var (
	once sync.Once

	bookingSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_submitted_total",
			Help:      "Count of booking submissions by outcome.",
		},
		[]string{"status"},
	)

	staleResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Count of async responses dropped because the selection moved on.",
		},
		[]string{"fetch"},
	)

	authExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_expired_total",
			Help:      "Count of session teardowns caused by an expired token.",
		},
	)

	galleryRollbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gallery_rollbacks_total",
			Help:      "Count of optimistic gallery updates rolled back.",
		},
		[]string{"action"},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Count of next-day reminders by delivery status.",
		},
		[]string{"status"},
	)

	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Backend API request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingSubmitted, staleResponses, authExpired, galleryRollbacks, remindersSent, apiRequestDuration)
	})
}

func IncBookingSubmitted(status string) {
	bookingSubmitted.WithLabelValues(status).Inc()
}

func IncStaleResponse(fetch string) {
	staleResponses.WithLabelValues(fetch).Inc()
}

func IncAuthExpired() {
	authExpired.Inc()
}

func IncGalleryRollback(action string) {
	galleryRollbacks.WithLabelValues(action).Inc()
}

func IncReminderSent(status string) {
	remindersSent.WithLabelValues(status).Inc()
}

// ObserveAPIRequest records one backend call. status 0 means a transport error.
func ObserveAPIRequest(endpoint string, status int, d time.Duration) {
	apiRequestDuration.WithLabelValues(endpoint, strconv.Itoa(status)).Observe(d.Seconds())
}
