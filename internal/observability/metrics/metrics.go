package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking pipeline.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	remoteCallTotal    *prometheus.CounterVec
	remoteCallLatency  *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Completed bookings by source (sandbox or demo)",
		}, []string{"source"}),
		remoteCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "remote_calls_total",
			Help:      "Remote sandbox calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		remoteCallLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "remote_call_latency_seconds",
			Help:      "Latency of remote sandbox calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "notifications_total",
			Help:      "Confirmation emails by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.remoteCallTotal, m.remoteCallLatency, m.notificationsTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(source string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(source).Inc()
}

func (m *BookingMetrics) ObserveRemoteCall(operation string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.remoteCallTotal.WithLabelValues(operation, outcome).Inc()
	m.remoteCallLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *BookingMetrics) ObserveNotification(status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(status).Inc()
}
