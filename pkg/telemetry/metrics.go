// Package telemetry exposes Prometheus metrics for the chat core and its
// HTTP surface.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ThreadsCreatedTotal counts new threads.
	ThreadsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_threads_created_total",
		Help: "Total threads created",
	})

	// MessagesTotal counts accepted messages, partitioned by whether they
	// carried images.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total accepted messages",
	}, []string{"with_images"})

	// AdmissionRejectsTotal counts rejected message posts by reason.
	AdmissionRejectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_admission_rejects_total",
		Help: "Total rejected message posts",
	}, []string{"reason"})

	// ConsentChangesTotal counts effective consent flag changes.
	ConsentChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_consent_changes_total",
		Help: "Total effective upload-consent changes",
	}, []string{"value"})

	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "status"})
)

// RecordConsentChange increments the consent counter for the new value.
func RecordConsentChange(value bool) {
	ConsentChangesTotal.WithLabelValues(strconv.FormatBool(value)).Inc()
}

// RecordMessage increments the accepted-message counter.
func RecordMessage(withImages bool) {
	MessagesTotal.WithLabelValues(strconv.FormatBool(withImages)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request duration and status for every handler.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		RequestDuration.WithLabelValues(r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
