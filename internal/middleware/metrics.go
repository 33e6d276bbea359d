package middleware

import (
	"net/http"
	"strconv"

	"storefront-be/internal/metrics"

	"github.com/go-chi/chi/v5"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Metrics records request counts and latency labelled by chi route pattern.
func Metrics(m *metrics.ServerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timer := metrics.StartTimer()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			handler := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					handler = p
				}
			}

			m.Requests.WithLabelValues(handler, strconv.Itoa(sw.status)).Inc()
			m.LatencyMS.WithLabelValues(handler).Observe(float64(timer.Duration().Milliseconds()))
		})
	}
}
