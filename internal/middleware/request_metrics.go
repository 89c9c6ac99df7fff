package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mkanilsson/workout-backend/internal/instrumentation"
	"github.com/prometheus/client_golang/prometheus"
)

func RequestMetrics(instr *instrumentation.Instrumentation) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			begin := time.Now()

			instr.GaugeRequests.Inc()
			defer instr.GaugeRequests.Dec()

			resp := &responseWriter{respWriter, http.StatusOK}

			// handler call
			next.ServeHTTP(resp, req)

			status := strconv.Itoa(resp.statusCode)
			instr.HistogramRequestDuration.With(prometheus.Labels{
				"method":      req.Method,
				"status_code": status,
			}).Observe(time.Since(begin).Seconds())
			instr.CounterRequests.With(prometheus.Labels{
				"method": req.Method,
				"status": status,
			}).Inc()
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseWriter) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.statusCode = statusCode
}
