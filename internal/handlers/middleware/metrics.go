package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type requestObserver interface {
	WithLabelValues(lvs ...string) prometheus.Observer
}

// MetricsMiddleware records request latency labeled by method and status
func MetricsMiddleware(duration requestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lw := &logWriter{
				ResponseWriter: w,
				data:           logData{responseStatus: http.StatusOK},
			}

			next.ServeHTTP(lw, r)

			duration.
				WithLabelValues(r.Method, strconv.Itoa(lw.data.responseStatus)).
				Observe(time.Since(start).Seconds())
		})
	}
}
