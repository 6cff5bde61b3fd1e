package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rootsreach/rootsreach-backend/pkg/metrics"
)

// Metrics labels each request with its chi route pattern, so every
// /materials/{id} lands in one series. Paths no route matched share the
// "unmatched" label.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := m.Begin()
			defer done()

			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := statusOf(ww)
			route := routePattern(r)
			if status == http.StatusNotFound && route == r.URL.Path {
				route = "unmatched"
			}
			m.Observe(r.Method, route, status, time.Since(start))
		})
	}
}
