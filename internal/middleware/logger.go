package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestObserver records request latency.
type RequestObserver interface {
	ObserveRequest(method, route, status string, seconds float64)
}

// unmatchedRoute labels requests that no route matched, so raw paths never
// reach logs or metric labels.
const unmatchedRoute = "unmatched"

// Logger logs one line per completed request and, when obs is non-nil,
// records its latency under the matched route pattern. RequestID must run
// before it.
func Logger(logger *slog.Logger, obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			route := unmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("req_id", chimw.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("latency", elapsed),
				slog.String("remote_addr", r.RemoteAddr),
			)

			if obs != nil {
				obs.ObserveRequest(r.Method, route, strconv.Itoa(status), elapsed.Seconds())
			}
		})
	}
}
