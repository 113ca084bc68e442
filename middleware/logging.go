package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Logging writes one line per request. Server errors are logged at error level.
func Logging(l *zap.Logger) Middleware {
	if l == nil {
		l = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", routePattern(r)),
				zap.Int("status", sw.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.Int("bytes", sw.count),
				zap.String("request_id", GetRequestID(r.Context())),
			}

			if sw.Status() >= http.StatusInternalServerError {
				l.Error("http", fields...)
				return
			}
			l.Info("http", fields...)
		})
	}
}
