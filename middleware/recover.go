package middleware

import (
	"fmt"
	"net/http"

	"englishbuddy/pkg/apperror"
	"englishbuddy/pkg/logger"
)

// Recover turns a panic into a 500 INTERNAL response. The panic value is only logged.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Sugar.Errorf("Recovered panic on %s %s: %v", r.Method, r.URL.Path, rec)
					apperror.Write(w, r, apperror.NewInternal(fmt.Errorf("panic: %v", rec)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
