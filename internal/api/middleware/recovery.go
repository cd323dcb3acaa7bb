package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mcoot/wordbomb/internal/api/apierr"
)

// Recovery turns a handler panic into a JSON 500. A panic after a websocket
// upgrade is only logged since the connection no longer speaks HTTP.
// It must sit inside Logging to see the upgrade.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						slog.Any("error", err),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)
					if rw, ok := w.(*ResponseWriter); ok && rw.Hijacked() {
						return
					}
					apierr.WriteError(w, apierr.NewInternalError())
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
