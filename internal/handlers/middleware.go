package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/scmmishra/qrtrack/internal/analytics"
)

func AuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				jsonError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RecoverToFallback turns a panic on the scan path into a redirect to the
// fallback URL, so a scanning user never sees an error page.
func RecoverToFallback(fallbackURL string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				log.Error("scan handler panicked",
					slog.String("path", r.URL.Path),
					slog.Any("panic", p),
				)
				analytics.ObserveRedirect(analytics.OutcomeError)
				http.Redirect(w, r, fallbackURL, http.StatusFound)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
