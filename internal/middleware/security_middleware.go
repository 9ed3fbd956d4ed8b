package middleware

import (
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
)

// SentryMiddleware captures panics in handlers and reports them with request data.
// Events are sent asynchronously so a slow Sentry endpoint never delays a ranking response.
func SentryMiddleware(next http.Handler) http.Handler {
	sentryHandler := sentryhttp.New(sentryhttp.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})

	return sentryHandler.Handle(next)
}

// SecurityHeaders adds a fixed set of security headers to every response.
//
// Responses are JSON, GeoJSON, XLSX or PNG and are never rendered as pages, so
// the content security policy denies everything. Ranking results depend on the
// caller's position and must not be cached by browsers or proxies.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Cache-Control", "no-store")
		h.Set("Pragma", "no-cache")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Permissions-Policy", "geolocation=(self)")
		next.ServeHTTP(w, r)
	})
}
