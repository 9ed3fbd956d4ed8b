package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"recycle.ecomap.kr/internal/middleware"
)

// Routes registers every endpoint and wraps the router with Sentry, request
// logging and security header middleware. ctx stops the cached metrics refresh.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second))

	router.HandlerFunc(http.MethodGet, "/v1/landmarks", app.landmarksHandler)
	router.HandlerFunc(http.MethodGet, "/v1/bins/nearest", app.nearestHandler)
	router.HandlerFunc(http.MethodPost, "/v1/bins/nearest", app.nearestHandler)
	router.HandlerFunc(http.MethodGet, "/v1/bins/nearest.geojson", app.nearestGeoJSONHandler)
	router.HandlerFunc(http.MethodGet, "/v1/bins/nearest.xlsx", app.nearestXLSXHandler)
	router.HandlerFunc(http.MethodGet, "/v1/navigation/qr", app.qrHandler)

	router.HandlerFunc(http.MethodPost, "/v1/sessions", app.createSessionHandler)
	router.HandlerFunc(http.MethodGet, "/v1/sessions/:id", app.getSessionHandler)
	router.HandlerFunc(http.MethodPut, "/v1/sessions/:id/location", app.updateLocationHandler)

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: "the requested resource could not be found"})
	})

	handler := middleware.SentryMiddleware(router)
	handler = middleware.RequestLogger(app.Logger, middleware.DefaultSkipPaths)(handler)
	return middleware.SecurityHeaders(handler)
}
