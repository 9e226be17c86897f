package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Caiqueoak/cade-meu-busao/internal/middleware"
)

// Routes registers the API endpoints and wraps them with, from the outside
// in, security headers, CORS and Sentry. ctx bounds the metrics cache
// refresher.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second))

	router.HandlerFunc(http.MethodPost, "/v1/sessions", app.createSessionHandler)
	router.HandlerFunc(http.MethodGet, "/v1/sessions/:id", app.showSessionHandler)
	router.HandlerFunc(http.MethodPost, "/v1/sessions/:id/search", app.searchSessionHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/sessions/:id", app.deleteSessionHandler)

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	return middleware.Chain(router,
		middleware.SecurityHeaders,
		middleware.CORS(app.Config.CORS.AllowedOrigins),
		middleware.SentryMiddleware,
	)
}
