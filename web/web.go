// Package web provides the HTTP API: resolution, validation, and
// conversion endpoints over the resolver service.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/spindleworks/spindle/app"
	"github.com/spindleworks/spindle/domain/manifest"
)

// Resolver resolves manifests.
type Resolver interface {
	Resolve(ctx context.Context, req app.Request) (*manifest.Manifest, error)
}

// Handler provides the API endpoints.
type Handler struct {
	resolver Resolver
	logger   zerolog.Logger
	maxDepth int
	metrics  bool
}

// Deps contains dependencies for the API handler.
type Deps struct {
	Resolver Resolver
	Logger   zerolog.Logger

	// MaxDepth bounds structure depth during standalone validation.
	MaxDepth int

	// Metrics exposes /metrics when set.
	Metrics bool
}

// NewHandler creates the API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		resolver: deps.Resolver,
		logger:   deps.Logger.With().Str("component", "web").Logger(),
		maxDepth: deps.MaxDepth,
		metrics:  deps.Metrics,
	}
}

// Router returns the API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(h.requestID)
	r.Use(h.logRequests)

	r.Get("/health", h.Health)
	r.Post("/api/resolve", h.ResolveManifest)
	r.Post("/api/validate", h.ValidateManifest)
	r.Post("/api/convert/manifest-to-{format}", h.ConvertManifest)

	if h.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

// requestID assigns each request an id, honoring one supplied by the
// caller.
func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

// logRequests logs one line per request.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Info().
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

type ctxKey int

const requestIDKey ctxKey = iota

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
