package routes

import (
	"net/http"

	"github.com/sooahkim/childcenter-chat/internal/api/handlers"
	"github.com/sooahkim/childcenter-chat/internal/api/middleware"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	chatHandler   *handlers.ChatHandler
	centerHandler *handlers.CenterHandler
	reportHandler *handlers.ReportHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	chatHandler *handlers.ChatHandler,
	centerHandler *handlers.CenterHandler,
	reportHandler *handlers.ReportHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		chatHandler:     chatHandler,
		centerHandler:   centerHandler,
		reportHandler:   reportHandler,
		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Chat endpoint
	r.mux.HandleFunc("POST /api/chat", r.chatHandler.HandleChat)

	// Center endpoints
	r.mux.HandleFunc("GET /api/centers/search", r.centerHandler.SearchCenters)
	r.mux.HandleFunc("GET /api/centers/{id}", r.centerHandler.GetCenter)

	// Report endpoint
	if r.reportHandler != nil {
		r.mux.HandleFunc("POST /api/reports/generate", r.reportHandler.GenerateReport)
	}

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS must be outermost so cached responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
