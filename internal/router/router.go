package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Rajat-malhotra0/draw-agent/internal/handlers"
	"github.com/Rajat-malhotra0/draw-agent/internal/middleware"
)

// Relay is the websocket entry point of the draw-event hub.
type Relay interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

func New(
	aiHandler *handlers.AIHandler,
	canvasHandler *handlers.CanvasHandler,
	healthHandler *handlers.HealthHandler,
	aiLimiter *middleware.RateLimiter,
	relay Relay,
	corsOrigin string,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(corsOrigin))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.NotFound)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		// ──── AI Routes ────
		r.Route("/ai", func(r chi.Router) {
			if aiLimiter != nil {
				r.Use(aiLimiter.Middleware)
			}
			r.Post("/solve", aiHandler.Solve)
			r.Get("/test", aiHandler.Test)
			r.Post("/analyze", aiHandler.Analyze)
		})

		// ──── Canvas Routes ────
		r.Route("/canvas", func(r chi.Router) {
			r.Post("/draw", canvasHandler.Draw)
			r.Get("/state", canvasHandler.State)
			r.Post("/image", canvasHandler.StoreImage)
			r.Get("/render.png", canvasHandler.Render)
		})
	})

	// ──── Relay ────
	r.Get("/ws", relay.HandleWebSocket)

	return r
}
