package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studyhub-backend/internal/handlers"
	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	noteHandler *handlers.NoteHandler,
	taskHandler *handlers.TaskHandler,
	shareHandler *handlers.ShareHandler,
	streakHandler *handlers.StreakHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Share-send rate limiter (20 req/min per user)
	shareLimiter := middleware.NewRateLimiter(20, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Note Routes ────
		r.Route("/notes", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", noteHandler.Create)
			r.Get("/", noteHandler.List)
			r.Get("/{id}", noteHandler.Get)
			r.Post("/{id}/reviewed", noteHandler.MarkReviewed)
			r.Delete("/{id}", noteHandler.Delete)
		})

		// ──── Task Routes ────
		r.Route("/tasks", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", taskHandler.Create)
			r.Get("/", taskHandler.List)
			r.Put("/{id}/toggle", taskHandler.ToggleComplete)
			r.Delete("/{id}", taskHandler.Delete)
		})

		// ──── Share Routes ────
		r.Route("/shares", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.Group(func(r chi.Router) {
				r.Use(shareLimiter.Middleware)
				r.Post("/", shareHandler.Send)
			})

			r.Get("/inbox", shareHandler.Inbox)
			r.Get("/outbox", shareHandler.Outbox)
			r.Post("/{id}/accept", shareHandler.Accept)
			r.Post("/{id}/ignore", shareHandler.Ignore)
		})

		// ──── Streak Routes ────
		r.Route("/streak", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", streakHandler.Get)
			r.Post("/session", streakHandler.CompleteSession)
			r.Get("/trophies", streakHandler.Trophies)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
