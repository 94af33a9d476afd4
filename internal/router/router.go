package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"lexassist-backend/internal/handlers"
	"lexassist-backend/internal/middleware"
	"lexassist-backend/internal/websocket"
)

// Deps holds everything the router mounts. JWTAuth and Limiter are optional.
type Deps struct {
	Chat        *handlers.ChatHandler
	Documents   *handlers.DocumentHandler
	Translate   *handlers.TranslateHandler
	Agents      *handlers.AgentHandler
	ChatSocket  *websocket.ChatSocket
	JWTAuth     *middleware.JWTAuth
	Limiter     middleware.Limiter
	FrontendURL string
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.CORS(d.FrontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if d.JWTAuth != nil {
			r.Use(d.JWTAuth.Middleware)
		}
		if d.Limiter != nil {
			r.Use(middleware.RateLimit(d.Limiter))
		}

		// ──── Chat ────
		r.Post("/chat", d.Chat.Stream)
		if d.ChatSocket != nil {
			r.Get("/chat/ws", d.ChatSocket.HandleWebSocket)
		}

		// ──── Documents ────
		r.Route("/documents", func(r chi.Router) {
			r.Post("/analyze", d.Documents.Analyze)
			r.Post("/upload", d.Documents.Upload)
			if d.Documents.HasHistory() {
				r.Get("/analyses", d.Documents.History)
			}
		})

		// ──── Translation ────
		r.Post("/translate", d.Translate.Translate)

		// ──── Agents ────
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", d.Agents.List)
			r.Post("/", d.Agents.Run)
			if d.Agents.HasRuns() {
				r.Post("/runs", d.Agents.CreateRun)
				r.Get("/runs/{id}", d.Agents.GetRun)
			}
		})
	})

	return r
}
