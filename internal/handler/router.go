package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/timi/timi-go/internal/middleware"
	"github.com/timi/timi-go/internal/model"
	"github.com/timi/timi-go/internal/service"
)

// RouterConfig carries the dependencies of the HTTP API.
type RouterConfig struct {
	Auth        *service.AuthService
	Tasks       *service.TaskService
	Logger      *slog.Logger
	CORSOrigins []string
	// RateLimit guards the credential endpoints. Nil disables limiting.
	RateLimit func(http.Handler) http.Handler
}

// NewRouter builds the chi router serving the API.
func NewRouter(cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(cfg.Auth, cfg.Logger)
	taskHandler := NewTaskHandler(cfg.Tasks, cfg.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", HandleHealth)
	r.Post("/logout", authHandler.HandleLogout)

	r.Group(func(r chi.Router) {
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Auth, cfg.Logger))

		r.Get("/me", authHandler.HandleMe)
		r.Patch("/me", authHandler.HandleUpdateMe)
		r.Delete("/me", authHandler.HandleDeleteMe)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.HandleList)
			r.Post("/", taskHandler.HandleCreate)
			r.Get("/{id}", taskHandler.HandleGet)
			r.Put("/{id}", taskHandler.HandleUpdate)
			r.Delete("/{id}", taskHandler.HandleDelete)
		})
	})

	return r
}

// HandleHealth handles GET /health requests.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}
