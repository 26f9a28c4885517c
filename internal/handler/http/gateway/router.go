package gateway_http

import (
	"context"
	"net/http"
	"time"

	"docvault/internal/infrastructure/tokens"
	"docvault/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Caller issues a request–reply call to one downstream service.
type Caller interface {
	Send(ctx context.Context, pattern string, payload, out any, opts ...transport.CallOption) error
}

type Config struct {
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
	UploadTimeout  time.Duration
	MaxUploadBytes int64
}

func NewRouter(cfg Config, authSvc, fileSvc Caller, tm *tokens.Manager, logger *zap.Logger) http.Handler {
	h := &Handler{
		auth:           authSvc,
		files:          fileSvc,
		uploadTimeout:  cfg.UploadTimeout,
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         logger,
	}
	if h.maxUploadBytes <= 0 {
		h.maxUploadBytes = 10 << 20
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	allowCredentials := true
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowCredentials = false
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	}))

	if cfg.RateLimit > 0 {
		r.Use(newClientLimiter(cfg.RateLimit, cfg.RateBurst).middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/verify-email", h.VerifyEmail)
		r.Post("/request-password-reset", h.RequestPasswordReset)
		r.Post("/reset-password", h.ResetPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth(tm, logger))

		r.Get("/profile", h.Profile)

		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", h.UploadFile)
			r.Get("/", h.ListFiles)
			r.Get("/{id}", h.GetFile)
			r.Delete("/{id}", h.DeleteFile)
		})
	})

	return r
}
