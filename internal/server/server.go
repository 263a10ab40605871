package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongminglow/message-bus/internal/auth"
	"github.com/hongminglow/message-bus/internal/config"
	"github.com/hongminglow/message-bus/internal/http/handlers"
	"github.com/hongminglow/message-bus/internal/middleware"
	"github.com/hongminglow/message-bus/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, logger *slog.Logger, users storage.UserStore, messages storage.MessageStore) *Server {
	return &Server{inner: &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Routes(cfg, logger, users, messages),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}}
}

// Routes builds the full handler chain: health, login, and the
// bearer-guarded message endpoints, wrapped in logging and CORS.
func Routes(cfg config.Config, logger *slog.Logger, users storage.UserStore, messages storage.MessageStore) http.Handler {
	mux := http.NewServeMux()

	handlers.NewHealthHandler(time.Now()).Register(mux)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	handlers.NewAuthHandler(users, tokens, logger).Register(mux)

	resolver := auth.NewIdentityResolver(tokens)
	authn := func(next http.Handler) http.Handler {
		return middleware.Authenticate(tokens, users, next)
	}
	handlers.NewMessageHandler(messages, users, resolver, logger).Register(mux, authn)

	return middleware.CORS(cfg.CORSOrigins, middleware.Logging(logger, mux))
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
