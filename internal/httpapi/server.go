// Package httpapi exposes the JSON API consumed by the web frontend:
// authentication (Telegram login widget + email/password) and the
// authenticated account endpoint.
package httpapi

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/luvhive/backend/internal/logging"
	"github.com/luvhive/backend/internal/server/config"
	"github.com/luvhive/backend/internal/server/services"
)

type Server struct {
	app      *fiber.App
	addr     string
	logger   logging.Logger
	identity *services.IdentityService
	db       *sql.DB
}

func NewServer(cfg *config.Config, logger logging.Logger, identity *services.IdentityService, db *sql.DB) *Server {
	s := &Server{
		app:      fiber.New(),
		addr:     cfg.EndpointAddrHTTP,
		logger:   logger.With("module", "httpapi"),
		identity: identity,
		db:       db,
	}

	s.app.Use(recover.New())
	s.app.Use(cors.New())

	s.app.Get("/healthz", s.handleHealth)

	api := s.app.Group("/api/v1")
	api.Post("/auth/telegram", s.handleTelegramLogin)
	api.Post("/auth/register", s.handleRegister)
	api.Post("/auth/login", s.handleLogin)
	// middleware first: route handlers run in registration order
	api.Get("/me", jwtMiddleware([]byte(cfg.SecretKey)), s.handleMe)

	return s
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error(ctx, "health probe failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.app.Shutdown()
	}()

	s.logger.Info(ctx, "http api listening", "addr", s.addr)
	return s.app.Listen(s.addr, fiber.ListenConfig{DisableStartupMessage: true})
}
