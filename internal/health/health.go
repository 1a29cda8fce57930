// Package health serves the liveness endpoint probed by the hosting platform.
package health

import (
	"context"
	"errors"
	"net"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"

	"gitlab.com/yelinaung/gastos-bot/internal/logger"
)

// Body is returned for every request.
const Body = "Bot vivo"

// Server answers any request with 200 and Body.
type Server struct {
	app  *fiber.App
	addr string
}

// New creates a server listening on port once started.
func New(port string) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "gastos-bot",
	})
	app.Use(otelfiber.Middleware())
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString(Body)
	})

	return &Server{app: app, addr: net.JoinHostPort("", port)}
}

// App exposes the fiber app for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logger.Log.Info().Str("addr", s.addr).Msg("Health server listening")
	if err := s.app.Listen(s.addr); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
