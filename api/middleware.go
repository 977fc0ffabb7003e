package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// requestLogger logs each request and records its metrics once the handler
// chain has finished.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()

	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		// Let the error handler pick the final status
		if fe, ok := err.(*fiber.Error); ok { //nolint:errorlint // fiber's own type
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}

	route := c.Route().Path
	elapsed := time.Since(start)

	s.metrics.ObserveRequest(c.Method(), route, status, elapsed.Seconds())

	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"route", route,
		"status", status,
		"duration", elapsed,
	)

	return err
}
