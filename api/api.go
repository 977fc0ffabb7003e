package api

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sakibyash/infinoz-bot1/api/gateway"
	"github.com/Sakibyash/infinoz-bot1/api/mcp"
)

// Server is the memory gateway HTTP server
type Server struct {
	config  Config
	gateway *gateway.Service
	metrics *Metrics
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server.
// The memory handle is injected so construction failures surface through
// the health check instead of preventing startup.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	var registry *prometheus.Registry
	if config.Metrics {
		registry = prometheus.NewRegistry()
		s.metrics = NewMetrics(registry)
	}

	s.gateway = &gateway.Service{
		Handle:    config.Handle,
		TopK:      config.TopK,
		Publisher: config.Publisher,
		Logger:    logger,
	}
	if s.metrics != nil {
		s.gateway.Recorder = s.metrics
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(s.requestLogger)
	app.Use(compress.New())

	app.Get("/", s.handleHealth)
	app.Post("/get-context", s.handleGetContext)
	app.Post("/add-memory", s.handleAddMemory)
	app.Get("/memories", s.handleListMemories)
	app.Get("/memories/:id/history", s.handleMemoryHistory)
	app.Delete("/memories/:id", s.handleDeleteMemory)

	if registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	if config.MCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Gateway: s.gateway,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Gateway returns the service backing the HTTP handlers.
func (s *Server) Gateway() *gateway.Service {
	return s.gateway
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting memory gateway",
		"listen", s.config.ListenAddr,
		"memory_ready", s.config.Handle.Ready(),
		"mcp", s.config.MCP,
		"metrics", s.config.Metrics,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// errorHandler renders unhandled errors and recovered panics as JSON.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	return c.Status(code).JSON(ErrorResponse{Error: msg})
}
