// Package servecmder provides the serve command that runs the memory gateway.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Sakibyash/infinoz-bot1/api"
	"github.com/Sakibyash/infinoz-bot1/pkg/config"
	"github.com/Sakibyash/infinoz-bot1/pkg/credentials"
	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream/async"
	eventstreamutils "github.com/Sakibyash/infinoz-bot1/pkg/eventstream/utils"
	"github.com/Sakibyash/infinoz-bot1/pkg/logger"
	memoryutils "github.com/Sakibyash/infinoz-bot1/pkg/memory/utils"
)

type serveCommander struct {
	flags config.FlagSet

	listen           string
	memoryProvider   string
	topK             uint
	llmProvider      string
	llmModel         string
	embedderProvider string
	embedderModel    string
	vectorProvider   string
	vectorTarget     string
	historyProvider  string
	eventsProvider   string

	envFile   string
	jsonLogs  bool
	logFile   string
	configDir string
	debug     bool

	cfg    *config.Config
	logger *slog.Logger
}

// serveFlags are the registry flags bound to viper for this command.
var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagMemoryProvider,
	config.FlagTopK,
	config.FlagLLMProvider,
	config.FlagLLMModel,
	config.FlagEmbedderProvider,
	config.FlagEmbedderModel,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagHistoryProvider,
	config.FlagEventsProvider,
}

const serveLongDesc string = `Run the memory gateway.

The gateway exposes:
  GET  /              health check
  POST /get-context   build a system prompt from the user's memories
  POST /add-memory    store a user/assistant exchange

plus /memories management routes, and optionally /mcp and /metrics.

Settings resolve as flag > MEMHANDLER_* environment > config.toml > default.
A .env file in the working directory is loaded first. Provider API keys fall
back to OPENAI_API_KEY, ANTHROPIC_API_KEY and MEM0_API_KEY, then to keys stored
with "memhandler auth".

If the memory store cannot be built the gateway still starts: health reports
a warning and /get-context answers with an error prompt.

Examples:
  memhandler serve
  memhandler serve --listen :9000 --memory-provider platform
  memhandler serve --llm-provider ollama --embedder-provider ollama`

const serveShortDesc string = "Run the memory gateway"

func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveCommander{flags: config.Flags})
}

func newServeCmd(cmder *serveCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(cmder.envFile); err != nil {
				return err
			}

			cfg, err := config.LoadForCommand(cmd, cmder.flags, serveFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagMemoryProvider, &cmder.memoryProvider)
	config.AddUintFlag(cmd, cmder.flags, config.FlagTopK, &cmder.topK)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMModel, &cmder.llmModel)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbedderProvider, &cmder.embedderProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbedderModel, &cmder.embedderModel)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagHistoryProvider, &cmder.historyProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventsProvider, &cmder.eventsProvider)

	cmd.Flags().StringVar(&cmder.envFile, "env-file", ".env", "Dotenv file loaded before configuration is resolved")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Emit JSON logs")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	handle := memoryutils.NewHandle(ctx, c.cfg, memoryutils.Options{
		Getenv:    credentials.EnvLookup(c.configDir),
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err := handle.Err(); err != nil {
		c.logger.Error("memory initialization failed, serving degraded",
			"provider", c.cfg.Memory.Provider,
			"error", err,
		)
	} else {
		c.logger.Info("memory client ready", "provider", c.cfg.Memory.Provider)
	}

	publisher, err := eventstreamutils.NewPublisher(c.cfg.Events, c.logger)
	if err != nil {
		_ = handle.Close()
		return fmt.Errorf("creating event publisher: %w", err)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: c.cfg.API.Listen,
		Handle:     handle,
		TopK:       int(c.cfg.Memory.TopK),
		Publisher:  publisher,
		MCP:        c.cfg.API.MCP,
		Metrics:    c.cfg.API.Metrics,
	}, c.logger)
	if err != nil {
		_ = publisher.Close()
		_ = handle.Close()
		return fmt.Errorf("creating api server: %w", err)
	}

	if pool, ok := publisher.(*async.Pool); ok {
		rec := server.Gateway().Recorder
		pool.OnError(func(error) {
			if rec != nil {
				rec.UpstreamFailure("publish")
			}
		})
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("api server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case runErr = <-errChan:
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	}

	return errors.Join(
		runErr,
		server.Shutdown(),
		publisher.Close(),
		handle.Close(),
	)
}

// setupLogger builds the terminal logger and, with --log-file, fans records
// out to a JSON log file as well. The returned func closes the file.
func (c *serveCommander) setupLogger() (func(), error) {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithSource(c.debug),
		logger.WithJSON(c.jsonLogs),
		logger.WithPretty(term.IsTerminal(int(os.Stdout.Fd()))),
	)

	if c.logFile == "" {
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(c.logger, logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))

	return func() { _ = f.Close() }, nil
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
