// Package memoryutils assembles a memory.Client from configuration.
package memoryutils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Sakibyash/infinoz-bot1/pkg/config"
	"github.com/Sakibyash/infinoz-bot1/pkg/dotdir"
	embeddingutils "github.com/Sakibyash/infinoz-bot1/pkg/embeddings/utils"
	"github.com/Sakibyash/infinoz-bot1/pkg/history"
	historymem "github.com/Sakibyash/infinoz-bot1/pkg/history/inmemory"
	"github.com/Sakibyash/infinoz-bot1/pkg/history/postgres"
	historysqlite "github.com/Sakibyash/infinoz-bot1/pkg/history/sqlite"
	"github.com/Sakibyash/infinoz-bot1/pkg/llm"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory/local"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory/platform"
	vectorutils "github.com/Sakibyash/infinoz-bot1/pkg/vector/utils"
)

const (
	// EnvPlatformAPIKey is consulted when platform.api_key is blank.
	EnvPlatformAPIKey = "MEM0_API_KEY"

	vectorDBFile  = "memories.db"
	historyDBFile = "history.db"
)

// Options carries the process inputs that are not part of Config.
type Options struct {
	// Getenv resolves credentials left blank in Config. Defaults to os.Getenv.
	Getenv func(string) string

	// ConfigDir overrides .memhandler/ resolution for default SQLite paths.
	ConfigDir string

	Logger *slog.Logger
}

// NewClient builds the memory client selected by cfg.Memory.Provider.
func NewClient(ctx context.Context, cfg *config.Config, o Options) (memory.Client, error) {
	if cfg == nil {
		return nil, errors.New("memory config is required")
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	switch cfg.Memory.Provider {
	case "platform", "mem0":
		return newPlatform(cfg, o)
	case "local", "":
		return newLocal(ctx, cfg, o)
	default:
		return nil, fmt.Errorf("unsupported memory provider: %s", cfg.Memory.Provider)
	}
}

// NewHandle runs NewClient once and captures the outcome.
func NewHandle(ctx context.Context, cfg *config.Config, o Options) *memory.Handle {
	return memory.NewHandle(func() (memory.Client, error) {
		return NewClient(ctx, cfg, o)
	})
}

func newPlatform(cfg *config.Config, o Options) (memory.Client, error) {
	apiKey := cfg.Platform.APIKey
	if apiKey == "" {
		apiKey = o.Getenv(EnvPlatformAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set platform.api_key or %s", platform.ErrMissingAPIKey, EnvPlatformAPIKey)
	}

	return platform.New(platform.Config{
		Host:      cfg.Platform.Host,
		APIKey:    apiKey,
		OrgID:     cfg.Platform.OrgID,
		ProjectID: cfg.Platform.ProjectID,
		Logger:    o.Logger,
	})
}

func newLocal(ctx context.Context, cfg *config.Config, o Options) (memory.Client, error) {
	var caller llm.Caller
	if cfg.Memory.Infer {
		var err error
		caller, err = llm.NewCaller(llm.Config{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.Target,
			Getenv:      o.Getenv,
		})
		if err != nil {
			return nil, fmt.Errorf("creating LLM caller: %w", err)
		}
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedder.Provider,
		TargetURL:    cfg.Embedder.Target,
		Model:        cfg.Embedder.Model,
		APIKey:       llm.ResolveAPIKey(cfg.Embedder.Provider, cfg.Embedder.APIKey, o.Getenv),
		Dimensions:   cfg.Embedder.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	vectorPath := cfg.VectorStore.SQLitePath
	if vectorPath == "" && isSQLite(cfg.VectorStore.Provider) {
		vectorPath, err = defaultDBPath(o.ConfigDir, vectorDBFile)
		if err != nil {
			embedder.Close()
			return nil, err
		}
	}

	vectors, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       cfg.VectorStore.Target,
		Collection:   cfg.VectorStore.Collection,
		APIKey:       cfg.VectorStore.APIKey,
		SQLitePath:   vectorPath,
		Dimensions:   cfg.Embedder.Dimensions,
		Logger:       o.Logger,
	})
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	hist, err := newHistory(ctx, cfg.History, o.ConfigDir)
	if err != nil {
		embedder.Close()
		vectors.Close()
		return nil, fmt.Errorf("creating history store: %w", err)
	}

	o.Logger.Info("local memory engine ready",
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"infer", cfg.Memory.Infer,
		"embedder", cfg.Embedder.Provider,
		"vector_store", cfg.VectorStore.Provider,
		"history", cfg.History.Provider,
	)

	return local.New(local.Config{
		Embedder:       embedder,
		Vectors:        vectors,
		History:        hist,
		LLM:            caller,
		Infer:          cfg.Memory.Infer,
		DedupThreshold: cfg.Memory.DedupThreshold,
		MatchThreshold: cfg.Memory.MatchThreshold,
		Logger:         o.Logger,
	})
}

func newHistory(ctx context.Context, cfg config.HistoryConfig, configDir string) (history.Store, error) {
	switch cfg.Provider {
	case "sqlite", "":
		path := cfg.SQLitePath
		if path == "" {
			var err error
			path, err = defaultDBPath(configDir, historyDBFile)
			if err != nil {
				return nil, err
			}
		}
		return historysqlite.NewStore(ctx, path)
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, errors.New("history.postgres_dsn is required for the postgres history store")
		}
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case "memory", "inmemory":
		return historymem.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported history provider: %s", cfg.Provider)
	}
}

func isSQLite(provider string) bool {
	return provider == "sqlite" || provider == "sqlite-vec"
}

// defaultDBPath places name in the resolved .memhandler/ directory, or the
// working directory when none exists.
func defaultDBPath(configDir, name string) (string, error) {
	path, err := dotdir.NewManager().Path(configDir, name)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", name, err)
	}
	if path == "" {
		return name, nil
	}
	return path, nil
}
