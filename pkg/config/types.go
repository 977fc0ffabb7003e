package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent memhandler configuration stored as config.toml
// in the .memhandler/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Memory      MemoryConfig      `toml:"memory"`
	Platform    PlatformConfig    `toml:"platform"`
	LLM         LLMConfig         `toml:"llm"`
	Embedder    EmbedderConfig    `toml:"embedder"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	History     HistoryConfig     `toml:"history"`
	Events      EventsConfig      `toml:"events"`
}

// APIConfig holds gateway server settings.
type APIConfig struct {
	Listen  string `toml:"listen,omitempty"`
	MCP     bool   `toml:"mcp"`
	Metrics bool   `toml:"metrics"`
}

// ClientConfig holds settings for CLI commands that talk to a running gateway
// (e.g. memhandler context, memhandler remember). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// MemoryConfig selects the memory backend and tunes retrieval.
type MemoryConfig struct {
	// Provider is "local" (self-hosted engine) or "platform" (hosted mem0).
	Provider string `toml:"provider,omitempty"`

	// TopK caps how many memories /get-context retrieves.
	TopK uint `toml:"top_k,omitempty"`

	// Infer enables LLM fact extraction in the local engine.
	Infer bool `toml:"infer"`

	// DedupThreshold is the cosine similarity at or above which a new fact
	// is treated as a duplicate of an existing memory.
	DedupThreshold float64 `toml:"dedup_threshold,omitempty"`

	// MatchThreshold is the cosine similarity an existing memory needs before
	// an extracted UPDATE or DELETE may rewrite or remove it.
	MatchThreshold float64 `toml:"match_threshold,omitempty"`
}

// PlatformConfig holds hosted mem0 platform settings.
type PlatformConfig struct {
	Host      string `toml:"host,omitempty"`
	APIKey    string `toml:"api_key,omitempty"`
	OrgID     string `toml:"org_id,omitempty"`
	ProjectID string `toml:"project_id,omitempty"`
}

// LLMConfig holds the fact extraction model settings.
type LLMConfig struct {
	Provider    string  `toml:"provider,omitempty"`
	Model       string  `toml:"model,omitempty"`
	Temperature float64 `toml:"temperature,omitempty"`
	Target      string  `toml:"target,omitempty"`
	APIKey      string  `toml:"api_key,omitempty"`
}

// EmbedderConfig holds embedding provider settings.
type EmbedderConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Model      string `toml:"model,omitempty"`
	Target     string `toml:"target,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// HistoryConfig holds memory history store settings.
type HistoryConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventsConfig holds event stream settings.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`

	// Async publishes from a background worker pool instead of the request.
	Async bool `toml:"async"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error

	// secret values are masked by "config list".
	secret bool
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func secretKey(field func(c *Config) *string) configKeyInfo {
	info := stringKey(field)
	info.secret = true
	return info
}

func boolKey(key string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func uintKey(key string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func floatKey(key string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*field(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = f
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"api.listen":  stringKey(func(c *Config) *string { return &c.API.Listen }),
	"api.mcp":     boolKey("api.mcp", func(c *Config) *bool { return &c.API.MCP }),
	"api.metrics": boolKey("api.metrics", func(c *Config) *bool { return &c.API.Metrics }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"memory.provider":        stringKey(func(c *Config) *string { return &c.Memory.Provider }),
	"memory.top_k":           uintKey("memory.top_k", func(c *Config) *uint { return &c.Memory.TopK }),
	"memory.infer":           boolKey("memory.infer", func(c *Config) *bool { return &c.Memory.Infer }),
	"memory.dedup_threshold": floatKey("memory.dedup_threshold", func(c *Config) *float64 { return &c.Memory.DedupThreshold }),
	"memory.match_threshold": floatKey("memory.match_threshold", func(c *Config) *float64 { return &c.Memory.MatchThreshold }),

	"platform.host":       stringKey(func(c *Config) *string { return &c.Platform.Host }),
	"platform.api_key":    secretKey(func(c *Config) *string { return &c.Platform.APIKey }),
	"platform.org_id":     stringKey(func(c *Config) *string { return &c.Platform.OrgID }),
	"platform.project_id": stringKey(func(c *Config) *string { return &c.Platform.ProjectID }),

	"llm.provider":    stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.model":       stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.temperature": floatKey("llm.temperature", func(c *Config) *float64 { return &c.LLM.Temperature }),
	"llm.target":      stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.api_key":     secretKey(func(c *Config) *string { return &c.LLM.APIKey }),

	"embedder.provider":   stringKey(func(c *Config) *string { return &c.Embedder.Provider }),
	"embedder.model":      stringKey(func(c *Config) *string { return &c.Embedder.Model }),
	"embedder.target":     stringKey(func(c *Config) *string { return &c.Embedder.Target }),
	"embedder.api_key":    secretKey(func(c *Config) *string { return &c.Embedder.APIKey }),
	"embedder.dimensions": uintKey("embedder.dimensions", func(c *Config) *uint { return &c.Embedder.Dimensions }),

	"vector_store.provider":    stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":      stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection":  stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.api_key":     secretKey(func(c *Config) *string { return &c.VectorStore.APIKey }),
	"vector_store.sqlite_path": stringKey(func(c *Config) *string { return &c.VectorStore.SQLitePath }),

	"history.provider":     stringKey(func(c *Config) *string { return &c.History.Provider }),
	"history.sqlite_path":  stringKey(func(c *Config) *string { return &c.History.SQLitePath }),
	"history.postgres_dsn": secretKey(func(c *Config) *string { return &c.History.PostgresDSN }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"events.async":    boolKey("events.async", func(c *Config) *bool { return &c.Events.Async }),
}

// orderedKeys is the stable, logical order matching the TOML section layout.
var orderedKeys = []string{
	"api.listen",
	"api.mcp",
	"api.metrics",
	"client.api_target",
	"memory.provider",
	"memory.top_k",
	"memory.infer",
	"memory.dedup_threshold",
	"memory.match_threshold",
	"platform.host",
	"platform.api_key",
	"platform.org_id",
	"platform.project_id",
	"llm.provider",
	"llm.model",
	"llm.temperature",
	"llm.target",
	"llm.api_key",
	"embedder.provider",
	"embedder.model",
	"embedder.target",
	"embedder.api_key",
	"embedder.dimensions",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"vector_store.api_key",
	"vector_store.sqlite_path",
	"history.provider",
	"history.sqlite_path",
	"history.postgres_dsn",
	"events.provider",
	"events.brokers",
	"events.topic",
	"events.async",
}
