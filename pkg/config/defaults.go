package config

const (
	defaultAPIListen       = ":8000"
	defaultClientAPITarget = "http://localhost:8000"

	defaultMemoryProvider = "local"
	defaultTopK           = 5
	defaultDedup          = 0.9
	defaultMatch          = 0.6

	defaultPlatformHost = "https://api.mem0.ai"

	defaultLLMProvider    = "openai"
	defaultLLMModel       = "gpt-4o-mini"
	defaultLLMTemperature = 0.1

	defaultEmbedderProvider   = "openai"
	defaultEmbedderModel      = "text-embedding-3-small"
	defaultEmbedderDimensions = 1536

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "memhandler"

	defaultHistoryProvider = "sqlite"

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "memhandler.memories"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen:  defaultAPIListen,
			Metrics: true,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Memory: MemoryConfig{
			Provider:       defaultMemoryProvider,
			TopK:           defaultTopK,
			Infer:          true,
			DedupThreshold: defaultDedup,
			MatchThreshold: defaultMatch,
		},
		Platform: PlatformConfig{
			Host: defaultPlatformHost,
		},
		LLM: LLMConfig{
			Provider:    defaultLLMProvider,
			Model:       defaultLLMModel,
			Temperature: defaultLLMTemperature,
		},
		Embedder: EmbedderConfig{
			Provider:   defaultEmbedderProvider,
			Model:      defaultEmbedderModel,
			Dimensions: defaultEmbedderDimensions,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		History: HistoryConfig{
			Provider: defaultHistoryProvider,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
			Async:    true,
		},
	}
}
