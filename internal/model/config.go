package model

import "time"

// Config holds the complete claimfold configuration
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	LLM     LLMConfig     `yaml:"llm"`
	Budget  BudgetConfig  `yaml:"budget"`
	Cluster ClusterConfig `yaml:"cluster"`
	Chunk   ChunkConfig   `yaml:"chunk"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Output  OutputConfig  `yaml:"output"`
}

// HTTPConfig controls document fetching
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy"`
}

// LLMConfig selects and configures the generation/embedding provider
type LLMConfig struct {
	Provider       string `yaml:"provider"` // "openai" or "ollama"
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	APIKey         string `yaml:"-"` // Never serialized; from env
	BaseURL        string `yaml:"base_url"`
	Timeout        int    `yaml:"timeout"` // seconds per API call
	MaxTokens      int    `yaml:"max_tokens"`
	Temperature    float32 `yaml:"temperature"`
}

// BudgetConfig bounds the external-service invocation rate.
// Minute and day windows are tracked independently.
type BudgetConfig struct {
	RequestsPerMinute   int           `yaml:"requests_per_minute"`
	TokensPerMinute     int           `yaml:"tokens_per_minute"`
	RequestsPerDay      int           `yaml:"requests_per_day"`
	TokensPerDay        int           `yaml:"tokens_per_day"`
	Cooldown            time.Duration `yaml:"cooldown"`   // Wait after a rate-limit signal
	PaceDelay           time.Duration `yaml:"pace_delay"` // Minimum gap between calls
	MaxRateRetries      int           `yaml:"max_rate_retries"`
	MaxTransientRetries int           `yaml:"max_transient_retries"`
	MaxBatchChars       int           `yaml:"max_batch_chars"` // Payload packing budget
}

// ClusterConfig controls claim deduplication
type ClusterConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// ChunkConfig controls text splitting
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// IngestConfig controls fetch concurrency and politeness
type IngestConfig struct {
	Workers           int     `yaml:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // Per-domain
	Burst             int     `yaml:"burst"`
	RespectRobots     bool    `yaml:"respect_robots"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Verbose bool   `yaml:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			UserAgent:    "claimfold/0.1 (+https://github.com/ivlasov/claimfold)",
			MaxBodyBytes: 2_000_000,
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Timeout:        60,
			MaxTokens:      1024,
			Temperature:    0.1,
		},
		Budget: BudgetConfig{
			RequestsPerMinute:   30,
			TokensPerMinute:     6000,
			RequestsPerDay:      1000,
			TokensPerDay:        250_000,
			Cooldown:            60 * time.Second,
			PaceDelay:           22 * time.Second,
			MaxRateRetries:      3,
			MaxTransientRetries: 2,
			MaxBatchChars:       30_000,
		},
		Cluster: ClusterConfig{
			SimilarityThreshold: 0.80,
		},
		Chunk: ChunkConfig{
			Size:    800,
			Overlap: 150,
		},
		Ingest: IngestConfig{
			Workers:           4,
			RequestsPerSecond: 1,
			Burst:             2,
			RespectRobots:     true,
		},
		Output: OutputConfig{
			Dir: "output",
		},
	}
}
