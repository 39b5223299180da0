package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port        string   `yaml:"port"`
	GinMode     string   `yaml:"gin_mode"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig holds the Supabase/Postgres connection settings. The same
// database carries the documents table (pgvector) and the chat history tables.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

// VectorStoreConfig selects the vector store backend. "postgres" uses the
// documents table via pgvector, "chromem" an embedded chromem-go database.
type VectorStoreConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// LLMConfig points at one Ollama-compatible model endpoint.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// RAGConfig holds the retrieval pipeline parameters.
type RAGConfig struct {
	ChunkSize    int     `yaml:"chunk_size"`
	ChunkOverlap int     `yaml:"chunk_overlap"`
	TopK         int     `yaml:"top_k"`
	MinScore     float32 `yaml:"min_score"`
	HistoryLimit int     `yaml:"history_limit"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	EmbedLLM    LLMConfig         `yaml:"embed_llm"`
	ChatLLM     LLMConfig         `yaml:"chat_llm"`
	RAG         RAGConfig         `yaml:"rag"`
}

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultTopK         = 5
	defaultMinScore     = 0.1
	defaultHistoryLimit = 20
	defaultOllamaURL    = "http://127.0.0.1:11434"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.VectorStore.Backend == "" {
		c.VectorStore.Backend = "postgres"
	}
	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = "documents"
	}
	if c.EmbedLLM.BaseURL == "" {
		c.EmbedLLM.BaseURL = defaultOllamaURL
	}
	if c.ChatLLM.BaseURL == "" {
		c.ChatLLM.BaseURL = defaultOllamaURL
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = defaultTopK
	}
	if c.RAG.MinScore == 0 {
		c.RAG.MinScore = defaultMinScore
	}
	if c.RAG.HistoryLimit == 0 {
		c.RAG.HistoryLimit = defaultHistoryLimit
	}
	// Secrets come from the environment when not set in the file.
	if c.Database.DSN == "" {
		c.Database.DSN = os.Getenv("DATABASE_DSN")
	}
	if c.Database.Password == "" {
		c.Database.Password = os.Getenv("DATABASE_PASSWORD")
	}
}

func (c *Config) validate() error {
	switch c.VectorStore.Backend {
	case "postgres", "chromem":
	default:
		return fmt.Errorf("unknown vector store backend: %s", c.VectorStore.Backend)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be in [0, chunk size %d)", c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	if c.EmbedLLM.Model == "" {
		return fmt.Errorf("embed_llm.model is required")
	}
	if c.ChatLLM.Model == "" {
		return fmt.Errorf("chat_llm.model is required")
	}
	return nil
}
