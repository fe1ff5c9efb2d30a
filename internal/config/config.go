// Package config holds application configuration loaded from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// OllamaConfig contains connection details for the Ollama backend.
type OllamaConfig struct {
	BaseURL    string `yaml:"base_url"`
	ChatModel  string `yaml:"chat_model"`
	EmbedModel string `yaml:"embed_model"`
}

// WeaviateConfig contains connection details for a Weaviate vector store.
type WeaviateConfig struct {
	Host   string `yaml:"host"`
	Scheme string `yaml:"scheme"`
	APIKey string `yaml:"api_key"`
	Class  string `yaml:"class"`
}

// StoreConfig selects and configures the vector store implementation.
type StoreConfig struct {
	Type     string          `yaml:"type"` // memory, sqlite, weaviate
	Path     string          `yaml:"path,omitempty"`
	Weaviate *WeaviateConfig `yaml:"weaviate,omitempty"`
}

// RedisConfig contains connection details for the embedding cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLSecs  int    `yaml:"ttl_secs"`
}

// CacheConfig selects and configures the embedding cache.
type CacheConfig struct {
	Type  string       `yaml:"type"` // none, redis
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// ChunkingConfig configures how documents are split.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig configures retrieval and conversation behavior.
type RetrievalConfig struct {
	TopK          int `yaml:"top_k"`
	HistoryWindow int `yaml:"history_window"`
}

// Config is the root application configuration.
type Config struct {
	Server       ServerConfig    `yaml:"server"`
	Ollama       OllamaConfig    `yaml:"ollama"`
	Store        StoreConfig     `yaml:"store"`
	Cache        CacheConfig     `yaml:"cache"`
	Chunking     ChunkingConfig  `yaml:"chunking"`
	Retrieval    RetrievalConfig `yaml:"retrieval"`
	DocumentsDir string          `yaml:"documents_dir"`
	Watch        bool            `yaml:"watch"`
	LogLevel     string          `yaml:"log_level"`
}

// Load reads a config from path. A missing file yields defaults; environment
// variables override selected fields afterwards.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server:       ServerConfig{Addr: ":8080"},
		Ollama:       OllamaConfig{BaseURL: "http://localhost:11434", ChatModel: "llama3.1", EmbedModel: "nomic-embed-text"},
		Store:        StoreConfig{Type: "memory"},
		Cache:        CacheConfig{Type: "none"},
		Chunking:     ChunkingConfig{Size: 500, Overlap: 100},
		Retrieval:    RetrievalConfig{TopK: 10, HistoryWindow: 3},
		DocumentsDir: "./documents",
		LogLevel:     "info",
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.Ollama.ChatModel == "" {
		cfg.Ollama.ChatModel = "llama3.1"
	}
	if cfg.Ollama.EmbedModel == "" {
		cfg.Ollama.EmbedModel = "nomic-embed-text"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Store.Type == "sqlite" && cfg.Store.Path == "" {
		cfg.Store.Path = "./data"
	}
	if cfg.Store.Type == "weaviate" {
		if cfg.Store.Weaviate == nil {
			cfg.Store.Weaviate = &WeaviateConfig{}
		}
		if cfg.Store.Weaviate.Host == "" {
			cfg.Store.Weaviate.Host = "localhost:8090"
		}
		if cfg.Store.Weaviate.Scheme == "" {
			cfg.Store.Weaviate.Scheme = "http"
		}
		if cfg.Store.Weaviate.Class == "" {
			cfg.Store.Weaviate.Class = "DocumentChunk"
		}
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "none"
	}
	if cfg.Cache.Type == "redis" {
		if cfg.Cache.Redis == nil {
			cfg.Cache.Redis = &RedisConfig{}
		}
		if cfg.Cache.Redis.Addr == "" {
			cfg.Cache.Redis.Addr = "localhost:6379"
		}
		if cfg.Cache.Redis.TTLSecs == 0 {
			cfg.Cache.Redis.TTLSecs = 24 * 60 * 60
		}
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 500
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 100
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 10
	}
	if cfg.Retrieval.HistoryWindow == 0 {
		cfg.Retrieval.HistoryWindow = 3
	}
	if cfg.DocumentsDir == "" {
		cfg.DocumentsDir = "./documents"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOCCHAT_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := os.Getenv("DOCCHAT_DOCUMENTS_DIR"); v != "" {
		cfg.DocumentsDir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" && cfg.Cache.Redis != nil {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("WEAVIATE_API_KEY"); v != "" && cfg.Store.Weaviate != nil {
		cfg.Store.Weaviate.APIKey = v
	}
}
