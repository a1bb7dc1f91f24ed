package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	RAG       RAGConfig
	Storage   StorageConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type LLMConfig struct {
	OpenAIKey        string
	AnthropicKey     string
	OllamaURL        string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	MaxRetries       int
	RetryBackoff     time.Duration
}

type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int // 0 means "derive from model"
}

type RAGConfig struct {
	ChunkSize           int // max tokens per chunk
	ChunkOverlap        int // overlap tokens between adjacent chunks
	MaxResults          int
	SimilarityThreshold float64
	PageOverlapRatio    float64
	GenerationTimeout   time.Duration
	AnswerCacheTTL      time.Duration
}

type StorageConfig struct {
	UploadDir string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	embedDim, err := getEnvInt("EMBEDDING_DIM", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBEDDING_DIM: %w", err)
	}

	chunkSize, err := getEnvInt("RAG_CHUNK_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_CHUNK_SIZE: %w", err)
	}

	chunkOverlap, err := getEnvInt("RAG_CHUNK_OVERLAP", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_CHUNK_OVERLAP: %w", err)
	}

	maxResults, err := getEnvInt("RAG_MAX_RESULTS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_MAX_RESULTS: %w", err)
	}

	threshold, err := getEnvFloat("RAG_SIMILARITY_THRESHOLD", 0.5)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_SIMILARITY_THRESHOLD: %w", err)
	}

	pageOverlap, err := getEnvFloat("RAG_PAGE_OVERLAP_RATIO", 0.3)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_PAGE_OVERLAP_RATIO: %w", err)
	}

	genTimeout, err := getEnvDuration("RAG_GENERATION_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_GENERATION_TIMEOUT: %w", err)
	}

	cacheTTL, err := getEnvDuration("RAG_ANSWER_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid RAG_ANSWER_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:        getEnv("OLLAMA_URL", "http://localhost:11434"),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gpt-4o-mini"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			MaxRetries:       maxRetries,
			RetryBackoff:     2 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:  getEnv("EMBEDDING_PROVIDER", "openai"),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension: embedDim,
		},
		RAG: RAGConfig{
			ChunkSize:           chunkSize,
			ChunkOverlap:        chunkOverlap,
			MaxResults:          maxResults,
			SimilarityThreshold: threshold,
			PageOverlapRatio:    pageOverlap,
			GenerationTimeout:   genTimeout,
			AnswerCacheTTL:      cacheTTL,
		},
		Storage: StorageConfig{
			UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
