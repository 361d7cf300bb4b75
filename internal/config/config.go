// Package config loads environment configuration and reports which
// remote services are usable with the current settings.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Provider identifies an LLM or embedding backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection (vector index + knowledge graph)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Completion model
	LLMProvider     Provider
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string
	BedrockModelID  string
	AWSRegion       string

	// Embeddings
	EmbedProvider  Provider
	EmbedModel     string
	EmbedDimension int

	// HTTP server
	ListenAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SOPHIA_DB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SOPHIA_DB_NAMESPACE", "sophia"),
		SurrealDBDatabase:  getEnv("SOPHIA_DB_DATABASE", "knowledge"),
		SurrealDBUser:      getEnv("SOPHIA_DB_USER", "root"),
		SurrealDBPass:      os.Getenv("SOPHIA_DB_PASS"),
		SurrealDBAuthLevel: getEnv("SOPHIA_DB_AUTH_LEVEL", "root"),

		LLMProvider:     Provider(getEnv("SOPHIA_LLM_PROVIDER", string(ProviderOpenAI))),
		LLMModel:        getEnv("SOPHIA_LLM_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		BedrockModelID:  getEnv("SOPHIA_BEDROCK_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),

		EmbedProvider:  Provider(getEnv("SOPHIA_EMBED_PROVIDER", string(ProviderOpenAI))),
		EmbedModel:     getEnv("SOPHIA_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimension: getEnvInt("SOPHIA_EMBED_DIMENSION", 1536),

		ListenAddr: getEnv("SOPHIA_LISTEN_ADDR", ":8090"),

		LogFile:  os.Getenv("SOPHIA_LOG_FILE"),
		LogLevel: parseLogLevel(getEnv("SOPHIA_LOG_LEVEL", "INFO")),
	}
}

// ServiceCheck reports whether a capability is configured, and which
// environment variables are missing when it is not.
type ServiceCheck struct {
	OK      bool     `json:"ok"`
	Missing []string `json:"missing,omitempty"`
}

// CanTrain reports whether the training pipeline has everything it needs:
// a completion model for triplet extraction, an embedding model, and the
// database. Uploads still persist when training is not possible; the
// pipeline is skipped and the missing keys are reported to the caller.
func (c Config) CanTrain() ServiceCheck {
	var missing []string
	missing = append(missing, c.completionMissing()...)
	missing = append(missing, c.embeddingMissing()...)
	if c.SurrealDBURL == "" {
		missing = append(missing, "SOPHIA_DB_URL")
	}
	return ServiceCheck{OK: len(missing) == 0, Missing: missing}
}

// CanRespond reports whether chat and debate turn generation is configured.
func (c Config) CanRespond() ServiceCheck {
	var missing []string
	missing = append(missing, c.completionMissing()...)
	missing = append(missing, c.embeddingMissing()...)
	return ServiceCheck{OK: len(missing) == 0, Missing: missing}
}

func (c Config) completionMissing() []string {
	switch c.LLMProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return []string{"ANTHROPIC_API_KEY"}
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return []string{"OLLAMA_HOST"}
		}
	case ProviderBedrock:
		if c.AWSRegion == "" {
			return []string{"AWS_REGION"}
		}
	default:
		if c.OpenAIAPIKey == "" {
			return []string{"OPENAI_API_KEY"}
		}
	}
	return nil
}

func (c Config) embeddingMissing() []string {
	switch c.EmbedProvider {
	case ProviderOllama:
		if c.OllamaHost == "" {
			return []string{"OLLAMA_HOST"}
		}
	default:
		if c.OpenAIAPIKey == "" {
			return []string{"OPENAI_API_KEY"}
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
