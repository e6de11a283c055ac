// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Datastore settings
	PostgresDSN string

	// Organization identity, used by the relevance classifier
	OrgName        string
	OrgDescription string
	DefaultKBID    string

	// NATS settings (support notification channel)
	NATSURL             string
	NATSCAFile          string
	NATSCertFile        string
	NATSKeyFile         string
	NATSToken           string
	NotificationSubject string

	// Identity settings
	JWTSecret string
	APIKeys   []string

	// Generative subsystem
	OpenAIAPIKey        string
	AnthropicAPIKey     string
	GenerationModel     string
	ReviewModel         string
	EmbeddingModel      string
	GenerationTimeout   time.Duration
	GenerationAttempts  int
	ConfidenceThreshold float64

	// Retrieval
	MilvusEndpoint   string
	MilvusAPIKey     string
	MilvusCollection string
	RetrievalLimit   int
	RetrievalTimeout time.Duration
	SimilarityFloor  float64
	CacheTTL         time.Duration

	// Context assembly
	MaxContextBytes int
	MaxSources      int
	ViewerBaseURL   string

	// Heuristic keyword tables
	GreetingPhrases    []string
	AssistantQuestions []string
	BusinessKeywords   []string
	HandoffKeywords    []string
	ComplexKeywords    []string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Datastore
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=postgres dbname=support port=5432 sslmode=disable"),

		// Organization
		OrgName:        getEnv("ORG_NAME", ""),
		OrgDescription: getEnv("ORG_DESCRIPTION", ""),
		DefaultKBID:    getEnv("DEFAULT_KB_ID", "default"),

		// NATS
		NATSURL:             getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:          getEnv("NATS_CA_FILE", ""),
		NATSCertFile:        getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:         getEnv("NATS_KEY_FILE", ""),
		NATSToken:           getEnv("NATS_TOKEN", ""),
		NotificationSubject: getEnv("NOTIFICATION_SUBJECT", "support.handoff"),

		// Identity
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),
		APIKeys:   getListEnv("API_KEYS", nil),

		// Generative subsystem
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
		GenerationModel:     getEnv("GENERATION_MODEL", ""),
		ReviewModel:         getEnv("REVIEW_MODEL", ""),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		GenerationTimeout:   getDurationEnv("GENERATION_TIMEOUT", 30*time.Second),
		GenerationAttempts:  getIntEnv("GENERATION_ATTEMPTS", 3),
		ConfidenceThreshold: getFloatEnv("CONFIDENCE_THRESHOLD", 0.4),

		// Retrieval
		MilvusEndpoint:   getEnv("MILVUS_ENDPOINT", "localhost:19530"),
		MilvusAPIKey:     getEnv("MILVUS_API_KEY", ""),
		MilvusCollection: getEnv("MILVUS_COLLECTION", "kb_chunks"),
		RetrievalLimit:   getIntEnv("RETRIEVAL_LIMIT", 5),
		RetrievalTimeout: getDurationEnv("RETRIEVAL_TIMEOUT", 10*time.Second),
		SimilarityFloor:  getFloatEnv("SIMILARITY_FLOOR", 0.3),
		CacheTTL:         getDurationEnv("RETRIEVAL_CACHE_TTL", 5*time.Minute),

		// Context assembly
		MaxContextBytes: getIntEnv("MAX_CONTEXT_BYTES", 8000),
		MaxSources:      getIntEnv("MAX_SOURCES", 5),
		ViewerBaseURL:   getEnv("VIEWER_BASE_URL", "/files/view"),

		// Heuristic keyword tables
		GreetingPhrases: getListEnv("GREETING_PHRASES", []string{
			"hi", "hello", "hey", "thanks", "thank you", "ok", "okay",
			"bye", "goodbye", "good morning", "good afternoon", "good evening",
		}),
		AssistantQuestions: getListEnv("ASSISTANT_QUESTIONS", []string{
			"who are you", "what are you", "what can you do", "how do you work",
			"are you a bot", "are you human", "are you real",
		}),
		BusinessKeywords: getListEnv("BUSINESS_KEYWORDS", []string{
			"pricing", "price", "billing", "invoice", "plan", "subscription",
			"integration", "api", "error", "bug", "install", "setup", "account",
			"refund", "cancel", "upgrade", "feature", "product", "service",
		}),
		HandoffKeywords: getListEnv("HANDOFF_KEYWORDS", []string{
			"human", "agent", "representative", "supervisor", "real person",
			"speak to someone", "talk to someone", "escalate",
		}),
		ComplexKeywords: getListEnv("COMPLEX_KEYWORDS", []string{
			"broken", "urgent", "critical", "lawsuit", "legal", "refund",
			"complaint", "not working", "data loss", "security",
		}),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
