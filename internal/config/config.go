package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Keys      APIKeys
	Ai        AIConfig
	Vector    VectorConfig
	Rag       RagConfig
	Messaging MessagingConfig
	Otel      OtelConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	UploadDir          string
	MaxUploadBytes     int
	AllowedExtensions  []string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogQueries      bool
}

type APIKeys struct {
	Jina        string
	HuggingFace string
}

type AIConfig struct {
	EmbeddingProvider   string // "ollama", "jina" or "local"
	EmbeddingDimensions int
	EmbeddingCacheTTL   time.Duration
	OllamaBaseURL       string
	OllamaModel         string
	JinaModel           string
	LLMProvider         string // "ollama", "huggingface" or "none"
	LLMModel            string
	LLMBaseURL          string
}

type VectorConfig struct {
	Backend       string // "pgvector", "qdrant" or "memory"
	QdrantAddress string
}

type RagConfig struct {
	MaxChunkSize        int
	MinChunkSize        int
	ChunkOverlap        int
	SimilarityThreshold float64
	AnnotatePages       bool

	BatchSize   int
	AddPause    time.Duration
	BatchPause  time.Duration
	Workers     int
	IngestTopic string
	// A PROCESSING document untouched for this long may be reclaimed.
	StaleAfter time.Duration

	TopK             int
	MinRelevance     float64
	MaxContextChunks int
	MaxContextChars  int
	HistoryTurns     int
}

type MessagingConfig struct {
	NatsURL  string
	RedisURL string
}

type OtelConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
			MaxUploadBytes:     getEnvAsInt("MAX_UPLOAD_BYTES", 10*1024*1024),
			AllowedExtensions:  getEnvAsList("ALLOWED_EXTENSIONS", []string{"txt", "csv", "pdf"}),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection:      getEnv("DB_CONNECTION_STRING", ""),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			LogQueries:      getEnvAsBool("DB_LOG_QUERIES", false),
		},
		Keys: APIKeys{
			Jina:        getEnv("JINA_API_KEY", ""),
			HuggingFace: getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 768),
			EmbeddingCacheTTL:   getEnvAsDuration("EMBEDDING_CACHE_TTL", 30*time.Minute),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:         getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			JinaModel:           getEnv("JINA_EMBEDDING_MODEL", "jina-embeddings-v3"),
			LLMProvider:         getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:            getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:          getEnv("LLM_BASE_URL", ""),
		},
		Vector: VectorConfig{
			Backend:       getEnv("VECTOR_BACKEND", "pgvector"),
			QdrantAddress: getEnv("QDRANT_ADDRESS", "localhost:6334"),
		},
		Rag: RagConfig{
			MaxChunkSize:        getEnvAsInt("RAG_MAX_CHUNK_SIZE", 1000),
			MinChunkSize:        getEnvAsInt("RAG_MIN_CHUNK_SIZE", 200),
			ChunkOverlap:        getEnvAsInt("RAG_CHUNK_OVERLAP", 200),
			SimilarityThreshold: getEnvAsFloat("RAG_SIMILARITY_THRESHOLD", 0.5),
			AnnotatePages:       getEnvAsBool("RAG_ANNOTATE_PAGES", true),
			BatchSize:           getEnvAsInt("INGEST_BATCH_SIZE", 10),
			AddPause:            getEnvAsDuration("INGEST_ADD_PAUSE", 100*time.Millisecond),
			BatchPause:          getEnvAsDuration("INGEST_BATCH_PAUSE", 500*time.Millisecond),
			Workers:             getEnvAsInt("INGEST_WORKERS", 4),
			IngestTopic:         getEnv("INGEST_TOPIC_NAME", "PROCESS_DOCUMENT"),
			StaleAfter:          getEnvAsDuration("INGEST_STALE_AFTER", 30*time.Minute),
			TopK:                getEnvAsInt("RAG_TOP_K", 5),
			MinRelevance:        getEnvAsFloat("RAG_MIN_RELEVANCE", 0),
			MaxContextChunks:    getEnvAsInt("RAG_MAX_CONTEXT_CHUNKS", 3),
			MaxContextChars:     getEnvAsInt("RAG_MAX_CONTEXT_CHARS", 4000),
			HistoryTurns:        getEnvAsInt("CHAT_HISTORY_TURNS", 6),
		},
		Messaging: MessagingConfig{
			NatsURL:  getEnv("NATS_URL", ""),
			RedisURL: getEnv("REDIS_URL", ""),
		},
		Otel: OtelConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "ai-docqa-be"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("250ms", "2s").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
