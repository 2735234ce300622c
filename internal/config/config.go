package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Memory   MemoryConfig
	Ingest   IngestConfig
	Turn     TurnConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	GatewayLogPath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JWTSecret          string
	ConnectionTokenTTL time.Duration
}

type AIConfig struct {
	STTProvider       string // "google"
	LLMProvider       string // "ollama"
	LLMModel          string
	TTSProvider       string // "elevenlabs"
	EmbeddingProvider string // "ollama" or "gemini"
	EmbeddingDim      int
	OllamaBaseURL     string
	OllamaEmbedModel  string
	GeminiAPIKey      string
	GeminiEmbedModel  string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
}

type MemoryConfig struct {
	ShortTermWindow    int // sliding window capacity
	SummarizeThreshold int // window length that triggers summarization
	LongTermLimit      int // max similar memories per query
}

type IngestConfig struct {
	BufferSize  int // audio chunks buffered per open utterance
	PushTimeout time.Duration
	FlushWait   time.Duration // max wait for the final transcript on end-of-utterance
}

type TurnConfig struct {
	GenerateTimeout  time.Duration
	SynthesisTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			GatewayLogPath:     getEnv("GATEWAY_LOG_FILE_PATH", "logs/gateway.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			ConnectionTokenTTL: getEnvAsDuration("CONNECTION_TOKEN_TTL", 15*time.Minute),
		},
		Ai: AIConfig{
			STTProvider:       getEnv("STT_PROVIDER", "google"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			TTSProvider:       getEnv("TTS_PROVIDER", "elevenlabs"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingDim:      getEnvAsInt("EMBEDDING_DIM", 1536),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaEmbedModel:  getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			GeminiEmbedModel:  getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
			ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
			ElevenLabsVoiceID: getEnv("ELEVENLABS_VOICE_ID", "Rachel"),
		},
		Memory: MemoryConfig{
			ShortTermWindow:    getEnvAsInt("SHORT_TERM_WINDOW", 10),
			SummarizeThreshold: getEnvAsInt("SUMMARIZE_THRESHOLD", 4),
			LongTermLimit:      getEnvAsInt("LONG_TERM_LIMIT", 5),
		},
		Ingest: IngestConfig{
			BufferSize:  getEnvAsInt("INGEST_BUFFER_SIZE", 64),
			PushTimeout: getEnvAsDuration("INGEST_PUSH_TIMEOUT", 2*time.Second),
			FlushWait:   getEnvAsDuration("INGEST_FLUSH_WAIT", 10*time.Second),
		},
		Turn: TurnConfig{
			GenerateTimeout:  getEnvAsDuration("TURN_GENERATE_TIMEOUT", 60*time.Second),
			SynthesisTimeout: getEnvAsDuration("TURN_SYNTHESIS_TIMEOUT", 60*time.Second),
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
