package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	LLMProvider    string // openai | vertex
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	VertexProject  string
	VertexLocation string

	LLMLogPath         string
	AuditMaxFieldBytes int
	AuditTTL           time.Duration

	DefaultQuestionCount int
	MaxQuestionCount     int
	MaxFollowUps         int

	ResumeCacheSize int
	ResumeMaxChars  int
	ResumeCacheTTL  time.Duration

	SessionLockTTL time.Duration

	GCSBucket  string
	STTEnabled bool
}

// LoadAppConfig reads .env (if present) and the process environment.
func LoadAppConfig() *AppConfig {
	_ = godotenv.Load()

	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("DEEPSEEK_API_KEY")
	}

	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", "openai"))
	model := "deepseek-chat"
	if provider == "vertex" {
		model = "gemini-1.5-flash"
	}

	return &AppConfig{
		Port:        getEnvOrDefault("PORT", "8080"),
		GinMode:     getEnvOrDefault("GIN_MODE", "release"),
		CORSOrigins: splitList(getEnvOrDefault("CORS_ORIGINS", "http://localhost:3000")),

		LLMProvider:    provider,
		LLMBaseURL:     getEnvOrDefault("LLM_BASE_URL", "https://api.deepseek.com"),
		LLMAPIKey:      apiKey,
		LLMModel:       getEnvOrDefault("LLM_MODEL", model),
		VertexProject:  os.Getenv("VERTEX_PROJECT"),
		VertexLocation: getEnvOrDefault("VERTEX_LOCATION", "us-central1"),

		LLMLogPath:         getEnvOrDefault("LLM_LOG_PATH", "logs/llm.log"),
		AuditMaxFieldBytes: getIntOrDefault("AUDIT_MAX_FIELD_BYTES", 16<<10),
		AuditTTL:           time.Duration(getIntOrDefault("AUDIT_TTL_HOURS", 24*30)) * time.Hour,

		DefaultQuestionCount: getIntOrDefault("DEFAULT_QUESTION_COUNT", 6),
		MaxQuestionCount:     getIntOrDefault("MAX_QUESTION_COUNT", 15),
		MaxFollowUps:         getIntOrDefault("MAX_FOLLOW_UPS", 2),

		ResumeCacheSize: getIntOrDefault("RESUME_CACHE_SIZE", 64),
		ResumeMaxChars:  getIntOrDefault("RESUME_MAX_CHARS", 12000),
		ResumeCacheTTL:  time.Duration(getIntOrDefault("RESUME_CACHE_TTL_HOURS", 24)) * time.Hour,

		SessionLockTTL: time.Duration(getIntOrDefault("SESSION_LOCK_TTL_SECONDS", 120)) * time.Second,

		GCSBucket:  os.Getenv("GCS_BUCKET"),
		STTEnabled: getEnvOrDefault("STT_ENABLED", "false") == "true",
	}
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getIntOrDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
