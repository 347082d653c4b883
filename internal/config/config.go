package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey   string
	DatabaseURL    string
	HTTPPort       string
	LogLevel       string
	LogFile        string
	JWTSecret      string // empty disables bearer auth
	HistoryBackend string // "sqlite" or "redis"
	RedisURL       string
	HistoryLimit   int
	KnowledgePath  string
	WeatherBaseURL string

	// Client side
	APIBaseURL string
	APIToken   string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:    getEnv("DATABASE_URL", "runcoach.db"),
		HTTPPort:       getEnv("HTTP_PORT", "8000"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		LogFile:        getEnv("LOG_FILE", "runcoach.log"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		HistoryBackend: getEnv("HISTORY_BACKEND", "sqlite"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		HistoryLimit:   getEnvAsInt("HISTORY_LIMIT", 10),
		KnowledgePath:  getEnv("KNOWLEDGE_PATH", "knowledge_base/running.md"),
		WeatherBaseURL: getEnv("WEATHER_BASE_URL", "https://wttr.in"),
		APIBaseURL:     getEnv("RUNCOACH_API_URL", "http://localhost:8000/api"),
		APIToken:       getEnv("RUNCOACH_API_TOKEN", ""),
	}
}

// LoadServerConfig loads the configuration and enforces what the assistant
// service cannot start without.
func LoadServerConfig() {
	LoadConfig()

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}
	if AppConfig.HistoryBackend != "sqlite" && AppConfig.HistoryBackend != "redis" {
		log.Fatalf("HISTORY_BACKEND must be sqlite or redis, got %q", AppConfig.HistoryBackend)
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
