package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Session SessionConfig
	Chat    ChatConfig
}

type AppConfig struct {
	BackendURL  string
	Environment string
	LogFilePath string
	HTTPTimeout int // seconds
}

type SessionConfig struct {
	StoreDriver string // "memory", "file" or "redis"
	TokenFile   string
	RedisURL    string
}

type ChatConfig struct {
	DefaultModel string // "gemini", "openai" or "ollama"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			BackendURL:  getEnv("BACKEND_URL", "http://localhost:8000"),
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "ragchat.log"),
			HTTPTimeout: getEnvAsInt("HTTP_TIMEOUT_SECONDS", 120),
		},
		Session: SessionConfig{
			StoreDriver: getEnv("SESSION_STORE", "file"),
			TokenFile:   getEnv("SESSION_TOKEN_FILE", defaultTokenFile()),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Chat: ChatConfig{
			DefaultModel: getEnv("DEFAULT_MODEL", "gemini"),
		},
	}
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".ragchat_token"
	}
	return filepath.Join(dir, "ragchat", "token")
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
