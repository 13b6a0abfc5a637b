// Package config handles application configuration via environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configurable values for the app.
type Config struct {
	Env             string
	ListenAddr      string
	DataDir         string
	AnalyzeEndpoint string
	RequestTimeout  time.Duration
	MaxImageWidth   int
	JPEGQuality     int
	Mock            bool
	AIAPIKey        string
	AIBaseURL       string
	AIModel         string
	SyncURL         string
	SyncAnonKey     string
}

// Load reads environment variables and populates a Config struct.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	maxWidth, err := strconv.Atoi(getEnv("MAX_IMAGE_WIDTH", "1024"))
	if err != nil {
		log.Panicf("Invalid MAX_IMAGE_WIDTH: %v", err)
	}

	quality, err := strconv.Atoi(getEnv("JPEG_QUALITY", "70"))
	if err != nil {
		log.Panicf("Invalid JPEG_QUALITY: %v", err)
	}

	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "30s"))
	if err != nil {
		log.Panicf("Invalid REQUEST_TIMEOUT: %v", err)
	}

	return &Config{
		Env:             getEnv("ENV", "development"),
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		DataDir:         getEnv("DATA_DIR", defaultDataDir()),
		AnalyzeEndpoint: getEnv("ANALYZE_ENDPOINT", "http://localhost:8080/api/analyze"),
		RequestTimeout:  timeout,
		MaxImageWidth:   maxWidth,
		JPEGQuality:     quality,
		Mock:            getEnv("MOCK", "false") == "true",
		AIAPIKey:        getEnv("AI_API_KEY", ""),
		AIBaseURL:       getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
		AIModel:         getEnv("AI_MODEL_NAME", "gpt-4o-mini"),
		SyncURL:         getEnv("SYNC_URL", ""),
		SyncAnonKey:     getEnv("SYNC_ANON_KEY", ""),
	}
}

// SyncEnabled reports whether cloud sync is configured.
func (c *Config) SyncEnabled() bool {
	return c.SyncURL != "" && c.SyncAnonKey != ""
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kaluli"
	}
	return home + string(os.PathSeparator) + ".kaluli"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
