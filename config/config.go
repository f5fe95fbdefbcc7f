package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	HTTPAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// OpenAI兼容的翻译服务配置
	OpenAIBaseURL     string
	OpenAIKey         string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float64
	TranslateTimeout  time.Duration
	TranslateRPS      float64 // client-side rate limit for adapter calls

	JWTSecret string

	// Static mirror output
	PublicDir   string // root directory for generated static pages
	SongsDir    string // PublicDir/songs
	SiteBaseURL string // absolute URL prefix embedded in generated pages

	// MinIO配置（可选，未配置时镜像只写本地文件）
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	publicDir := getEnv("PUBLIC_DIR", "public")

	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "pinyinhub"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4.1-mini-2025-04-14"),
		OpenAIMaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 4096),
		OpenAITemperature: getEnvFloat("OPENAI_TEMPERATURE", 0.2),
		TranslateTimeout:  time.Duration(getEnvInt("TRANSLATE_TIMEOUT_SECONDS", 60)) * time.Second,
		TranslateRPS:      getEnvFloat("TRANSLATE_RPS", 2),

		JWTSecret: getEnv("JWT_SECRET", "pinyinhub-dev-secret"),

		PublicDir:   publicDir,
		SongsDir:    filepath.Join(publicDir, "songs"),
		SiteBaseURL: getEnv("SITE_BASE_URL", "https://pinyinhub.app"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "pinyinhub"),
		MinioRegion:    getEnv("MINIO_REGION", ""),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
	}
}
