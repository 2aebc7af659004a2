package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	DBDriver    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MediaPublicURL string
	PresignTTL     time.Duration

	KafkaBrokers string
	KafkaTopic   string

	LogLevel string
	GinMode  string
	SeedDemo bool
}

// Load 读取环境变量；当前目录有 .env 时先加载，已存在的环境变量不会被覆盖
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:        getenv("API_ADDR", ":8080"),
		DBDriver:    getenv("DB_DRIVER", "mysql"),
		DatabaseURL: getenv("DATABASE_URL", "root:root@tcp(127.0.0.1:3306)/forum?charset=utf8mb4&parseTime=True&loc=UTC"),

		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		JWTAccessSecret:  getenv("JWT_ACCESS_SECRET", "forum-access-dev-secret"),
		JWTRefreshSecret: getenv("JWT_REFRESH_SECRET", "forum-refresh-dev-secret"),
		AccessTTL:        time.Duration(getenvInt("ACCESS_TTL_SECONDS", 1800)) * time.Second,
		RefreshTTL:       time.Duration(getenvInt("REFRESH_TTL_SECONDS", 86400)) * time.Second,

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", "minioadminpass"),
		MinioBucket:    getenv("MINIO_BUCKET", "media"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
		MediaPublicURL: getenv("MEDIA_PUBLIC_BASE_URL", ""),
		PresignTTL:     time.Duration(getenvInt("PRESIGN_TTL_SECONDS", 3600)) * time.Second,

		// 为空时事件只写日志
		KafkaBrokers: getenv("KAFKA_BROKERS", ""),
		KafkaTopic:   getenv("KAFKA_TOPIC", "forum-events"),

		LogLevel: getenv("LOG_LEVEL", "info"),
		GinMode:  getenv("GIN_MODE", "release"),
		SeedDemo: getenvBool("SEED_DEMO", false),
	}
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
