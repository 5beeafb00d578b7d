package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageBackendLocal = "local"
	StorageBackendR2    = "r2"

	ConverterVector = "vector"
	ConverterMesh   = "mesh"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

type StorageConfig struct {
	Backend      string
	LocalDir     string
	LocalBaseURL string
	R2           R2Config
}

type ConverterConfig struct {
	Mode        string
	TracerBin   string
	Timeout     time.Duration
	HeightScale float64
}

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL string
	RedisURL    string // optional; leaderboard cache is skipped when empty
	ServerPort  int
	Storage     StorageConfig
	Converter   ConverterConfig
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	portStr := getEnvOrDefault("SERVER_PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	storageCfg, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	converterCfg, err := loadConverterConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL: dbURL,
		RedisURL:    os.Getenv("REDIS_URL"),
		ServerPort:  port,
		Storage:     storageCfg,
		Converter:   converterCfg,
	}, nil
}

func loadStorageConfig() (StorageConfig, error) {
	cfg := StorageConfig{
		Backend: getEnvOrDefault("STORAGE_BACKEND", StorageBackendLocal),
	}
	switch cfg.Backend {
	case StorageBackendLocal:
		cfg.LocalDir = getEnvOrDefault("ASSET_DIR", "saved_assets")
		cfg.LocalBaseURL = getEnvOrDefault("ASSET_BASE_URL", "/assets")
	case StorageBackendR2:
		cfg.R2 = R2Config{
			AccountID:       os.Getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      os.Getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		}
		if cfg.R2.AccountID == "" || cfg.R2.AccessKeyID == "" || cfg.R2.SecretAccessKey == "" ||
			cfg.R2.BucketName == "" || cfg.R2.PublicBaseURL == "" {
			return cfg, fmt.Errorf("storage backend %q requires R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_BUCKET_NAME and R2_PUBLIC_BASE_URL", cfg.Backend)
		}
	default:
		return cfg, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Backend)
	}
	return cfg, nil
}

func loadConverterConfig() (ConverterConfig, error) {
	cfg := ConverterConfig{
		Mode:      getEnvOrDefault("CONVERTER_MODE", ConverterVector),
		TracerBin: getEnvOrDefault("TRACER_BIN", "vtracer"),
	}

	timeoutStr := getEnvOrDefault("CONVERT_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil || timeout <= 0 {
		return cfg, fmt.Errorf("invalid CONVERT_TIMEOUT %q", timeoutStr)
	}
	cfg.Timeout = timeout

	heightStr := getEnvOrDefault("MESH_HEIGHT_SCALE", "10.0")
	heightScale, err := strconv.ParseFloat(heightStr, 64)
	if err != nil || heightScale <= 0 {
		return cfg, fmt.Errorf("invalid MESH_HEIGHT_SCALE %q", heightStr)
	}
	cfg.HeightScale = heightScale

	switch cfg.Mode {
	case ConverterVector, ConverterMesh:
	default:
		return cfg, fmt.Errorf("unknown CONVERTER_MODE %q", cfg.Mode)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
