package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	JWT      JWTConfig
	Model    ModelConfig
	Counties []string
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// ModelConfig carries the random-forest hyperparameters, the benchmark yield
// used to normalize predicted yield into a resilience score, and the
// filesystem locations of the model artifact and training data.
type ModelConfig struct {
	NEstimators    int
	MaxDepth       int
	MinSamplesLeaf int
	Seed           int64
	TestSize       float64
	BenchmarkYield float64
	ArtifactPath   string
	TrainingData   string
	Version        string
}

// DefaultCounties is the reference list of maize-growing counties served
// when COUNTIES is not set in the environment.
var DefaultCounties = []string{
	"Baringo", "Bomet", "Bungoma", "Busia", "Elgeyo-Marakwet", "Embu",
	"Homa Bay", "Kakamega", "Kericho", "Kiambu", "Kirinyaga", "Kisii",
	"Kisumu", "Kitui", "Machakos", "Makueni", "Meru", "Migori", "Murang'a",
	"Nakuru", "Nandi", "Narok", "Nyamira", "Nyandarua", "Nyeri", "Siaya",
	"Trans-Nzoia", "Uasin Gishu", "Vihiga", "West Pokot",
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func LoadConfig() (*Config, error) {
	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtExpiry, err := getIntEnv("JWT_EXPIRY_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_HOURS: %w", err)
	}

	nEstimators, err := getIntEnv("MODEL_N_ESTIMATORS", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid MODEL_N_ESTIMATORS: %w", err)
	}

	maxDepth, err := getIntEnv("MODEL_MAX_DEPTH", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid MODEL_MAX_DEPTH: %w", err)
	}

	minLeaf, err := getIntEnv("MODEL_MIN_SAMPLES_LEAF", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid MODEL_MIN_SAMPLES_LEAF: %w", err)
	}

	seed, err := getIntEnv("MODEL_SEED", 42)
	if err != nil {
		return nil, fmt.Errorf("invalid MODEL_SEED: %w", err)
	}

	testSize, err := getFloatEnv("MODEL_TEST_SIZE", 0.2)
	if err != nil {
		return nil, fmt.Errorf("invalid MODEL_TEST_SIZE: %w", err)
	}

	benchmark, err := getFloatEnv("BENCHMARK_YIELD", 5.0)
	if err != nil {
		return nil, fmt.Errorf("invalid BENCHMARK_YIELD: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: serverPort,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "agriadapt"),
			Password: getEnv("DB_PASSWORD", "agriadapt_dev_password"),
			Name:     getEnv("DB_NAME", "agriadapt"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpiryHours: jwtExpiry,
		},
		Model: ModelConfig{
			NEstimators:    nEstimators,
			MaxDepth:       maxDepth,
			MinSamplesLeaf: minLeaf,
			Seed:           int64(seed),
			TestSize:       testSize,
			BenchmarkYield: benchmark,
			ArtifactPath:   getEnv("MODEL_ARTIFACT_PATH", "models/maize_resilience_rf.gob"),
			TrainingData:   getEnv("MODEL_TRAINING_DATA", "data/maize_dataset.csv"),
			Version:        getEnv("MODEL_VERSION", "2.0.0"),
		},
		Counties: getListEnv("COUNTIES", DefaultCounties),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getFloatEnv(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getListEnv(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
