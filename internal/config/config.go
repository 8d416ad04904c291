package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete runtime configuration of the gallery service
type Config struct {
	Port         int
	ServiceHost  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string

	DatabaseURL   string
	RunMigrations bool

	Storage StorageConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	ConsulAddr  string
	ConsulToken string
}

// StorageConfig describes the S3-compatible blob namespace
type StorageConfig struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	Region         string
	// PublicBaseURL prefixes public image URLs; images are served back
	// through the gallery at <PublicBaseURL>/public/<bucket>/<key>.
	PublicBaseURL string
}

// RequiredVars lists the variables without a usable default
var RequiredVars = []string{
	"DATABASE_URL",
	"S3_ENDPOINT",
	"S3_ACCESS_KEY",
	"S3_SECRET_KEY",
}

// Load reads the configuration from the environment and validates it
func Load() (*Config, error) {
	if err := ValidateEnv(RequiredVars); err != nil {
		return nil, err
	}

	port := getEnvInt("PORT", 8080)
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", port)
	}

	cfg := &Config{
		Port:         port,
		ServiceHost:  GetEnvOrDefault("SERVICE_HOST", "localhost"),
		ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"}),

		DatabaseURL:   GetEnvOrDefault("DATABASE_URL", ""),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),

		Storage: StorageConfig{
			Endpoint:       GetEnvOrDefault("S3_ENDPOINT", ""),
			PublicEndpoint: GetEnvOrDefault("S3_PUBLIC_ENDPOINT", ""),
			AccessKey:      GetEnvOrDefault("S3_ACCESS_KEY", ""),
			SecretKey:      GetEnvOrDefault("S3_SECRET_KEY", ""),
			Bucket:         GetEnvOrDefault("S3_BUCKET_NAME", "images"),
			UseSSL:         getEnvBool("S3_USE_SSL", false),
			Region:         GetEnvOrDefault("S3_REGION", "us-east-1"),
			PublicBaseURL:  strings.TrimRight(GetEnvOrDefault("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", port)), "/"),
		},

		RedisAddr:     GetEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: GetEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),

		ConsulAddr:  GetEnvOrDefault("CONSUL_HTTP_ADDR", ""),
		ConsulToken: GetEnvOrDefault("CONSUL_HTTP_TOKEN", ""),
	}

	if cfg.Storage.PublicEndpoint == "" {
		cfg.Storage.PublicEndpoint = cfg.Storage.Endpoint
	}

	return cfg, nil
}
