package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Port    string
	GinMode string

	StoreDriver string
	MongoURI    string
	DBName      string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RedisURL        string

	AWSRegion   string
	S3Bucket    string
	SMTPHost    string
	SMTPPort    int
	EmailUser   string
	EmailPass   string
	StoreEmail  string
	CORSOrigins []string

	OTLPEndpoint string
	OTLPInsecure bool
	ServiceName  string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[CONFIG] [INFO] .env not loaded:", err)
	}

	emailUser := getEnvOrDefault("EMAIL_USER", "")

	return Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", ""),

		StoreDriver: strings.ToLower(getEnvOrDefault("STORE_DRIVER", DriverMongo)),
		MongoURI:    getEnvOrDefault("MONGO_URI", ""),
		DBName:      getEnvOrDefault("DB_NAME", "storefront"),

		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 60, time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),
		RedisURL:        getEnvOrDefault("REDIS_URL", ""),

		AWSRegion:   getEnvOrDefault("AWS_REGION", "us-east-1"),
		S3Bucket:    getEnvOrDefault("AWS_S3_BUCKET_NAME", ""),
		SMTPHost:    getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:    getIntEnv("SMTP_PORT", 587),
		EmailUser:   emailUser,
		EmailPass:   getEnvOrDefault("EMAIL_PASS", ""),
		StoreEmail:  getEnvOrDefault("STORE_EMAIL", emailUser),
		CORSOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),

		OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure: getBoolEnv("OTEL_EXPORTER_OTLP_INSECURE", true),
		ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", "storefront"),
	}
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORE_DRIVER=mongo"))
		}
	case DriverMemory:
	default:
		errs = append(errs, errors.New("STORE_DRIVER must be mongo or memory"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	return errors.Join(errs...)
}

func (c Config) MailConfigured() bool {
	return c.EmailUser != "" && c.EmailPass != "" && c.StoreEmail != ""
}
