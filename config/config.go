package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string `validate:"required,numeric"`
	AppMode string `validate:"oneof=debug release test"`
	BaseURL string `validate:"required,url"`

	DatabaseURL string
	DBHost      string `validate:"required_without=DatabaseURL"`
	DBUser      string
	DBPassword  string
	DBName      string `validate:"required_without=DatabaseURL"`
	DBPort      string

	RedisHost     string `validate:"required"`
	RedisPort     string `validate:"required"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	JWTSecret string `validate:"required,min=16"`

	SchedulerSigningKey     string `validate:"required,min=16"`
	SchedulerNextSigningKey string
	SchedulerIssuer         string `validate:"required"`

	Timezone string `validate:"required"`

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PresignTTL int `validate:"gte=0"`

	BallotRateLimit      int `validate:"gt=0"`
	TallyCacheTTLSeconds int `validate:"gte=0"`
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort: getEnv("APP_PORT", "8080"),
		AppMode: getEnv("APP_MODE", "debug"),
		BaseURL: getEnv("BASE_URL", "http://localhost:3000"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "eboto"),
		DBPort:      getEnv("DB_PORT", "5432"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),

		SchedulerSigningKey:     getEnv("SCHEDULER_SIGNING_KEY", defaultSchedulerKey),
		SchedulerNextSigningKey: getEnv("SCHEDULER_NEXT_SIGNING_KEY", ""),
		SchedulerIssuer:         getEnv("SCHEDULER_ISSUER", "eboto-scheduler"),

		Timezone: getEnv("ELECTION_TIMEZONE", "Asia/Manila"),

		S3Region:     getEnv("S3_REGION", ""),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3PresignTTL: getEnvAsInt("S3_PRESIGN_TTL_SECONDS", 900),

		BallotRateLimit:      getEnvAsInt("BALLOT_RATE_LIMIT", 5),
		TallyCacheTTLSeconds: getEnvAsInt("TALLY_CACHE_TTL_SECONDS", 10),
	}
}

// Development-only secrets, refused in release mode.
const (
	defaultJWTSecret    = "change-me-please-now"
	defaultSchedulerKey = "change-me-scheduler-key"
)

// Validate checks required settings and resolves the election timezone.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.AppMode == "release" {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("invalid config: JWT_SECRET must be set in release mode")
		}
		if c.SchedulerSigningKey == defaultSchedulerKey {
			return fmt.Errorf("invalid config: SCHEDULER_SIGNING_KEY must be set in release mode")
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid ELECTION_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location is the zone used for voting-hour and start/end day comparisons.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from DB_*.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func (c *Config) SchedulerKeys() [][]byte {
	keys := [][]byte{[]byte(c.SchedulerSigningKey)}
	if c.SchedulerNextSigningKey != "" {
		keys = append(keys, []byte(c.SchedulerNextSigningKey))
	}
	return keys
}

func (c *Config) TallyCacheTTL() time.Duration {
	return time.Duration(c.TallyCacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
