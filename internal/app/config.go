package app

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration from env
type Config struct {
	Store      string `validate:"oneof=fs s3 memory"`
	DataDir    string `validate:"required_if=Store fs"`
	Bucket     string `validate:"required_if=Store s3"`
	Region     string
	Endpoint   string `validate:"omitempty,url"`
	PathStyle  bool
	KeyPrefix  string `validate:"required"`
	SaveFormat string `validate:"oneof=json msgpack"`
	Compress   string `validate:"oneof=none gzip"`
	FlatFormat string `validate:"oneof=parquet csv none"`
	FlatPrefix string `validate:"required"`
	Symbol     string `validate:"required,alphanum"`
	Currency   string `validate:"required,alphanum"`
	LogLevel   string // debug | info | warn | error
	LogFormat  string `validate:"oneof=text json"`

	RedisAddr   string `validate:"omitempty,hostname_port"`
	RedisDB     int    `validate:"min=0"`
	RedisTTL    time.Duration
	PostgresDSN string

	WriteRetries uint64
	Parallel     int `validate:"min=0,max=3"`
	ModelFile    string
}

var dotenvOnce sync.Once

// LoadConfig reads config from environment. A .env file in the working
// directory fills in variables that are not already set.
func LoadConfig() *Config {
	dotenvOnce.Do(func() {
		if err := godotenv.Load(); err == nil {
			slog.Debug("loaded .env")
		}
	})
	return &Config{
		Store:        strings.ToLower(getEnv("STORE", "fs")),
		DataDir:      getEnv("DATA_DIR", "data"),
		Bucket:       os.Getenv("DATA_LAKE_BUCKET"),
		Region:       os.Getenv("AWS_REGION"),
		Endpoint:     os.Getenv("S3_ENDPOINT"),
		PathStyle:    getBool("S3_PATH_STYLE", false),
		KeyPrefix:    strings.Trim(getEnv("KEY_PREFIX", "silver"), "/"),
		SaveFormat:   strings.ToLower(getEnv("SAVE_FORMAT", "json")),
		Compress:     strings.ToLower(getEnv("COMPRESS", "none")),
		FlatFormat:   strings.ToLower(getEnv("FLAT_FORMAT", "parquet")),
		FlatPrefix:   strings.Trim(getEnv("FLAT_PREFIX", "gold"), "/"),
		Symbol:       strings.ToUpper(getEnv("SYMBOL", "BTC")),
		Currency:     strings.ToUpper(getEnv("CURRENCY", "USD")),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    strings.ToLower(getEnv("LOG_FORMAT", "text")),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisDB:      getInt("REDIS_DB", 0),
		RedisTTL:     getDuration("REDIS_TTL", 0),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		WriteRetries: uint64(max(getInt("WRITE_RETRIES", 3), 0)),
		Parallel:     getInt("PARALLEL", 0),
		ModelFile:    os.Getenv("MODEL_FILE"),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
		slog.Warn("ignoring invalid integer", "key", key, "value", v)
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
		slog.Warn("ignoring invalid boolean", "key", key, "value", v)
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
		slog.Warn("ignoring invalid duration", "key", key, "value", v)
	}
	return def
}
