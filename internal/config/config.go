package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Auth     AuthConfig
	Dispatch DispatchConfig
	Session  SessionConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string `validate:"required,numeric"`
	Environment        string
	LogFilePath        string `validate:"required"`
	SessionLogFilePath string `validate:"required"`
	WSLogFilePath      string `validate:"required"`
	CorsAllowedOrigins string
	NatsURL            string // empty disables the NATS publisher
	RedisURL           string // empty disables the cross-instance relay
	InstanceID         string `validate:"required"`
}

type AuthConfig struct {
	BotSecret     string `validate:"required_without=BotSecretHash"`
	BotSecretHash string // bcrypt, takes precedence over BotSecret
}

// DispatchConfig holds the timings of the /send path.
type DispatchConfig struct {
	ReadyPollInterval time.Duration `validate:"gt=0"`
	ReadyTimeout      time.Duration `validate:"gt=0"`
	SettleDelay       time.Duration `validate:"gte=0"`
	RetryBackoff      time.Duration `validate:"gte=0"`
	ListTimeout       time.Duration `validate:"gt=0"`
	SendTimeout       time.Duration `validate:"gt=0"`
}

type SessionConfig struct {
	StoreDialect string `validate:"oneof=sqlite3 postgres"`
	StoreDSN     string `validate:"required"`
	QRMode       string `validate:"oneof=image terminal both"`
	WALogLevel   string `validate:"oneof=DEBUG INFO WARN ERROR"`

	// PairingRetryBackoff is the first wait before a new QR channel is opened
	// after the previous one ran out of codes. It doubles up to a minute.
	PairingRetryBackoff time.Duration `validate:"gt=0"`
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

// DefaultDispatchConfig mirrors the production timings.
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		ReadyPollInterval: 500 * time.Millisecond,
		ReadyTimeout:      20 * time.Second,
		SettleDelay:       2 * time.Second,
		RetryBackoff:      3 * time.Second,
		ListTimeout:       30 * time.Second,
		SendTimeout:       30 * time.Second,
	}
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	defaults := DefaultDispatchConfig()

	return &Config{
		App: AppConfig{
			Port:               getEnv("PORT", getEnv("APP_PORT", "3000")),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/gateway.log"),
			SessionLogFilePath: getEnv("SESSION_LOG_FILE_PATH", "logs/session.log"),
			WSLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/websocket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			InstanceID:         getEnv("INSTANCE_ID", uuid.NewString()),
		},
		Auth: AuthConfig{
			BotSecret:     getEnv("BOT_SECRET", "CAMBIA_ESTO"),
			BotSecretHash: getEnv("BOT_SECRET_HASH", ""),
		},
		Dispatch: DispatchConfig{
			ReadyPollInterval: getEnvAsDuration("READY_POLL_INTERVAL", defaults.ReadyPollInterval),
			ReadyTimeout:      getEnvAsDuration("READY_TIMEOUT", defaults.ReadyTimeout),
			SettleDelay:       getEnvAsDuration("SETTLE_DELAY", defaults.SettleDelay),
			RetryBackoff:      getEnvAsDuration("RETRY_BACKOFF", defaults.RetryBackoff),
			ListTimeout:       getEnvAsDuration("LIST_TIMEOUT", defaults.ListTimeout),
			SendTimeout:       getEnvAsDuration("SEND_TIMEOUT", defaults.SendTimeout),
		},
		Session: SessionConfig{
			StoreDialect: getEnv("SESSION_STORE_DIALECT", "sqlite3"),
			StoreDSN:     getEnv("SESSION_STORE_DSN", "file:session.db?_foreign_keys=on"),
			QRMode:       getEnv("QR_MODE", "image"),
			WALogLevel:   getEnv("WA_LOG_LEVEL", "WARN"),

			PairingRetryBackoff: getEnvAsDuration("PAIRING_RETRY_BACKOFF", 5*time.Second),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "wa-group-gateway"),
		},
	}
}

// Validate checks the struct tags of every section.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("750ms") or bare milliseconds ("750").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if ms := getEnvAsInt(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
