package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		fallback time.Duration
		want     time.Duration
	}{
		{name: "unset uses fallback", value: "", fallback: time.Second, want: time.Second},
		{name: "go duration", value: "750ms", fallback: time.Second, want: 750 * time.Millisecond},
		{name: "bare milliseconds", value: "250", fallback: time.Second, want: 250 * time.Millisecond},
		{name: "zero", value: "0", fallback: time.Second, want: 0},
		{name: "garbage uses fallback", value: "soon", fallback: 3 * time.Second, want: 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_DURATION", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", tt.fallback))
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("BOT_SECRET", "s3cret")
	t.Setenv("READY_TIMEOUT", "5s")

	cfg := Load()

	assert.Equal(t, "8081", cfg.App.Port)
	assert.Equal(t, "s3cret", cfg.Auth.BotSecret)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.ReadyTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Dispatch.ReadyPollInterval)
	assert.Equal(t, 2*time.Second, cfg.Dispatch.SettleDelay)
	assert.Equal(t, 3*time.Second, cfg.Dispatch.RetryBackoff)
	assert.Equal(t, "sqlite3", cfg.Session.StoreDialect)
	assert.Equal(t, "logs/websocket.log", cfg.App.WSLogFilePath)
	assert.Equal(t, 5*time.Second, cfg.Session.PairingRetryBackoff)
	assert.NotEmpty(t, cfg.App.InstanceID)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App: AppConfig{
				Port:               "3000",
				LogFilePath:        "logs/gateway.log",
				SessionLogFilePath: "logs/session.log",
				WSLogFilePath:      "logs/websocket.log",
				InstanceID:         "node-1",
			},
			Auth:     AuthConfig{BotSecret: "secret"},
			Dispatch: DefaultDispatchConfig(),
			Session: SessionConfig{
				StoreDialect: "sqlite3",
				StoreDSN:     "file:session.db",
				QRMode:       "image",
				WALogLevel:   "WARN",

				PairingRetryBackoff: 5 * time.Second,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "non numeric port", mutate: func(c *Config) { c.App.Port = "http" }, wantErr: true},
		{name: "no secret and no hash", mutate: func(c *Config) { c.Auth.BotSecret = "" }, wantErr: true},
		{name: "hash without plain secret", mutate: func(c *Config) {
			c.Auth.BotSecret = ""
			c.Auth.BotSecretHash = "$2a$10$abc"
		}, wantErr: false},
		{name: "unknown dialect", mutate: func(c *Config) { c.Session.StoreDialect = "mysql" }, wantErr: true},
		{name: "unknown qr mode", mutate: func(c *Config) { c.Session.QRMode = "ascii" }, wantErr: true},
		{name: "zero poll interval", mutate: func(c *Config) { c.Dispatch.ReadyPollInterval = 0 }, wantErr: true},
		{name: "zero pairing backoff", mutate: func(c *Config) { c.Session.PairingRetryBackoff = 0 }, wantErr: true},
		{name: "missing websocket log path", mutate: func(c *Config) { c.App.WSLogFilePath = "" }, wantErr: true},
		{name: "zero settle delay allowed", mutate: func(c *Config) { c.Dispatch.SettleDelay = 0 }, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
