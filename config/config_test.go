package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Env:                "development",
		DatabaseDriver:     DriverMemory,
		BookingHorizonDays: 60,
		BookingMaxAttempts: 3,
		BookingTxTimeout:   10 * time.Second,
	}
}

func Test_Validate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cases := map[string]func(c *Config){
		"unknown driver":        func(c *Config) { c.DatabaseDriver = "postgres" },
		"production no secret":  func(c *Config) { c.Env = "production" },
		"zero horizon":          func(c *Config) { c.BookingHorizonDays = 0 },
		"zero attempts":         func(c *Config) { c.BookingMaxAttempts = 0 },
		"non-positive tx limit": func(c *Config) { c.BookingTxTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func Test_LoadConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", DriverMemory)
	t.Setenv("BOOKING_HORIZON_DAYS", "30")
	t.Setenv("BOOKING_TX_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()

	assert.NoError(t, err)
	assert.Equal(t, 30, cfg.BookingHorizonDays)
	assert.Equal(t, 3*time.Second, cfg.BookingTxTimeout)
	assert.Equal(t, 20*time.Millisecond, cfg.BookingRetryBaseDelay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}

func Test_AllowedOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, Config{CORSOrigins: "*"}.AllowedOrigins())
	assert.Nil(t, Config{CORSOrigins: " , "}.AllowedOrigins())
}
