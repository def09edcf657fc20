package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port    int           `env:"TEST_CFG_PORT" envDefault:"5000"`
	Expiry  time.Duration `env:"TEST_CFG_EXPIRY" envDefault:"168h"`
	Origins []string      `env:"TEST_CFG_ORIGINS" envSeparator:","`
}

func (c *testConfig) Validate() error {
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

type requiredConfig struct {
	DSN string `env:"TEST_CFG_DSN,required"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.Expiry)
	assert.Empty(t, cfg.Origins)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "8081")
	t.Setenv("TEST_CFG_ORIGINS", "http://localhost:5173,https://clinic.example")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173", "https://clinic.example"}, cfg.Origins)
}

func TestLoad_RunsValidate(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "0")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoad_ParseErrors(t *testing.T) {
	var missing requiredConfig
	err := Load(&missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")

	t.Setenv("TEST_CFG_PORT", "not-a-number")
	var bad testConfig
	err = Load(&bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
