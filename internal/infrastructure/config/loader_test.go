package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraconfig "github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/config"
)

type testConfig struct {
	Service struct {
		Name    string        `yaml:"name"`
		Port    int           `env:"TEST_LOADER_PORT"    yaml:"port"`
		Debug   bool          `env:"TEST_LOADER_DEBUG"   yaml:"debug"`
		Timeout time.Duration `env:"TEST_LOADER_TIMEOUT" yaml:"timeout"`
		Tags    []string      `env:"TEST_LOADER_TAGS"    yaml:"tags"`
	} `yaml:"service"`
}

func writeFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeFile(t, "service:\n  name: sentiment\n  port: 8080\n  timeout: 5s\n")

	cfg, err := infraconfig.Load[testConfig](path)
	require.NoError(t, err)

	assert.Equal(t, "sentiment", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Service.Port)
	assert.Equal(t, 5*time.Second, cfg.Service.Timeout)
}

func TestLoad_EnvOverridesWin(t *testing.T) {
	t.Setenv("TEST_LOADER_PORT", "9090")
	t.Setenv("TEST_LOADER_DEBUG", "yes")
	t.Setenv("TEST_LOADER_TIMEOUT", "250ms")
	t.Setenv("TEST_LOADER_TAGS", "a, b ,c")

	path := writeFile(t, "service:\n  port: 8080\n")

	cfg, err := infraconfig.Load[testConfig](path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Service.Port)
	assert.True(t, cfg.Service.Debug)
	assert.Equal(t, 250*time.Millisecond, cfg.Service.Timeout)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Service.Tags)
}

func TestLoadWithDefaults_EnvBeatsDefaults(t *testing.T) {
	t.Setenv("TEST_LOADER_PORT", "7000")

	path := writeFile(t, "service:\n  name: x\n")

	cfg, err := infraconfig.LoadWithDefaults(path, func(c *testConfig) {
		if c.Service.Port == 0 {
			c.Service.Port = 8080
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Service.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := infraconfig.Load[testConfig](filepath.Join(t.TempDir(), "absent.yml"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, infraconfig.ErrConfigNotFound))
}

func TestValidators(t *testing.T) {
	assert.NoError(t, infraconfig.ValidatePort("p", 80))
	assert.Error(t, infraconfig.ValidatePort("p", 0))
	assert.NoError(t, infraconfig.ValidateURL("u", "http://tei:8080"))
	assert.Error(t, infraconfig.ValidateURL("u", "tei:8080"))
	assert.Error(t, infraconfig.ValidateRequired("r", ""))
	assert.Error(t, infraconfig.ValidateLogLevel("l", "loud"))

	var vErr *infraconfig.ValidationError
	require.ErrorAs(t, infraconfig.ValidatePort("service.port", 70000), &vErr)
	assert.Equal(t, "service.port", vErr.Field)
}
