package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DATA_FILE", "/tmp/eco.nt")
	t.Setenv("USE_FUSEKI", "yes")
	t.Setenv("ORACLE_TIMEOUT", "45")
	t.Setenv("CACHE_TYPE", "redis")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, "/tmp/eco.nt", cfg.DataFile)
	assert.True(t, cfg.UseFuseki)
	assert.Equal(t, 45*time.Second, cfg.OracleTimeout)
	assert.Equal(t, "redis", cfg.CacheType)
	assert.False(t, cfg.OracleEnabled())
}

func TestLoadFromEnvIgnoresBadNumbers(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("ORACLE_TIMEOUT", "soon")

	cfg := Default()
	LoadFromEnv(cfg)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.OracleTimeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecotour.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 7000\ngemini_model: gemini-test\noracle_timeout: 10s\njournal_type: sqlite\n"), 0644))

	cfg := Default()
	require.NoError(t, LoadFile(cfg, path))
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "gemini-test", cfg.GeminiModel)
	assert.Equal(t, 10*time.Second, cfg.OracleTimeout)
	assert.Equal(t, "sqlite", cfg.JournalType)
	assert.Equal(t, "data/ontology.nt", cfg.DataFile)

	require.NoError(t, os.WriteFile(path, []byte("port: [\n"), 0644))
	assert.Error(t, LoadFile(Default(), path))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.CacheType = "memcached"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.OracleProvider = "claude"
	assert.Error(t, cfg.Validate())
}

func TestOracleEnabled(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.OracleEnabled())

	cfg.GeminiAPIKey = "key"
	assert.True(t, cfg.OracleEnabled())

	cfg.OracleProvider = "openai"
	assert.False(t, cfg.OracleEnabled())

	cfg.OpenAIBaseURL = "http://localhost:11434/v1"
	assert.True(t, cfg.OracleEnabled())
}

func TestLoadFromEnvOpenAI(t *testing.T) {
	t.Setenv("ORACLE_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "llama3")

	cfg := Default()
	LoadFromEnv(cfg)
	assert.Equal(t, "openai", cfg.OracleProvider)
	assert.Equal(t, "llama3", cfg.OpenAIModel)
	assert.True(t, cfg.OracleEnabled())
	require.NoError(t, cfg.Validate())
}
