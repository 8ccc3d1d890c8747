package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/automenta/cog-sub003/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestLoadOverlaysFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reasond.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9001\nmax_kb_size: 500\nrules_file: seed.kif\nlogging:\n  level: debug\n"), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 9001, cfg.Port)
	require.Equal(t, 500, cfg.MaxKBSize)
	require.Equal(t, "seed.kif", cfg.RulesFile)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverridesLLMFields(t *testing.T) {
	t.Setenv("REASOND_LLM_URL", "http://localhost:11434")
	t.Setenv("REASOND_LLM_MODEL", "local-model")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:11434", cfg.LLMURL)
	require.Equal(t, "local-model", cfg.LLMModel)
}

func TestValidateRejectsBadPortAndLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Port = 0
	require.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Logging.Level = "verbose"
	require.Error(t, cfg.Validate())
}
