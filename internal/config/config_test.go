package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWithNoPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoadParsesTOMLAndFillsGaps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.toml")
	contents := `
[Server]
  ListenAddress = "0.0.0.0:7000"

[Logging]
  Level = "DEBUG"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:7000", cfg.Server.ListenAddress)
	require.Equal(t, "DEBUG", cfg.Logging.Level)
	// unset sections fall back to defaults
	require.Equal(t, Defaults().Limits, cfg.Limits)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
