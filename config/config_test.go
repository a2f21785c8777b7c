package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "detention.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/detention.toml")

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesOnlySetKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detention.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9090

[log]
level = "debug"
format = "console"
`), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "detention.db", cfg.Database.Path, "unset keys keep defaults")
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		toml string
	}{
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"bad format", "[log]\nformat = \"xml\"\n"},
		{"bad port", "[server]\nport = 70000\n"},
		{"empty db path", "[database]\npath = \"\"\n"},
		{"malformed toml", "[server\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "detention.toml")
			require.NoError(t, os.WriteFile(path, []byte(tc.toml), 0o644))

			_, err := Load(path)

			assert.Error(t, err)
		})
	}
}
