package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.MetadataFirst)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("metadata_first = false\nlog_level = \"debug\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.MetadataFirst)
	assert.False(t, cfg.Force)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "err = %v", err)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":  "compression = \"zstd\"\n",
		"bad level":    "log_level = \"loud\"\n",
		"bad format":   "log_format = \"xml\"\n",
		"wrong type":   "force = \"yes\"\n",
		"invalid toml": "force = \n",
	}
	for name, doc := range cases {
		_, err := Parse(strings.NewReader(doc))
		assert.Error(t, err, name)
	}
}

func TestResolve_Precedence(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvPath, "")
	assert.Equal(t, "", Resolve(""))

	t.Setenv(EnvPath, "/from/env.toml")
	assert.Equal(t, "/from/env.toml", Resolve(""))
	assert.Equal(t, "/explicit.toml", Resolve("/explicit.toml"))
}

func TestResolve_DefaultPathWhenPresent(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv(EnvPath, "")

	p := DefaultPath()
	require.NotEmpty(t, p)
	require.NoError(t, WriteFile(p, Default(), false))
	assert.Equal(t, p, Resolve(""))
}

func TestWriteFile_RoundTripAndNoClobber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Config{MetadataFirst: false, Force: true, LogLevel: "info", LogFormat: "json"}
	require.NoError(t, WriteFile(path, cfg, false))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	err = WriteFile(path, Default(), false)
	assert.ErrorIs(t, err, ErrExists)
	require.NoError(t, WriteFile(path, Default(), true))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files left behind")
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Default()))
	assert.Contains(t, buf.String(), "metadata_first = true")
	assert.Contains(t, buf.String(), `log_level = "warn"`)
}
