package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at fresh temp dirs and
// clears TADA_* variables.
func isolate(t *testing.T) (home, work string) {
	t.Helper()
	home = t.TempDir()
	work = t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"TADA_API_URL", "TADA_LOG_LEVEL", "TADA_LOG_FORMAT", "TADA_LOG_FILE", "TADA_THEME", "TADA_METRICS_ADDR"} {
		t.Setenv(k, "")
	}
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(work))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return home, work
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("tada", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestDefaults(t *testing.T) {
	home, _ := isolate(t)
	cfg, rest, err := Load(newFlagSet(), []string{"ls"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ls"}, rest)
	assert.Empty(t, cfg.APIURL)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultTheme, cfg.Theme)
	assert.Equal(t, filepath.Join(home, ".tada", "client.log"), cfg.LogFile)
	assert.False(t, cfg.Group)

	_, err = cfg.RequireAPIURL()
	assert.ErrorIs(t, err, ErrNoAPIURL)
}

func TestLayering(t *testing.T) {
	home, work := isolate(t)
	writeFile(t, filepath.Join(home, ".tada", "config.toml"), `
api_url = "https://user.example/prod"
theme = "neon"
log_level = "debug"
`)
	writeFile(t, filepath.Join(work, "tada.toml"), `
api_url = "https://project.example/prod"
`)

	cfg, _, err := Load(newFlagSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, "https://project.example/prod", cfg.APIURL, "project file beats user file")
	assert.Equal(t, "neon", cfg.Theme, "user file value kept when project file is silent")
	assert.Equal(t, "debug", cfg.LogLevel)

	t.Setenv("TADA_API_URL", "http://env.example")
	cfg, _, err = Load(newFlagSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example", cfg.APIURL, "env beats files")

	cfg, rest, err := Load(newFlagSet(), []string{"-api", "http://flag.example", "-group", "ls", "-plain"})
	require.NoError(t, err)
	assert.Equal(t, "http://flag.example", cfg.APIURL, "flags beat env")
	assert.True(t, cfg.Group)
	assert.Equal(t, []string{"ls", "-plain"}, rest)

	u, err := cfg.RequireAPIURL()
	require.NoError(t, err)
	assert.Equal(t, "http://flag.example", u)
}

func TestHiddenProjectFile(t *testing.T) {
	_, work := isolate(t)
	writeFile(t, filepath.Join(work, ".tada.toml"), `metrics_addr = ":9100"`)
	cfg, _, err := Load(newFlagSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestUnknownKey(t *testing.T) {
	_, work := isolate(t)
	writeFile(t, filepath.Join(work, "tada.toml"), `api = "typo"`)
	_, _, err := Load(newFlagSet(), nil)
	assert.ErrorContains(t, err, "unknown keys: api")
}

func TestBadTOML(t *testing.T) {
	_, work := isolate(t)
	writeFile(t, filepath.Join(work, "tada.toml"), `api_url = `)
	_, _, err := Load(newFlagSet(), nil)
	assert.ErrorContains(t, err, "loading project config file")
}

func TestBadFlag(t *testing.T) {
	isolate(t)
	_, _, err := Load(newFlagSet(), []string{"-nope"})
	assert.ErrorContains(t, err, "parsing flags")
}
