package pptdeck

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "presentation.pptx", cfg.Output)
	assert.Equal(t, 0.6, cfg.Layout.ContentStep)
	assert.Equal(t, "E6E6E6", cfg.Layout.CodeStyle.Fill)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeTemp(t, "pptdeck.yaml", `
output: talk.pptx
fetch_timeout: 5s
layout:
  content_step: 0.5
  code_style:
    font: Menlo
    size: 14
`)
	t.Setenv("PPTDECK_ADDR", "127.0.0.1:9000")
	t.Setenv("PPTDECK_ALLOWED_ORIGINS", "http://a.example, http://b.example,")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "talk.pptx", cfg.Output)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 0.5, cfg.Layout.ContentStep)
	assert.Equal(t, "Menlo", cfg.Layout.CodeStyle.Font)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	// untouched sections keep their defaults
	assert.Equal(t, DefaultLayout().Title, cfg.Layout.Title)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeTemp(t, "bad.yaml", "unknown_key: 1\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeTemp(t, "level.yaml", "log_level: loud\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeTemp(t, "timeout.yaml", "fetch_timeout: -1s\n"))
	assert.Error(t, err)
}

func TestConfigLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	assert.Equal(t, logrus.DebugLevel, cfg.Logger().GetLevel())
}
