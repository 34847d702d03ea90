package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
target:
  url: https://suite.example.com/home
  frame_url_pattern: assistant-widget
  opener_selector: "#assistant-opener"
  closer_selector: "#assistant-close"
quests:
  library_path: quests.json
  selector_path: selectors.json
  sub_app_filter: "payroll*"
storage:
  path: /tmp/progress.db
bridge:
  response_timeout: 45s
mode: real
logging:
  verbosity: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://suite.example.com/home", cfg.Target.URL)
	assert.Equal(t, "assistant-widget", cfg.Target.FrameURLPattern)
	assert.Equal(t, "#assistant-opener", cfg.Target.OpenerSelector)
	assert.Equal(t, "payroll*", cfg.Quests.SubAppFilter)
	assert.Equal(t, "/tmp/progress.db", cfg.Storage.Path)
	assert.Equal(t, 45*time.Second, cfg.Bridge.ResponseTimeout.Std())
	assert.Equal(t, "real", cfg.Mode)
	assert.Equal(t, "debug", cfg.Logging.Verbosity)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
target:
  url: https://suite.example.com
  opener_selector: "#open"
quests:
  library_path: quests.json
  selector_path: selectors.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Mode)
	assert.Equal(t, 30*time.Second, cfg.Bridge.ResponseTimeout.Std())
	assert.Equal(t, "normal", cfg.Logging.Verbosity)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing target url",
			content: `
target:
  opener_selector: "#open"
quests:
  library_path: q.json
  selector_path: s.json
`,
		},
		{
			name: "missing opener",
			content: `
target:
  url: https://x
quests:
  library_path: q.json
  selector_path: s.json
`,
		},
		{
			name: "missing quest paths",
			content: `
target:
  url: https://x
  opener_selector: "#open"
`,
		},
		{
			name: "bad mode",
			content: `
target:
  url: https://x
  opener_selector: "#open"
quests:
  library_path: q.json
  selector_path: s.json
mode: turbo
`,
		},
		{
			name: "listen addr without origins",
			content: `
target:
  url: https://x
  opener_selector: "#open"
quests:
  library_path: q.json
  selector_path: s.json
bridge:
  listen_addr: ":9100"
`,
		},
		{
			name: "bad verbosity",
			content: `
target:
  url: https://x
  opener_selector: "#open"
quests:
  library_path: q.json
  selector_path: s.json
logging:
  verbosity: chatty
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSettingsStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	store, err := NewSettingsStore(path)
	require.NoError(t, err)
	assert.Equal(t, Settings{}, store.Get(), "a missing file starts empty")

	store.Set(Settings{Mode: "real", LastQuestID: "payroll-intro", SubAppFilter: "payroll*"})
	require.NoError(t, store.Save())

	// No temp file is left behind after the atomic rename.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	reloaded, err := NewSettingsStore(path)
	require.NoError(t, err)
	got := reloaded.Get()
	assert.Equal(t, "real", got.Mode)
	assert.Equal(t, "payroll-intro", got.LastQuestID)
	assert.Equal(t, "payroll*", got.SubAppFilter)
}

func TestSettingsStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewSettingsStore(path)
	assert.Error(t, err)
}
