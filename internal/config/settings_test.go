package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultCachePath(t *testing.T) {
	p := Platform{GOOS: "darwin", Documents: "/Users/u/Documents", AppData: "/Users/u/Library/Application Support"}
	assert.Equal(t, filepath.Join("/Users/u/Documents", "ChromePowerCache"), p.DefaultCachePath())

	p.GOOS = "windows"
	assert.Equal(t, filepath.Join("/Users/u/Library/Application Support", "ChromePowerCache"), p.DefaultCachePath())
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name     string
		content  *string
		policy   string
		validate func(*testing.T, Settings, Platform)
	}{
		{
			name:   "Missing file falls back to defaults",
			policy: LocalChromeForce,
			validate: func(t *testing.T, s Settings, p Platform) {
				assert.Equal(t, p.DefaultCachePath(), s.ProfileCachePath)
				assert.Equal(t, p.DefaultChromePath(), s.LocalChromePath)
				assert.Equal(t, p.DefaultChromiumBinPath(), s.ChromiumBinPath)
				assert.True(t, s.UseLocalChrome)
				assert.Equal(t, "Google Chrome", s.BrowserName)
			},
		},
		{
			name:    "Malformed file falls back to defaults",
			content: strPtr(`{"profileCachePath": 12`),
			policy:  LocalChromeForce,
			validate: func(t *testing.T, s Settings, p Platform) {
				assert.Equal(t, p.DefaultCachePath(), s.ProfileCachePath)
			},
		},
		{
			name:    "Force policy overrides persisted false",
			content: strPtr(`{"profileCachePath": "/data/cache", "useLocalChrome": false}`),
			policy:  LocalChromeForce,
			validate: func(t *testing.T, s Settings, p Platform) {
				assert.Equal(t, "/data/cache", s.ProfileCachePath)
				assert.True(t, s.UseLocalChrome)
			},
		},
		{
			name:    "Respect policy keeps persisted false",
			content: strPtr(`{"useLocalChrome": false, "localChromePath": "/opt/chrome"}`),
			policy:  LocalChromeRespect,
			validate: func(t *testing.T, s Settings, p Platform) {
				assert.False(t, s.UseLocalChrome)
				assert.Equal(t, "/opt/chrome", s.LocalChromePath)
			},
		},
		{
			name:    "Legacy relative chromium path is replaced",
			content: strPtr(`{"chromiumBinPath": "Chrome-bin\\chrome.exe"}`),
			policy:  LocalChromeForce,
			validate: func(t *testing.T, s Settings, p Platform) {
				assert.Equal(t, p.DefaultChromiumBinPath(), s.ChromiumBinPath)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPlatform(t)
			path := filepath.Join(t.TempDir(), "setting.json")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0644))
			}

			s := LoadSettings(path, p, tt.policy, zap.NewNop())
			tt.validate(t, s, p)
		})
	}
}

func TestEnsureSettingsFile(t *testing.T) {
	p := testPlatform(t)
	path := filepath.Join(t.TempDir(), "nested", "setting.json")
	defaults := DefaultSettings(p)

	require.NoError(t, EnsureSettingsFile(path, defaults))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var written Settings
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, defaults, written)

	// An existing file is left untouched.
	require.NoError(t, os.WriteFile(path, []byte(`{"browserName":"Chromium"}`), 0644))
	require.NoError(t, EnsureSettingsFile(path, defaults))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"browserName":"Chromium"}`, string(data))
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	s := Settings{ProfileCachePath: filepath.Join(dir, "cache")}
	cfg := &Config{DatabasePath: filepath.Join(dir, "db", "proxy.db")}

	require.NoError(t, EnsureDirectories(s, cfg))
	require.NoError(t, EnsureDirectories(s, cfg))

	assert.DirExists(t, s.ProfileCachePath)
	assert.DirExists(t, filepath.Join(dir, "db"))
}

func strPtr(s string) *string {
	return &s
}
