package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
site_title: My Site
output_dir: public
url_include_index: false
authors: ["Ann <ann@example.com>", "Bob"]
google_analytics: UA-1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "My Site", cfg.Title)
	assert.Equal(t, "public", cfg.OutputDir)
	assert.Equal(t, "content", cfg.ContentDir)
	assert.False(t, cfg.URLIncludeIndex)
	assert.Equal(t, "/{category}/{slug}{page}.{ext}", cfg.URLPattern)
	assert.Equal(t, StringList{"Ann <ann@example.com>", "Bob"}, cfg.Authors)
	assert.Equal(t, "UA-1", cfg.Extra["google_analytics"])
}

func TestLoadSingularAuthorCSV(t *testing.T) {
	cfg, err := Load(writeConfig(t, "author: Ann, Bob\n"))
	require.NoError(t, err)
	assert.Equal(t, StringList{"Ann", "Bob"}, cfg.Authors)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "site_title: [unclosed\n"))
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"OUTPUT_DIR", "dist")
	cfg, err := Load(writeConfig(t, "output_dir: public\n"))
	require.NoError(t, err)
	assert.Equal(t, "dist", cfg.OutputDir)
}
