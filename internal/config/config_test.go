package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError bool
		check       func(t *testing.T, c *Config)
	}{
		{
			name:  "defaults",
			setup: func(v *viper.Viper) {},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultRootURL, c.RootURL)
				assert.Equal(t, []string{".tmpl"}, c.FileExtensions)
				assert.True(t, c.UseCache)
				assert.True(t, c.AutoReload)
				assert.False(t, c.Fingerprint)
				assert.Equal(t, DefaultCacheSize, c.CacheSize)
				assert.Equal(t, DefaultAllowedExt, c.Server.AllowedExt)
			},
		},
		{
			name: "normalizes root url and extensions",
			setup: func(v *viper.Viper) {
				v.Set("root_url", " /assets// ")
				v.Set("file_extensions", []string{"html", ".jinja"})
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "/assets/", c.RootURL)
				assert.Equal(t, []string{".html", ".jinja"}, c.FileExtensions)
			},
		},
		{
			name: "comma separated extensions from env",
			setup: func(v *viper.Viper) {
				v.Set("file_extensions", ".tmpl,.html")
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, []string{".tmpl", ".html"}, c.FileExtensions)
			},
		},
		{
			name: "folders",
			setup: func(v *viper.Viper) {
				v.Set("folders", []map[string]interface{}{
					{"path": "./components"},
					{"path": "./vendor/ui", "prefix": "ui"},
				})
			},
			check: func(t *testing.T, c *Config) {
				require.Len(t, c.Folders, 2)
				assert.Equal(t, "ui", c.Folders[1].Prefix)
			},
		},
		{
			name: "invalid port type",
			setup: func(v *viper.Viper) {
				v.Set("server.port", "invalid_port")
			},
			expectError: true,
		},
		{
			name: "port out of range",
			setup: func(v *viper.Viper) {
				v.Set("server.port", 70000)
			},
			expectError: true,
		},
		{
			name: "negative cache size",
			setup: func(v *viper.Viper) {
				v.Set("cache_size", -1)
			},
			expectError: true,
		},
		{
			name: "bad prefix",
			setup: func(v *viper.Viper) {
				v.Set("folders", []map[string]interface{}{{"path": "x", "prefix": "a:b"}})
			},
			expectError: true,
		},
		{
			name: "bad log format",
			setup: func(v *viper.Viper) {
				v.Set("log.format", "xml")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)

			config, err := LoadFrom(v)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, config)
				return
			}
			require.NoError(t, err)
			tt.check(t, config)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tagx.yml")
	content := `root_url: /components
fingerprint: true
auto_reload: false
folders:
  - path: ./components
  - path: ./lib
    prefix: lib
server:
  port: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	config, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "/components/", config.RootURL)
	assert.True(t, config.Fingerprint)
	assert.False(t, config.AutoReload)
	assert.True(t, config.UseCache)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, []FolderConfig{{Path: "./components"}, {Path: "./lib", Prefix: "lib"}}, config.Folders)
}

func TestLoadGlobal(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("use_cache", false)

	config, err := Load()
	require.NoError(t, err)
	assert.False(t, config.UseCache)
}

func TestNormalizeRootURL(t *testing.T) {
	assert.Equal(t, "/", NormalizeRootURL(""))
	assert.Equal(t, "/static/", NormalizeRootURL("/static"))
	assert.Equal(t, "https://cdn.example.com/c/", NormalizeRootURL("https://cdn.example.com/c///"))
}
