// Package config provides configuration management for tagx using Viper for
// loading from files, environment variables, and command-line flags.
//
// Configuration is read from tagx.yml (or .tagx.yml) with TAGX_ environment
// overrides. It controls asset URLs, the component file extensions, the
// descriptor cache, the folders registered with the catalog, the preview
// server, and logging.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultRootURL is where collected component assets are served from.
	DefaultRootURL = "/static/components/"
	// DefaultExtension is the component file extension.
	DefaultExtension = ".tmpl"
	// DefaultCacheSize bounds the number of cached descriptors.
	DefaultCacheSize = 1024
)

// DefaultAllowedExt are the asset extensions the static middleware serves.
var DefaultAllowedExt = []string{".css", ".js", ".mjs"}

type Config struct {
	RootURL        string         `mapstructure:"root_url" yaml:"root_url"`
	FileExtensions []string       `mapstructure:"file_extensions" yaml:"file_extensions"`
	UseCache       bool           `mapstructure:"use_cache" yaml:"use_cache"`
	AutoReload     bool           `mapstructure:"auto_reload" yaml:"auto_reload"`
	Fingerprint    bool           `mapstructure:"fingerprint" yaml:"fingerprint"`
	CacheSize      int            `mapstructure:"cache_size" yaml:"cache_size"`
	Folders        []FolderConfig `mapstructure:"folders" yaml:"folders"`
	Server         ServerConfig   `mapstructure:"server" yaml:"server"`
	Log            LogConfig      `mapstructure:"log" yaml:"log"`
}

// FolderConfig registers one search root under a prefix.
type FolderConfig struct {
	Path   string `mapstructure:"path" yaml:"path"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

type ServerConfig struct {
	Host       string   `mapstructure:"host" yaml:"host"`
	Port       int      `mapstructure:"port" yaml:"port"`
	AllowedExt []string `mapstructure:"allowed_ext" yaml:"allowed_ext"`
	LiveReload bool     `mapstructure:"live_reload" yaml:"live_reload"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		RootURL:        DefaultRootURL,
		FileExtensions: []string{DefaultExtension},
		UseCache:       true,
		AutoReload:     true,
		Fingerprint:    false,
		CacheSize:      DefaultCacheSize,
		Server: ServerConfig{
			Host:       "localhost",
			Port:       8080,
			AllowedExt: append([]string(nil), DefaultAllowedExt...),
			LiveReload: true,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("root_url", d.RootURL)
	v.SetDefault("file_extensions", d.FileExtensions)
	v.SetDefault("use_cache", d.UseCache)
	v.SetDefault("auto_reload", d.AutoReload)
	v.SetDefault("fingerprint", d.Fingerprint)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowed_ext", d.Server.AllowedExt)
	v.SetDefault("server.live_reload", d.Server.LiveReload)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads, normalizes, and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Slices set through env or flags arrive as a single string.
	if len(config.FileExtensions) == 0 || (len(config.FileExtensions) == 1 && strings.Contains(config.FileExtensions[0], ",")) {
		config.FileExtensions = splitList(v.GetString("file_extensions"))
	}

	config.Normalize()

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Normalize canonicalizes the root URL and extensions in place.
func (c *Config) Normalize() {
	c.RootURL = NormalizeRootURL(c.RootURL)

	exts := make([]string, 0, len(c.FileExtensions))
	for _, ext := range c.FileExtensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = []string{DefaultExtension}
	}
	c.FileExtensions = exts

	if len(c.Server.AllowedExt) == 0 {
		c.Server.AllowedExt = append([]string(nil), DefaultAllowedExt...)
	}
}

// NormalizeRootURL returns url with exactly one trailing slash.
func NormalizeRootURL(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	return url + "/"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// validateConfig validates configuration values
func validateConfig(config *Config) error {
	if config.CacheSize < 0 {
		return fmt.Errorf("cache_size %d must not be negative", config.CacheSize)
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	for i, folder := range config.Folders {
		if strings.TrimSpace(folder.Path) == "" {
			return fmt.Errorf("folders[%d]: empty path", i)
		}
		if strings.ContainsAny(folder.Prefix, " \t\n:") {
			return fmt.Errorf("folders[%d]: invalid prefix %q", i, folder.Prefix)
		}
	}

	switch config.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log format %q must be text or json", config.Log.Format)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}
