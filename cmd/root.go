// Package cmd provides the tagx command-line interface.
//
// Configuration is read, highest priority first, from command-line flags,
// TAGX_* environment variables (a .env file in the working directory is
// loaded into the environment first), and a tagx.yml or .tagx.yml file in
// the working directory or the file named by --config / TAGX_CONFIG_FILE.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/tagx/internal/catalog"
	"github.com/conneroisu/tagx/internal/config"
	"github.com/conneroisu/tagx/internal/logging"
)

// app is the state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	folders []string
}

// Execute runs the tagx command line.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the tagx command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "tagx",
		Short: "Render HTML-like component tags on top of Go templates",
		Long: `tagx renders component files written as Go text/template sources where
other components are used as HTML-like tags:

  <Card title="Hello"><p>Body</p></Card>

Components declare their arguments and assets in a leading comment
header and are found by name in one or more component folders.

Quick Start:
  tagx new card                 Create components/Card.tmpl
  tagx render Card -a title=Hi  Render a component to stdout
  tagx list                     List the components and their arguments
  tagx serve                    Preview components in the browser`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd.Root().PersistentFlags())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is tagx.yml or .tagx.yml, also TAGX_CONFIG_FILE)")
	flags.StringArrayVarP(&a.folders, "folder", "F", nil, "component folder as path or prefix=path (repeatable)")
	flags.String("root-url", config.DefaultRootURL, "URL prefix of component assets")
	flags.StringSlice("ext", []string{config.DefaultExtension}, "component file extensions")
	flags.Bool("fingerprint", false, "add content hashes to local asset URLs")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")

	root.AddCommand(
		newRenderCommand(a),
		newSourceCommand(a),
		newListCommand(a),
		newNewCommand(a),
		newServeCommand(a),
		newVersionCommand(),
	)

	return root
}

var flagKeys = map[string]string{
	"root-url":    "root_url",
	"ext":         "file_extensions",
	"fingerprint": "fingerprint",
	"log-level":   "log.level",
	"log-format":  "log.format",
}

// initConfig loads .env, binds flags and environment, and reads the config
// file if there is one.
func (a *app) initConfig(flags *pflag.FlagSet) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	for flag, key := range flagKeys {
		if f := flags.Lookup(flag); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	a.v.SetEnvPrefix("TAGX")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	switch {
	case a.cfgFile != "":
		a.v.SetConfigFile(a.cfgFile)
	case os.Getenv("TAGX_CONFIG_FILE") != "":
		a.v.SetConfigFile(os.Getenv("TAGX_CONFIG_FILE"))
	default:
		for _, name := range []string{"tagx.yml", "tagx.yaml", ".tagx.yml", ".tagx.yaml"} {
			if _, err := os.Stat(name); err == nil {
				a.v.SetConfigFile(name)
				break
			}
		}
	}

	if a.v.ConfigFileUsed() == "" {
		return nil
	}
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", a.v.ConfigFileUsed(), err)
	}
	return nil
}

// loadConfig resolves the configuration and adds the --folder flags to
// the configured folders. Without any folder, ./components is used when
// it exists, the working directory otherwise.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(a.v)
	if err != nil {
		return nil, err
	}

	for _, f := range a.folders {
		cfg.Folders = append(cfg.Folders, parseFolder(f))
	}
	if len(cfg.Folders) == 0 {
		dir := "."
		if info, err := os.Stat("components"); err == nil && info.IsDir() {
			dir = "components"
		}
		cfg.Folders = []config.FolderConfig{{Path: dir}}
	}
	return cfg, nil
}

// parseFolder reads "prefix=path" or a bare path.
func parseFolder(s string) config.FolderConfig {
	if prefix, path, ok := strings.Cut(s, "="); ok {
		return config.FolderConfig{Path: filepath.Clean(path), Prefix: strings.TrimSpace(prefix)}
	}
	return config.FolderConfig{Path: filepath.Clean(s)}
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// setup loads the configuration and opens the catalog it describes.
func (a *app) setup() (*config.Config, *catalog.Catalog, logging.Logger, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(cfg)
	cat, err := catalog.New(cfg, catalog.WithLogger(logger))
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, cat, logger, nil
}
