// Package config loads nbkit settings from defaults, an optional nbkit.yaml,
// NBKIT_* environment variables and command line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/don7panic/nbkit/auth"
	"github.com/don7panic/nbkit/demos"
	"github.com/don7panic/nbkit/logging"
)

const (
	EnvPrefix = "NBKIT"
	FileName  = "nbkit"
)

type Config struct {
	Root                string `mapstructure:"root"`
	NotebooksDir        string `mapstructure:"notebooks_dir"`
	PublicDir           string `mapstructure:"public_dir"`
	FunctionsDir        string `mapstructure:"functions_dir"`
	ManifestFile        string `mapstructure:"manifest_file"`
	LinkBaseURL         string `mapstructure:"link_base_url"`
	DemosFile           string `mapstructure:"demos_file"`
	DemoComponentImport string `mapstructure:"demo_component_import"`
	ImportsSummary      string `mapstructure:"imports_summary"`
	Python              string `mapstructure:"python"`
	Workers             int    `mapstructure:"workers"`

	Log  LogConfig  `mapstructure:"log"`
	Site SiteConfig `mapstructure:"site"`
	Auth AuthConfig `mapstructure:"auth"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SiteConfig struct {
	Command    []string `mapstructure:"command"`
	Dir        string   `mapstructure:"dir"`
	ContentDir string   `mapstructure:"content_dir"`
}

type AuthConfig struct {
	ClientID  string   `mapstructure:"client_id"`
	TenantID  string   `mapstructure:"tenant_id"`
	Scopes    []string `mapstructure:"scopes"`
	CachePath string   `mapstructure:"cache_path"`
}

// New returns a viper instance with every default set and environment
// lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("root", ".")
	v.SetDefault("notebooks_dir", "notebooks")
	v.SetDefault("public_dir", "public")
	v.SetDefault("functions_dir", "functions")
	v.SetDefault("manifest_file", "example_functions.json")
	v.SetDefault("link_base_url", "https://www.boardflare.com/python-functions")
	v.SetDefault("demos_file", "demos_gradio.mdx")
	v.SetDefault("demo_component_import", demos.DefaultComponentImport)
	v.SetDefault("imports_summary", "scripts/imports_summary.json")
	v.SetDefault("python", "python3")
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatConsole)
	v.SetDefault("site.command", []string{"npm", "run", "build"})
	v.SetDefault("site.dir", ".")
	v.SetDefault("site.content_dir", "public/notebooks")
	v.SetDefault("auth.client_id", auth.DefaultClientID)
	v.SetDefault("auth.tenant_id", auth.DefaultTenantID)
	v.SetDefault("auth.scopes", auth.DefaultScopes)
	v.SetDefault("auth.cache_path", auth.DefaultCachePath)
	return v
}

// Load reads file, or nbkit.yaml from the configured root when file is
// empty, and decodes the merged settings. A missing nbkit.yaml is not an
// error; a missing explicit file is.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("root"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Path resolves a project-relative path against Root.
func (c Config) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Root, filepath.FromSlash(rel))
}

func (c Config) NotebooksPath() string { return c.Path(c.NotebooksDir) }
func (c Config) FunctionsPath() string { return c.Path(c.FunctionsDir) }
func (c Config) ContentPath() string   { return c.Path(c.Site.ContentDir) }
func (c Config) SummaryPath() string   { return c.Path(c.ImportsSummary) }
func (c Config) SiteDir() string       { return c.Path(c.Site.Dir) }

func (c Config) ManifestPath() string {
	return c.Path(filepath.Join(c.PublicDir, c.ManifestFile))
}

func (c Config) DemosPath() string {
	return c.Path(filepath.Join(c.FunctionsDir, c.DemosFile))
}

func (c Config) AuthConfig() auth.Config {
	return auth.Config{
		ClientID:  c.Auth.ClientID,
		TenantID:  c.Auth.TenantID,
		Scopes:    c.Auth.Scopes,
		CachePath: c.Path(c.Auth.CachePath),
	}
}
