// Package config loads the settings of the pocket CLI and server.
//
// Settings come, by increasing priority, from defaults, an optional yaml file,
// and environment variables prefixed with POCKET_ (e.g. POCKET_REMOTE_URL for
// remote.url). A .env file in the working directory is loaded into the
// environment first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type LocalConfig struct {
	// Driver is "jsonl" or "sqlite".
	Driver string `mapstructure:"driver"`
	// Path is the ledger folder for jsonl, the database file for sqlite.
	Path string `mapstructure:"path"`
}

type DatabaseConfig struct {
	LogMode bool `mapstructure:"log_mode"`
}

type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SyncConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	// Location is the IANA time zone deciding calendar days. Empty is local time.
	Location string `mapstructure:"location"`
}

type ServerConfig struct {
	Address      string   `mapstructure:"address"`
	Mode         string   `mapstructure:"mode"`
	DatabaseURL  string   `mapstructure:"database_url"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type Config struct {
	Owner    string         `mapstructure:"owner"`
	Currency string         `mapstructure:"currency"`
	Local    LocalConfig    `mapstructure:"local"`
	Database DatabaseConfig `mapstructure:"database"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Server   ServerConfig   `mapstructure:"server"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("owner", "")
	v.SetDefault("currency", "EUR")
	v.SetDefault("local.driver", "jsonl")
	v.SetDefault("local.path", ".pocket")
	v.SetDefault("database.log_mode", false)
	v.SetDefault("remote.url", "http://localhost:8080")
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("sync.interval", time.Minute)
	v.SetDefault("sync.location", "")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.database_url", "")
	v.SetDefault("server.allow_origins", []string{})
}

// Load reads the configuration file at path. An empty path looks for an
// optional pocket.yaml in the working directory, then in the user config
// directory.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("cannot load .env file, using environment variables: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("pocket")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "pocket"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("POCKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values that cannot be checked by their type.
func (c *Config) Validate() error {
	var errs []error
	switch c.Local.Driver {
	case "jsonl", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("local.driver: unknown driver %q, want jsonl or sqlite", c.Local.Driver))
	}
	if c.Local.Path == "" {
		errs = append(errs, errors.New("local.path: missing"))
	}
	if money.GetCurrency(strings.ToUpper(c.Currency)) == nil {
		errs = append(errs, fmt.Errorf("currency: unknown currency code %q", c.Currency))
	}
	if c.Sync.Interval <= 0 {
		errs = append(errs, fmt.Errorf("sync.interval: %v is not positive", c.Sync.Interval))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("sync.location: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the time zone of sync.location.
func (c *Config) Location() (*time.Location, error) {
	if c.Sync.Location == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Sync.Location)
}
