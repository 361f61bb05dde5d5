// Package config holds the explicit runtime configuration for the
// courier. Every handler receives a Config value; there are no
// process-wide singletons, so tests can point each layer at fixture
// databases and stub interpreters.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config carries the datastore locations and automation settings.
type Config struct {
	// MessagesDB is the path to the Messages conversation store.
	MessagesDB string `mapstructure:"messages_db" yaml:"messages_db"`

	// ContactsGlob locates the AddressBook source databases. More than
	// one source can exist (iCloud, local, Exchange); all are searched.
	ContactsGlob string `mapstructure:"contacts_glob" yaml:"contacts_glob"`

	// OSAScriptBin is the automation interpreter. Overridable so tests
	// can substitute a plain shell.
	OSAScriptBin string `mapstructure:"osascript_bin" yaml:"osascript_bin"`

	// ScriptTimeout bounds each automation subprocess.
	ScriptTimeout time.Duration `mapstructure:"script_timeout" yaml:"script_timeout"`

	// MaxResults caps ranked resolution candidate lists.
	MaxResults int `mapstructure:"max_results" yaml:"max_results"`

	// TempDir receives the per-call script files. Empty means the
	// system temp directory.
	TempDir string `mapstructure:"temp_dir" yaml:"temp_dir"`
}

// EnvPrefix is the environment namespace: MSGCOURIER_MESSAGES_DB etc.
const EnvPrefix = "MSGCOURIER"

// Default returns the configuration for a stock macOS account.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		MessagesDB:    filepath.Join(home, "Library", "Messages", "chat.db"),
		ContactsGlob:  filepath.Join(home, "Library", "Application Support", "AddressBook", "Sources", "*", "AddressBook-v22.abcddb"),
		OSAScriptBin:  "osascript",
		ScriptTimeout: 30 * time.Second,
		MaxResults:    20,
	}
}

// Load reads configuration from an optional YAML file and the
// environment, on top of Default. An empty path skips the file.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("messages_db", def.MessagesDB)
	v.SetDefault("contacts_glob", def.ContactsGlob)
	v.SetDefault("osascript_bin", def.OSAScriptBin)
	v.SetDefault("script_timeout", def.ScriptTimeout)
	v.SetDefault("max_results", def.MaxResults)
	v.SetDefault("temp_dir", def.TempDir)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	if c.MessagesDB == "" {
		return fmt.Errorf("messages_db must not be empty")
	}
	if c.OSAScriptBin == "" {
		return fmt.Errorf("osascript_bin must not be empty")
	}
	if c.ScriptTimeout <= 0 {
		return fmt.Errorf("script_timeout must be positive, got %s", c.ScriptTimeout)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	return nil
}
