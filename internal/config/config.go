package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the ownerkit configuration
type Config struct {
	ADB       ADBConfig       `mapstructure:"adb"`
	Provision ProvisionConfig `mapstructure:"provision"`
	Accounts  AccountsConfig  `mapstructure:"accounts"`
	Log       LogConfig       `mapstructure:"log"`
	Lang      string          `mapstructure:"lang"`
}

// ADBConfig contains adb binary settings
type ADBConfig struct {
	Path           string        `mapstructure:"path"`
	DefaultDevice  string        `mapstructure:"default_device"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// ProvisionConfig contains the pauses used around post-install commands
type ProvisionConfig struct {
	RegisterDelay time.Duration `mapstructure:"register_delay"`
	OwnerDelay    time.Duration `mapstructure:"owner_delay"`
	CommandPause  time.Duration `mapstructure:"command_pause"`
	Workers       int           `mapstructure:"workers"`
}

// AccountsConfig contains account workaround settings
type AccountsConfig struct {
	User        int           `mapstructure:"user"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

var defaultConfig = Config{
	ADB: ADBConfig{
		Path:           "adb",
		DefaultDevice:  "",
		CommandTimeout: 60 * time.Second,
	},
	Provision: ProvisionConfig{
		RegisterDelay: 2 * time.Second,
		OwnerDelay:    3 * time.Second,
		CommandPause:  500 * time.Millisecond,
		Workers:       4,
	},
	Accounts: AccountsConfig{
		User:        0,
		SettleDelay: time.Second,
	},
	Log: LogConfig{
		Level:  "info",
		Format: "text",
	},
}

// Default returns a copy of the built-in configuration
func Default() *Config {
	c := defaultConfig
	return &c
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("adb.path", defaultConfig.ADB.Path)
	v.SetDefault("adb.default_device", defaultConfig.ADB.DefaultDevice)
	v.SetDefault("adb.command_timeout", defaultConfig.ADB.CommandTimeout)
	v.SetDefault("provision.register_delay", defaultConfig.Provision.RegisterDelay)
	v.SetDefault("provision.owner_delay", defaultConfig.Provision.OwnerDelay)
	v.SetDefault("provision.command_pause", defaultConfig.Provision.CommandPause)
	v.SetDefault("provision.workers", defaultConfig.Provision.Workers)
	v.SetDefault("accounts.user", defaultConfig.Accounts.User)
	v.SetDefault("accounts.settle_delay", defaultConfig.Accounts.SettleDelay)
	v.SetDefault("log.level", defaultConfig.Log.Level)
	v.SetDefault("log.format", defaultConfig.Log.Format)
	v.SetDefault("log.file", defaultConfig.Log.File)
	v.SetDefault("lang", defaultConfig.Lang)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("ownerkit")
		v.AddConfigPath(".")
		if dir, err := DefaultDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: defaults and environment only
	}

	v.SetEnvPrefix("OWNERKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ADB.Path) == "" {
		return fmt.Errorf("adb.path must not be empty")
	}
	if c.ADB.CommandTimeout < 0 {
		return fmt.Errorf("adb.command_timeout must not be negative")
	}
	if c.Accounts.User < 0 {
		return fmt.Errorf("accounts.user must not be negative")
	}
	if c.Provision.RegisterDelay < 0 || c.Provision.OwnerDelay < 0 || c.Provision.CommandPause < 0 || c.Accounts.SettleDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.Provision.Workers <= 0 {
		c.Provision.Workers = defaultConfig.Provision.Workers
	}
	return nil
}

// DefaultDir returns ~/.config/ownerkit
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ownerkit"), nil
}

// SaveTemplate saves a configuration template
func SaveTemplate(path string) error {
	templateContent := `# ownerkit configuration file

adb:
  # adb executable, looked up in PATH when not absolute
  path: "adb"

  # Serial used when no -s/--device flag is given
  default_device: ""

  # Upper bound for a single adb invocation
  command_timeout: 60s

provision:
  # Wait after installing an APK before running its commands
  register_delay: 2s

  # Extra wait before dpm set-device-owner / device-admin commands
  owner_delay: 3s

  # Pause between post-install commands
  command_pause: 500ms

  # Devices provisioned in parallel with --all
  workers: 4

accounts:
  # Android user the account apps are disabled for
  user: 0

  # Wait after disabling account apps so the authenticator cache catches up
  settle_delay: 1s

log:
  # debug, info, warn, error
  level: "info"

  # text or json
  format: "text"

  # Optional log file (JSON lines)
  file: ""

# Interface language (en, zh); empty follows the environment
lang: ""
`

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(templateContent), 0644)
}
