package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DataDirName is the per-project directory holding config and database.
const DataDirName = ".instructions"

// DefaultDBName is the database file created inside DataDirName.
const DefaultDBName = "instructions.db"

// EnvPrefix prefixes every environment override (IL_DB, IL_LOG_LEVEL, ...).
const EnvPrefix = "IL"

// ErrNoDataDir is returned when no .instructions directory is found.
var ErrNoDataDir = errors.New("no .instructions directory found (run 'il init')")

var v *viper.Viper

// Initialize sets up the viper configuration singleton
// Should be called once at application startup
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Precedence: project .instructions/config.yaml > ~/.config/il/config.yaml
	configFileSet := false

	// Walk up from CWD so commands work from subdirectories.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, DataDirName, "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "il", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Environment variables take precedence over the config file.
	// IL_LOG_LEVEL maps to "log.level", IL_LOCK_TIMEOUT to "lock-timeout".
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "")
	v.SetDefault("actor", "")
	v.SetDefault("json", false)
	v.SetDefault("lock-timeout", "30s")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.in-memory", false)

	// versions.max-major of 0 leaves major snapshots uncapped.
	v.SetDefault("versions.keep", 10)
	v.SetDefault("versions.max-major", 0)
	v.SetDefault("versions.major-overflow", "demote")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max-size-mb", 10)
	v.SetDefault("log.max-backups", 3)
	v.SetDefault("log.max-age-days", 28)
}

// ConfigFileUsed returns the path of the loaded config file, or "".
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault    ConfigSource = "default"
	SourceConfigFile ConfigSource = "config_file"
	SourceEnvVar     ConfigSource = "env_var"
)

// EnvKey returns the environment variable that overrides key.
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// GetValueSource returns the source of a configuration value.
// Priority (highest to lowest): env var > config file > default
// Flags are resolved by the CLI before consulting config.
func GetValueSource(key string) ConfigSource {
	if v == nil {
		return SourceDefault
	}
	if os.Getenv(EnvKey(key)) != "" {
		return SourceEnvVar
	}
	if v.InConfig(key) {
		return SourceConfigFile
	}
	return SourceDefault
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns all configuration settings as a map
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// Settings is a typed snapshot of the configuration.
type Settings struct {
	DB          string
	Actor       string
	JSON        bool
	LockTimeout time.Duration

	CacheEnabled  bool
	CacheTTL      time.Duration
	CacheInMemory bool

	KeepVersions  int
	MaxMajor      int
	MajorOverflow string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Load returns the current settings. Initialize must have been called.
func Load() (*Settings, error) {
	if v == nil {
		return nil, errors.New("config not initialized")
	}
	s := &Settings{
		DB:            v.GetString("db"),
		Actor:         v.GetString("actor"),
		JSON:          v.GetBool("json"),
		LockTimeout:   v.GetDuration("lock-timeout"),
		CacheEnabled:  v.GetBool("cache.enabled"),
		CacheTTL:      v.GetDuration("cache.ttl"),
		CacheInMemory: v.GetBool("cache.in-memory"),
		KeepVersions:  v.GetInt("versions.keep"),
		MaxMajor:      v.GetInt("versions.max-major"),
		MajorOverflow: v.GetString("versions.major-overflow"),
		LogLevel:      v.GetString("log.level"),
		LogFile:       v.GetString("log.file"),
		LogMaxSizeMB:  v.GetInt("log.max-size-mb"),
		LogMaxBackups: v.GetInt("log.max-backups"),
		LogMaxAgeDays: v.GetInt("log.max-age-days"),
	}
	if s.KeepVersions < 0 {
		return nil, fmt.Errorf("versions.keep must be >= 0, got %d", s.KeepVersions)
	}
	if s.MaxMajor < 0 {
		return nil, fmt.Errorf("versions.max-major must be >= 0, got %d", s.MaxMajor)
	}
	if s.CacheTTL < 0 {
		return nil, fmt.Errorf("cache.ttl must not be negative, got %s", s.CacheTTL)
	}
	return s, nil
}

// FindDataDir walks up from start looking for a .instructions directory.
func FindDataDir(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, DataDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoDataDir
		}
		dir = parent
	}
}

// DBPath resolves the database path: an explicit flagValue, then the db
// config key, then .instructions/instructions.db found from the CWD.
func DBPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if p := GetString("db"); p != "" {
		return p, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	dataDir, err := FindDataDir(cwd)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, DefaultDBName), nil
}

// GetActor resolves who is making changes.
// Priority chain:
//  1. flagValue (from --actor)
//  2. IL_ACTOR env var / config.yaml actor field (via viper)
//  3. git config user.name
//  4. $USER
//
// Returns "" when nothing resolves; the engine then records its default actor.
func GetActor(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if actor := GetString("actor"); actor != "" {
		return actor
	}
	cmd := exec.Command("git", "config", "user.name")
	if output, err := cmd.Output(); err == nil {
		if gitUser := strings.TrimSpace(string(output)); gitUser != "" {
			return gitUser
		}
	}
	return os.Getenv("USER")
}
