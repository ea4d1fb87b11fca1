// Package config loads CLI settings from defaults, storyweave.yaml, the
// environment and flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileNames are the config files looked up in the story directory.
var FileNames = []string{"storyweave.yaml", "storyweave.yml"}

// EnvPrefix prefixes environment overrides: STORYWEAVE_REDIS_ADDR sets redis_addr.
const EnvPrefix = "STORYWEAVE_"

// Session store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Graph source backends.
const (
	SourceFile = "file"
	SourceLoam = "loam"
)

// Config is the resolved CLI configuration.
type Config struct {
	Dir          string        `koanf:"dir"`
	Source       string        `koanf:"source"`
	Entry        string        `koanf:"entry"`
	LogLevel     string        `koanf:"log_level"`
	Port         int           `koanf:"port"`
	Store        string        `koanf:"store"`
	RedisAddr    string        `koanf:"redis_addr"`
	RedisPrefix  string        `koanf:"redis_prefix"`
	SessionTTL   time.Duration `koanf:"session_ttl"`
	SQLitePath   string        `koanf:"sqlite_path"`
	SessionDir   string        `koanf:"session_dir"`
	AutoDelay    time.Duration `koanf:"auto_delay"`
	MaxInputSize int           `koanf:"max_input_size"`

	// EncryptionKey (base64 or hex, 32 bytes) encrypts stored sessions.
	EncryptionKey          string   `koanf:"encryption_key"`
	EncryptionFallbackKeys []string `koanf:"encryption_fallback_keys"`
	// RedactVariables are name patterns whose values are masked before saving.
	RedactVariables []string `koanf:"redact_variables"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"dir":            ".",
		"source":         SourceFile,
		"entry":          "start",
		"log_level":      "info",
		"port":           8080,
		"store":          StoreMemory,
		"redis_addr":     "localhost:6379",
		"redis_prefix":   "storyweave:session:",
		"session_ttl":    "24h",
		"sqlite_path":    ".storyweave/sessions.db",
		"session_dir":    ".storyweave/sessions",
		"auto_delay":     "50ms",
		"max_input_size": 4096,
	}
}

// flagKeys maps flag names whose config key is not the snake_case of the name.
var flagKeys = map[string]string{
	"delay": "auto_delay",
}

// Load resolves the configuration. Only flags the user changed override the
// lower layers. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})

	// The directory decides which config file to read, so resolve it from the
	// higher layers first.
	dir := k.String("dir")
	if v := os.Getenv(EnvPrefix + "DIR"); v != "" {
		dir = v
	}
	if flags != nil && flags.Changed("dir") {
		dir, _ = flags.GetString("dir")
	}

	used := ""
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			used = candidate
			break
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error checking config file %s: %w", candidate, err)
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Dir = dir
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the commands cannot work around.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want memory, file, redis or sqlite)", c.Store))
	}
	switch c.Source {
	case SourceFile, SourceLoam:
	default:
		errs = append(errs, fmt.Errorf("unknown source %q (want file or loam)", c.Source))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MaxInputSize <= 0 {
		errs = append(errs, fmt.Errorf("max_input_size must be positive, got %d", c.MaxInputSize))
	}
	if c.AutoDelay < 0 {
		errs = append(errs, fmt.Errorf("auto_delay must not be negative"))
	}
	return errors.Join(errs...)
}
