// Package config loads the chatbox configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/chatbox/pkg/chat"
	"github.com/papercomputeco/chatbox/pkg/reply"
)

const (
	// DirName is the per-user directory holding config, database and logs.
	DirName = ".chatbox"

	FileName = "config.toml"
	DBName   = "chatbox.db"
	LogName  = "chatbox.log"
)

// Config is the chatbox client configuration. Zero values mean "use the
// default"; CLI flags override whatever the file sets.
type Config struct {
	// URL of the reply endpoint
	URL string `toml:"url"`

	// DB is the database path. ".bolt" files use bbolt, ":memory:" keeps
	// state in memory, anything else is SQLite.
	DB string `toml:"db"`

	// Timeout bounds a single reply request, e.g. "90s". Zero disables it.
	Timeout time.Duration `toml:"timeout"`

	SystemPrompt string `toml:"system_prompt"`
	Greeting     string `toml:"greeting"`

	Debug bool `toml:"debug"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		URL:          reply.DefaultURL,
		Timeout:      chat.DefaultReplyTimeout,
		SystemPrompt: chat.DefaultSystemPrompt,
		Greeting:     chat.DefaultGreeting,
	}
}

// Dir returns ~/.chatbox.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// DefaultPath returns ~/.chatbox/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the config file at path over the defaults. An empty path reads
// the default location, where a missing file is not an error. Unknown keys
// are rejected so typos surface.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("could not load config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Default(), fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}

	if cfg.Timeout < 0 {
		return Default(), fmt.Errorf("invalid timeout %s in config %s", cfg.Timeout, path)
	}

	return cfg, nil
}

// DBPath returns the configured database path, or ~/.chatbox/chatbox.db.
// A leading ~ in the configured path is expanded to the home directory.
func (c Config) DBPath() (string, error) {
	if c.DB != "" {
		return expandHome(c.DB)
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DBName), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// LogPath returns the file the interactive frontends log to.
func (c Config) LogPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LogName), nil
}

// StoreOptions returns the Store options the configuration implies.
func (c Config) StoreOptions() []chat.StoreOption {
	return []chat.StoreOption{chat.WithSeed(c.SystemPrompt, c.Greeting)}
}

// ControllerOptions returns the Controller options the configuration implies.
func (c Config) ControllerOptions() []chat.ControllerOption {
	return []chat.ControllerOption{chat.WithReplyTimeout(c.Timeout)}
}
