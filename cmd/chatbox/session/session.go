// Package session resolves the global chatbox flags into an opened
// conversation store shared by every subcommand.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatbox/pkg/chat"
	"github.com/papercomputeco/chatbox/pkg/config"
	"github.com/papercomputeco/chatbox/pkg/logger"
	"github.com/papercomputeco/chatbox/pkg/reply"
	"github.com/papercomputeco/chatbox/pkg/storage"
	"github.com/papercomputeco/chatbox/pkg/storage/bolt"
	"github.com/papercomputeco/chatbox/pkg/storage/inmemory"
	"github.com/papercomputeco/chatbox/pkg/storage/sqlite"
)

// Global flag names.
const (
	FlagConfig = "config"
	FlagDB     = "db"
	FlagURL    = "url"
	FlagDebug  = "debug"
)

// AddFlags registers the global flags as persistent flags of cmd.
func AddFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String(FlagConfig, "", "Path to config file (default ~/.chatbox/config.toml)")
	flags.String(FlagDB, "", "Path to the conversation database (default ~/.chatbox/chatbox.db, \".bolt\" for bbolt, \":memory:\" for no persistence)")
	flags.String(FlagURL, "", "Reply endpoint URL (default "+reply.DefaultURL+")")
	flags.Bool(FlagDebug, false, "Enable debug logging")
}

// LoadConfig loads the config file named by --config and applies the flags
// the user set on top of it. Flags that are not registered on cmd are
// ignored.
func LoadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString(FlagConfig)

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed(FlagDB) {
		cfg.DB, _ = flags.GetString(FlagDB)
	}
	if flags.Changed(FlagURL) {
		cfg.URL, _ = flags.GetString(FlagURL)
	}
	if flags.Changed(FlagDebug) {
		cfg.Debug, _ = flags.GetBool(FlagDebug)
	}

	return cfg, nil
}

// OpenDriver opens the storage driver the database path selects: ":memory:"
// is in-memory, ".bolt" and ".bbolt" files use bbolt, anything else SQLite.
func OpenDriver(ctx context.Context, dbPath string) (storage.Driver, error) {
	if dbPath == ":memory:" {
		return inmemory.NewDriver(), nil
	}

	switch strings.ToLower(filepath.Ext(dbPath)) {
	case ".bolt", ".bbolt":
		return bolt.NewDriver(dbPath)
	default:
		return sqlite.NewDriver(ctx, dbPath)
	}
}

// Session is an opened, initialized conversation store.
type Session struct {
	Config config.Config
	DBPath string
	Driver storage.Driver
	Store  *chat.Store
	Logger *zap.Logger

	closeLog func() error
}

type openOptions struct {
	logToFile bool
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

// WithFileLogging sends log output to ~/.chatbox/chatbox.log instead of
// stderr, for commands that own the terminal or stdio.
func WithFileLogging() OpenOption {
	return func(o *openOptions) {
		o.logToFile = true
	}
}

// Open resolves the configuration of cmd, opens the database and restores
// the conversation.
func Open(ctx context.Context, cmd *cobra.Command, opts ...OpenOption) (*Session, error) {
	o := &openOptions{}
	for _, opt := range opts {
		opt(o)
	}

	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	s := &Session{Config: cfg}

	if o.logToFile {
		logPath, err := cfg.LogPath()
		if err != nil {
			return nil, err
		}
		s.Logger, s.closeLog, err = logger.NewFileLogger(cfg.Debug, logPath)
		if err != nil {
			return nil, err
		}
	} else {
		s.Logger = logger.NewLogger(cfg.Debug, cmd.ErrOrStderr())
	}

	s.DBPath, err = cfg.DBPath()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("could not resolve database: %w", err)
	}

	s.Driver, err = OpenDriver(ctx, s.DBPath)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("could not open database %s: %w", s.DBPath, err)
	}

	s.Logger.Debug("opened conversation database", zap.String("path", s.DBPath))

	s.Store = chat.NewStore(s.Driver, s.Logger, cfg.StoreOptions()...)
	s.Store.Initialize(ctx)

	return s, nil
}

// NewController builds a Controller posting to the configured endpoint.
func (s *Session) NewController() *chat.Controller {
	client := reply.NewClient(s.Config.URL, reply.WithLogger(s.Logger))
	return chat.NewController(s.Store, client, s.Logger, s.Config.ControllerOptions()...)
}

// Close releases the database and flushes the log.
func (s *Session) Close() error {
	var err error
	if s.Driver != nil {
		err = s.Driver.Close()
	}
	if s.Logger != nil {
		_ = s.Logger.Sync()
	}
	if s.closeLog != nil {
		if cerr := s.closeLog(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
