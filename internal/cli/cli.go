package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramsync/pkg/buildinfo"
	"github.com/matzehuels/diagramsync/pkg/cache"
	"github.com/matzehuels/diagramsync/pkg/config"
	"github.com/matzehuels/diagramsync/pkg/history"
	"github.com/matzehuels/diagramsync/pkg/render"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "diagramsync"

	// stdinPath reads source from standard input.
	stdinPath = "-"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	out        io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "diagramsync keeps flowchart text and editable shapes in sync",
		Long: `diagramsync renders flowchart text into a scene, rewrites the text from
edits made on the rendered diagram, and converts between text and canvas
shape lists.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/diagramsync/config.toml)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.orientCommand())
	root.AddCommand(c.injectCommand())
	root.AddCommand(c.patchCommand())
	root.AddCommand(c.normalizeCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Factories
// =============================================================================

func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// newRenderer builds the Graphviz renderer behind the configured cache.
func (c *CLI) newRenderer(ctx context.Context, cfg config.Config, noCache bool) (render.Renderer, func(), error) {
	store, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, nil, err
	}
	opts := []render.Option{render.WithLogger(c.Logger)}
	if cfg.Render.FontSize > 0 {
		opts = append(opts, render.WithFontSize(cfg.Render.FontSize))
	}
	if cfg.Render.NodeSep > 0 || cfg.Render.RankSep > 0 {
		opts = append(opts, render.WithSeparation(cfg.Render.NodeSep, cfg.Render.RankSep))
	}
	var keyer cache.Keyer
	if cfg.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.Cache.Prefix)
	}
	r := render.NewCachedRenderer(render.NewGraphvizRenderer(opts...), store, keyer, c.Logger)
	return r, func() { _ = store.Close() }, nil
}

func newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(filepath.Join(dir, "scenes"))
}

// newHistory opens the configured history store. The "none" backend
// returns a nil store, which callers treat as history disabled.
func newHistory(ctx context.Context, cfg config.Config) (history.Store, error) {
	switch cfg.History.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendMemory:
		return history.NewMemoryStore(), nil
	case config.BackendRedis:
		return history.NewRedisStore(ctx, cfg.History.RedisURL)
	case config.BackendMongo:
		db := cfg.History.MongoDatabase
		if db == "" {
			db = history.DefaultMongoDatabase
		}
		return history.NewMongoStore(ctx, cfg.History.MongoURI, db, history.DefaultMongoCollection)
	}
	dir := cfg.History.Dir
	if dir == "" {
		base, err := dataDir()
		if err != nil {
			return nil, fmt.Errorf("get history dir: %w", err)
		}
		dir = filepath.Join(base, "history")
	}
	return history.NewFileStore(dir)
}

// =============================================================================
// Paths
// =============================================================================

// dataDir returns the data directory using XDG standard
// (~/.local/share/diagramsync/). File history lives here, outside the
// cache directory.
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// =============================================================================
// Input / Output
// =============================================================================

// readInput reads path, standard input for "-", or the clipboard when paste
// is set.
func readInput(path string, paste bool) ([]byte, error) {
	if paste {
		text, err := clipboard.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read clipboard: %w", err)
		}
		return []byte(text), nil
	}
	if path == "" || path == stdinPath {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes data to path, or to the CLI's stdout when path is
// empty, and optionally copies it to the clipboard.
func (c *CLI) writeOutput(path string, data []byte, copyText bool) error {
	if copyText {
		if err := clipboard.WriteAll(string(data)); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
	}
	if path == "" {
		_, err := c.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	printFile(path)
	return nil
}
