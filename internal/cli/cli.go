package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/patchcanvas/pkg/buildinfo"
	"github.com/matzehuels/patchcanvas/pkg/config"
	"github.com/matzehuels/patchcanvas/pkg/errors"
	"github.com/matzehuels/patchcanvas/pkg/journal"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display and completions.
	appName = config.AppName
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

	verbose    bool
	configFlag string
	config     *config.Config
	configPath string
	getenv     func(string) string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		getenv: os.Getenv,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Patchcanvas edits Pd patches as node graphs",
		Long:          `Patchcanvas is an interactive node-graph editor engine for Pd patches. It replays scripted editing sessions, renders canvases, serves them over HTTP and edits them in the terminal.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.configFlag, "config", "", "config file (default: search the XDG config directory)")

	// Register all subcommands
	root.AddCommand(c.replayCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.tuiCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// ExitCode maps a command error to a process exit status: 0 for success,
// 130 for an interrupt, 2 for bad input, config or scenario files, and 1
// otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case stderrors.Is(err, context.Canceled):
		return 130
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidScenario:
		return 2
	}
	return 1
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads .env, the config file and the environment overrides, in
// that order.
func (c *CLI) loadConfig() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, path, err := config.Load(c.configFlag)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(c.getenv)
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.config, c.configPath = cfg, path
	c.Logger.Debug("config loaded", "path", path, "journal", cfg.Journal.Kind)
	return nil
}

// cfg returns the loaded configuration, or the defaults before loading.
func (c *CLI) cfg() *config.Config {
	if c.config == nil {
		return config.Default()
	}
	return c.config
}

// =============================================================================
// Journal Factory
// =============================================================================

// openJournal opens the journal selected by the configuration.
func (c *CLI) openJournal(ctx context.Context) (journal.Journal, error) {
	jc := c.cfg().Journal
	switch jc.Kind {
	case config.JournalFile:
		return journal.NewFileJournal(jc.Path)
	case config.JournalMongo:
		return journal.DialMongo(ctx, jc.MongoURI, jc.Database, jc.Collection, jc.Session)
	default:
		return journal.NewNullJournal(), nil
	}
}
