// Package cli implements the colorpages command-line interface.
//
// # Commands
//
//   - serve: run the page server and the metrics listener
//   - render: render a single path to stdout
//   - routes: print the route table
//
// All commands read the configuration described in package config. The global --verbose
// (-v) flag lowers the log level to debug.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dpotapov/colorpages"
	"github.com/dpotapov/colorpages/internal/config"
)

var version = "dev"

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	version = v
}

// CLI holds the state shared by the commands of a single invocation.
type CLI struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	verbose    bool

	cfg    *config.Config
	logger *charmlog.Logger

	// ready is called with the name and address of each listener once serve is accepting
	// connections.
	ready func(name, addr string)
}

// New creates a CLI writing command output to stdout and logs to stderr.
func New(stdout, stderr io.Writer) *CLI {
	return &CLI{stdout: stdout, stderr: stderr}
}

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "colorpages",
		Short:         "Serve pages that display a colored box",
		Long:          `colorpages serves HTML pages whose URL names a color. Every page shows a shared header; /{color} adds a box painted with that color.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default "+config.DefaultFile+" if present)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.newServeCmd())
	root.AddCommand(c.newRenderCmd())
	root.AddCommand(c.newRoutesCmd())

	return root
}

func (c *CLI) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level, err := charmlog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	if c.verbose {
		level = charmlog.DebugLevel
	}
	c.logger = newLogger(c.stderr, level)

	return nil
}

// slogger exposes the CLI logger to the library packages.
func (c *CLI) slogger() *slog.Logger {
	return slog.New(c.logger)
}

// newHandler builds a page handler from the configuration.
func (c *CLI) newHandler(metrics *colorpages.Metrics) *colorpages.Handler {
	return &colorpages.Handler{
		Title:       c.cfg.Title,
		DisableLive: !c.cfg.Live,
		Metrics:     metrics,
		Logger:      c.slogger(),
	}
}
