// Package commands implements the appforge command line.
package commands

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// App is the appforge command tree.
type App struct {
	cmd    *cobra.Command
	logger zerolog.Logger

	verbose  bool
	jsonLogs bool
}

func New() *App {
	a := &App{}
	a.cmd = &cobra.Command{
		Use:           "appforge",
		Short:         "Generate full-stack app scaffolds from a prompt",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.setupLogger()
		},
	}
	a.cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	a.cmd.PersistentFlags().BoolVar(&a.jsonLogs, "json-logs", false, "write logs as JSON instead of console text")

	installServeCmd(a)
	installMigrateCmd(a)
	installGenerateCmd(a)
	return a
}

func (a *App) Run() error {
	return a.cmd.Execute()
}

// SetArgs overrides os.Args, for tests.
func (a *App) SetArgs(args ...string) {
	a.cmd.SetArgs(args)
}

func (a *App) setupLogger() {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if a.verbose {
		level = zerolog.DebugLevel
	}
	if a.jsonLogs {
		a.logger = zerolog.New(os.Stderr)
	} else {
		a.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	a.logger = a.logger.Level(level).With().Timestamp().Logger()
	log.Logger = a.logger
}

// applyLevel narrows the logger to the level configured for the server.
func (a *App) applyLevel(raw string) {
	if a.verbose {
		return
	}
	if level, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil && level != zerolog.NoLevel {
		a.logger = a.logger.Level(level)
	}
}
