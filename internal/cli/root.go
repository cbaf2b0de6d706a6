// Package cli implements the condor command-line interface.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"condor-trader/internal/config"
	"condor-trader/internal/logging"
)

// App carries shared state for all commands.
type App struct {
	version   string
	configDir string
	cfg       *config.Config
	logger    zerolog.Logger
}

// NewRootCmd creates the root command and wires all subcommands.
func NewRootCmd(version string) *cobra.Command {
	app := &App{version: version}

	rootCmd := &cobra.Command{
		Use:   "condor",
		Short: "Iron condor options trading engine",
		Long: `condor runs a weekly iron condor strategy on index options:
expiry-day strike selection at fixed premiums, basket placement behind a
margin gate, and tick-driven risk monitoring with confirmed exits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config-dir", "", "configuration directory (default ~/.config/condor-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output as JSON")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newRunCmd(app),
		newStatusCmd(app),
		newPauseCmd(app),
		newResumeCmd(app),
		newResetCmd(app),
		newSelectCmd(app),
		newPlaceCmd(app),
		newExitCmd(app),
		newSettingsCmd(app),
		newExpiryCmd(app),
		newLogCmd(app),
		newVersionCmd(app),
	)

	return rootCmd
}

func (a *App) init(cmd *cobra.Command) error {
	a.configDir, _ = cmd.Flags().GetString("config-dir")

	cfg, err := config.Load(a.configDir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Console = cfg.Logging.Console
	logCfg.File = cfg.Logging.File
	a.logger = logging.NewLoggerWithConfig(logCfg)

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
	}
	return nil
}
