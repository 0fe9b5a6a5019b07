package main

import (
	"log"
	"os"

	"github.com/inconshreveable/log15"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	FlagLogLevel = "log-level"
)

// logger is shared by every subcommand; its handler is set from the
// --log-level flag before any of them runs.
var logger = log15.New()

// rootCmd is a base command.
var rootCmd = &cobra.Command{
	Use:           "watchnotify",
	Short:         "Inspect and exchange watch/notify messages of a shared object",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvlName, err := cmd.Flags().GetString(FlagLogLevel)
		if err != nil {
			return errors.Wrapf(err, "%s flag", FlagLogLevel)
		}
		lvl, err := log15.LvlFromString(lvlName)
		if err != nil {
			return errors.Wrapf(err, "%s flag", FlagLogLevel)
		}
		logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stderr, log15.LogfmtFormat())))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String(FlagLogLevel, "info", "log level (crit, error, warn, info, debug)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("rootCmd.Execute: %v", err)
	}
}
