package cmd

import (
	"fmt"
	"os"

	"github.com/kayz/charscript/internal/config"
	"github.com/kayz/charscript/internal/logger"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configPath string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "charscript",
	Short: "charscript prompt composition runtime",
	Long: `charscript composes AI character prompts from scripts and templates.

Commands:
  charscript compose    Compose a character's prompt
  charscript deps       List the transitive dependencies of an entry point
  charscript check      Statically check a script file
  charscript fmt        Reformat a script to canonical form`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("log") && cfg.Logging.Level != "" {
			if level, err := logger.ParseLevel(cfg.Logging.Level); err == nil {
				logger.SetLevel(level)
			}
		}
		if cfg.Logging.File != "" {
			if err := logger.SetFile(cfg.Logging.File); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default: ./charscript.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
