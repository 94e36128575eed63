package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/mme/internal/config"
	"github.com/agentic-research/mme/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	stagePath  string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log *zap.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "mme.hcl", "Path to HCL config file")
	rootCmd.PersistentFlags().StringVarP(&stagePath, "stage", "s", "", "Stage file (.db for sqlite, anything else for text)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (json, console)")
}

var rootCmd = &cobra.Command{
	Use:           "mme",
	Short:         "MME: material variants stored inside the scene",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if stagePath != "" {
			c.Stage = stagePath
		}
		if logLevel != "" {
			c.LogLevel = logLevel
		}
		if logFormat != "" {
			c.LogFormat = logFormat
		}
		l, err := logger.New(c.LogLevel, c.LogFormat)
		if err != nil {
			return err
		}
		cfg, log = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
