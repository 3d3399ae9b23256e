package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/customer-persona-agent/internal/config"
)

var (
	cfgFile string
	debug   bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "personactl",
	Short: "Customer persona analysis from the command line",
	Long: `personactl clusters customer CSV data into personas using a language model to
pick the number of clusters, and can smoke-test a running persona server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if debug {
			c.LogLevel = "debug"
			c.LogDevelopment = true
		}
		cfg = c
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or ~/.personas/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(analyzeCmd, smokeCmd, configCmd)
}
