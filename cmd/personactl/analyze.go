package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BerylCAtieno/customer-persona-agent/internal/logging"
	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
	"github.com/BerylCAtieno/customer-persona-agent/internal/server"
)

var (
	analyzeFile   string
	analyzeFormat string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Build personas from a local CSV file",
	Example: `  personactl analyze --file customers.csv
  cat customers.csv | personactl analyze --file - --format yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeFormat != "json" && analyzeFormat != "yaml" {
			return fmt.Errorf("unknown format %q (want json or yaml)", analyzeFormat)
		}
		text, err := readInput(cmd.InOrStdin(), analyzeFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level := cfg.LogLevel
		if !debug {
			level = "warn"
		}
		logger, err := logging.New(level, true)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		client, err := server.NewLLM(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		result, err := server.NewPipeline(cfg, client, logger).AnalyzeCSV(ctx, text)
		if err != nil {
			logger.Debug("analysis failed", zap.Error(err))
			return err
		}
		return writeResult(cmd.OutOrStdout(), result, analyzeFormat)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "CSV file to analyze, - for stdin")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "output format: json or yaml")
	_ = analyzeCmd.MarkFlagRequired("file")
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func writeResult(w io.Writer, result *models.AnalysisResult, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
