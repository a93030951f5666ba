package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kirillkom/poa-analyzer/internal/config"
	"github.com/kirillkom/poa-analyzer/internal/observability/logging"
)

const version = "0.1.0"

var (
	cfgFile      string
	outputFormat string
	logLevel     string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "poactl",
	Short: "Classify and analyze Power of Attorney documents from the command line",
	Long: `poactl runs the POA pipeline locally on PDF and image files.

Text is read from the PDF text layer or recovered with tesseract OCR, then sent
to the configured completion backend (OPENAI_API_KEY or LLM_PROVIDER=ollama).

Configuration comes from the environment and, optionally, a YAML file whose
keys are the lowercased environment names (for example ocr_language: deu).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != "json" && outputFormat != "yaml" {
			return fmt.Errorf("unknown output format %q (want yaml or json)", outputFormat)
		}

		v := viper.New()
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			v.SetConfigName("poactl")
			v.SetConfigType("yaml")
			v.AddConfigPath(".")
			v.AddConfigPath("$HOME/.config/poactl")
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if cfgFile != "" || !errors.As(err, &notFound) {
				return fmt.Errorf("read config: %w", err)
			}
		}
		cfg = config.LoadViper(v)

		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		slog.SetDefault(logging.New(os.Stderr, "poactl", level, "text"))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./poactl.yaml or ~/.config/poactl/poactl.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "output format: yaml or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(classifyCmd, analyzeCmd, mcpCmd)
}
