package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpadapter "github.com/kirillkom/poa-analyzer/internal/adapters/mcp"
	"github.com/kirillkom/poa-analyzer/internal/bootstrap"
	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

var analyzeState string

var classifyCmd = &cobra.Command{
	Use:   "classify FILE",
	Short: "Decide whether a document is a Power of Attorney",
	Example: `  poactl classify scan.png
  poactl classify -o json signed-poa.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := mcpadapter.ReadDocument(args[0], cfg.MaxUploadBytes)
		if err != nil {
			return err
		}
		pipeline, err := bootstrap.NewPipeline(cfg, nil)
		if err != nil {
			return err
		}
		result, err := pipeline.Classify(cmd.Context(), file)
		if err != nil {
			return withRaw(err)
		}
		return writeOutput(os.Stdout, outputFormat, result)
	},
}

var analyzeCmd = &cobra.Command{
	Use:     "analyze FILE --state STATE",
	Short:   "Extract parties, dates and issues from a Power of Attorney",
	Example: `  poactl analyze --state Texas durable-poa.pdf`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := mcpadapter.ReadDocument(args[0], cfg.MaxUploadBytes)
		if err != nil {
			return err
		}
		pipeline, err := bootstrap.NewPipeline(cfg, nil)
		if err != nil {
			return err
		}
		analysis, err := pipeline.Analyze(cmd.Context(), file, analyzeState)
		if err != nil {
			return withRaw(err)
		}
		return writeOutput(os.Stdout, outputFormat, map[string]any{"analysis": analysis})
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeState, "state", "", "governing US state (required)")
	_ = analyzeCmd.MarkFlagRequired("state")
}

func withRaw(err error) error {
	if raw, ok := domain.RawResponse(err); ok && raw != "" {
		return fmt.Errorf("%w\nraw model output:\n%s", err, raw)
	}
	return err
}
