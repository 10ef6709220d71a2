package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sheetfill/internal/classify"
	"sheetfill/internal/config"
	"sheetfill/internal/fill"
	"sheetfill/internal/llm"
	"sheetfill/internal/model"
	"sheetfill/internal/pipeline"
	"sheetfill/internal/report"
	"sheetfill/internal/sheet"
)

var (
	flagNoLLMHierarchy bool
	flagContentSheet   string
	flagOutputDir      string
)

var rootCmd = &cobra.Command{
	Use:   "sheetfill",
	Short: "Extract and answer requirement questionnaires in xlsx workbooks",
	Long: `sheetfill reads RFI/RFP workbooks, classifies their questions into a
requirement hierarchy, and optionally synthesizes vendor answers into a
filled copy.`,
	SilenceUsage: true,
}

var extractCmd = &cobra.Command{
	Use:   "extract <workbook.xlsx>",
	Short: "Extract classified questions from a workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var fillCmd = &cobra.Command{
	Use:   "fill <workbook.xlsx> <results-path>",
	Short: "Fill a workbook from previously saved extraction results",
	Args:  cobra.ExactArgs(2),
	RunE:  runFill,
}

var bothCmd = &cobra.Command{
	Use:   "both <workbook.xlsx>",
	Short: "Extract and fill in one pass",
	Args:  cobra.ExactArgs(1),
	RunE:  runBoth,
}

func init() {
	for _, c := range []*cobra.Command{extractCmd, bothCmd} {
		c.Flags().BoolVar(&flagNoLLMHierarchy, "no-llm-hierarchy", false, "classify with rules only, no model calls for hierarchy")
		c.Flags().StringVar(&flagContentSheet, "content-sheet", "", "sheet to read document context from")
	}
	for _, c := range []*cobra.Command{extractCmd, fillCmd, bothCmd} {
		c.Flags().StringVar(&flagOutputDir, "output", ".", "directory for results and filled copies")
	}
	rootCmd.AddCommand(extractCmd, fillCmd, bothCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// provider is the model-backed capability surface shared by commands.
type provider interface {
	classify.Classifier
	sheet.Analyzer
	fill.StrategyGenerator
	Model() string
}

// newProvider builds the configured model client. The returned stats feed
// the serve-mode metrics endpoint.
func newProvider(ctx context.Context, cfg config.Config) (provider, *llm.Stats, error) {
	switch cfg.Provider {
	case "claude":
		c := llm.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		return c, c.Stats, nil
	case "gemini":
		c, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Stats, nil
	}
	return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// optionalProvider returns nil when no provider is configured and model
// calls are not required for the requested run.
func optionalProvider(ctx context.Context, cfg config.Config, required bool, log *slog.Logger) (provider, error) {
	if err := cfg.Validate(); err != nil {
		if required {
			return nil, err
		}
		log.Warn("no model provider configured, using heuristic fallbacks", "error", err)
		return nil, nil
	}
	client, _, err := newProvider(ctx, cfg)
	return client, err
}

func validateWorkbookPath(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("workbook not found: %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		return nil
	}
	return fmt.Errorf("workbook must be an .xlsx or .xls file: %s", path)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}

func runExtract(cmd *cobra.Command, args []string) error {
	result, _, err := extractWorkbook(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	dir, err := report.SaveResults(result, flagOutputDir)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), dir)
	return nil
}

func runFill(cmd *cobra.Command, args []string) error {
	workbookPath, resultsPath := args[0], args[1]
	if err := validateWorkbookPath(workbookPath); err != nil {
		return err
	}
	log := newLogger()

	result, err := report.LoadResults(resultsPath)
	if err != nil {
		return err
	}

	cfg := config.Load()
	client, err := optionalProvider(cmd.Context(), cfg, false, log)
	if err != nil {
		return err
	}

	wb, err := sheet.Open(workbookPath)
	if err != nil {
		return err
	}
	defer wb.Close()

	filler := newFiller(wb, client, cfg, log)
	out, total, err := filler.FillWorkbook(cmd.Context(), result)
	if err != nil {
		return err
	}
	log.Info("filling complete", "filled", total, "output", out)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runBoth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	result, client, err := extractWorkbook(ctx, args[0])
	if err != nil {
		return err
	}
	log := newLogger()
	if _, err := report.SaveResults(result, flagOutputDir); err != nil {
		return err
	}

	wb, err := sheet.Open(args[0])
	if err != nil {
		return err
	}
	defer wb.Close()

	filler := newFiller(wb, client, config.Load(), log)
	out, total, err := filler.FillWorkbook(ctx, result)
	if err != nil {
		return err
	}
	log.Info("extract and fill complete", "filled", total, "output", out)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// extractWorkbook runs the extraction pipeline for one workbook and returns
// the result along with the provider client for reuse.
func extractWorkbook(ctx context.Context, path string) (result *model.WorkbookResult, client provider, err error) {
	if err := validateWorkbookPath(path); err != nil {
		return nil, nil, err
	}
	log := newLogger()
	cfg := config.Load()

	client, err = optionalProvider(ctx, cfg, !flagNoLLMHierarchy, log)
	if err != nil {
		return nil, nil, err
	}

	wb, err := sheet.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer wb.Close()

	var classifier classify.Classifier
	var analyzer sheet.Analyzer
	if client != nil {
		if !flagNoLLMHierarchy {
			classifier = client
		}
		analyzer = client
	}

	pl := classify.NewPipeline(classifier, pipeline.ClassifyConfig(cfg), log)
	ex := sheet.NewExtractor(wb, analyzer, pl, log)
	ex.ContentSheet = flagContentSheet

	result, err = ex.Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	return result, client, nil
}

// strategist narrows an optional provider to its fill capability.
func strategist(client provider) fill.StrategyGenerator {
	if client == nil {
		return nil
	}
	return client
}

// newFiller builds a filler honoring the command-line output directory and
// the configured response-type distribution.
func newFiller(wb *sheet.Workbook, client provider, cfg config.Config, log *slog.Logger) *fill.Filler {
	filler := fill.NewFiller(wb, strategist(client), log)
	filler.OutputDir = flagOutputDir
	filler.Distribution = model.FillDistribution{
		Positive: cfg.FillPositive,
		Negative: cfg.FillNegative,
		Partial:  cfg.FillPartial,
	}
	return filler
}
