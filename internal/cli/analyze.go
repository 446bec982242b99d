package cli

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"jdroaster/internal/common"
	"jdroaster/internal/types"

	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	common.CommandConfig
	catalogPath string
	failBelow   int
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [job-description-file]",
		Short: "Analyze a job description and print the report",
		Long: `Analyze a job description against the rule catalog. The report lists
red flags, green flags, contradictions and the five dimension scores
(clarity, fairness, inclusivity, transparency, candidate experience).

Reads from stdin when the file is omitted or is "-".
With --fail-below N the command exits non-zero when any score is under N.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveOutputFormat(cmd, &opts.CommandConfig); err != nil {
				return err
			}
			return common.ValidateScoreThreshold(opts.failBelow)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	addOutputFlags(cmd, &opts.CommandConfig)
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "Rule catalog file (overrides analyzer.catalogSource)")
	cmd.Flags().IntVar(&opts.failBelow, "fail-below", -1, "Exit non-zero when any dimension scores below this value")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *analyzeOptions) error {
	cfg, logger, err := commandContext(cmd)
	if err != nil {
		return err
	}

	a, err := analyzerForCommand(cfg, opts.catalogPath, logger)
	if err != nil {
		return fmt.Errorf("failed to build analyzer: %w", err)
	}

	om, shutdown := newCommandObservability(cfg, logger)
	defer shutdown()

	createInput := func(content string) (string, error) {
		if n := utf8.RuneCountInString(strings.TrimSpace(content)); n < cfg.Analyzer.MinTextLength {
			logger.Warn("Job description is shorter than the API minimum",
				"chars", n,
				"min_text_length", cfg.Analyzer.MinTextLength)
		}
		return content, nil
	}

	logDetails := func(text string, cc common.CommandConfig) {
		logger.Info("Starting job description analysis",
			"job_chars", len(text),
			"catalog_version", a.Catalog().Version(),
			"output_format", cc.OutputFormat)
	}

	analyzeOperation := func(ctx context.Context, text string) (*types.Report, error) {
		return om.TrackAnalysis(ctx, "cli", func(context.Context) *types.Report {
			return a.Analyze(text)
		}), nil
	}

	report, err := common.RunCommand(
		cmd.Context(),
		commandEnv(cmd, cfg, logger),
		opts.CommandConfig,
		inputArg(args),
		createInput,
		analyzeOperation,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to analyze job description: %w", err)
	}

	logger.Info("Job description analysis completed successfully",
		"report_id", report.ID,
		"insights", len(report.Insights),
		"green_flags", len(report.GreenFlags))
	return common.CheckScoreThreshold(report, opts.failBelow)
}
