package cli

import (
	"context"
	"fmt"

	"jdroaster/internal/common"
	"jdroaster/internal/types"

	"github.com/spf13/cobra"
)

func newSentencesCmd() *cobra.Command {
	var (
		cc          common.CommandConfig
		catalogPath string
	)

	cmd := &cobra.Command{
		Use:   "sentences [job-description-file]",
		Short: "Show how a job description is normalized and segmented",
		Long: `Print the normalized text and the sentences the analyzer would see,
with their ids and byte offsets. Useful when a finding points at an
unexpected sentence.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return resolveOutputFormat(cmd, &cc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := commandContext(cmd)
			if err != nil {
				return err
			}

			a, err := analyzerForCommand(cfg, catalogPath, logger)
			if err != nil {
				return fmt.Errorf("failed to build analyzer: %w", err)
			}

			om, shutdown := newCommandObservability(cfg, logger)
			defer shutdown()

			segment := func(ctx context.Context, text string) (*types.SentencesResult, error) {
				result := a.Sentences(text)
				om.GetMetrics().RecordSegmentation(ctx, "cli", len(result.Sentences))
				return result, nil
			}

			_, err = common.RunCommand(
				cmd.Context(),
				commandEnv(cmd, cfg, logger),
				cc,
				inputArg(args),
				func(content string) (string, error) { return content, nil },
				segment,
				nil,
			)
			if err != nil {
				return fmt.Errorf("failed to segment job description: %w", err)
			}
			return nil
		},
	}

	addOutputFlags(cmd, &cc)
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Rule catalog file (overrides analyzer.catalogSource)")
	return cmd
}
