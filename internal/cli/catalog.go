package cli

import (
	"fmt"

	"jdroaster/internal/analyzer"
	"jdroaster/internal/catalog"
	"jdroaster/internal/common"

	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate rule catalogs",
	}
	cmd.AddCommand(newCatalogListCmd())
	cmd.AddCommand(newCatalogValidateCmd())
	return cmd
}

func newCatalogListCmd() *cobra.Command {
	var (
		cc          common.CommandConfig
		catalogPath string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rules of the active catalog",
		Args:  cobra.NoArgs,
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
				return fmt.Errorf("failed to load catalog: %w", err)
			}
			return common.NewOutputHandler(logger, cmd.OutOrStdout()).HandleOutput(a.Catalog().Summary(), cc)
		},
	}

	addOutputFlags(cmd, &cc)
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Rule catalog file (overrides analyzer.catalogSource)")
	return cmd
}

func newCatalogValidateCmd() *cobra.Command {
	var cc common.CommandConfig

	cmd := &cobra.Command{
		Use:   "validate [catalog-file]",
		Short: "Compile a catalog and report every problem found",
		Long: `Compile a rule catalog (YAML, JSON or TOML, chosen by extension) and
report every problem found. Without a file the configured catalog is
checked. On success the catalog summary is printed.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return resolveOutputFormat(cmd, &cc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := commandContext(cmd)
			if err != nil {
				return err
			}

			var cat *catalog.Catalog
			if path := inputArg(args); path != "" {
				cat, err = catalog.Load(path)
			} else {
				var a *analyzer.Analyzer
				if a, err = analyzerForCommand(cfg, "", logger); err == nil {
					cat = a.Catalog()
				}
			}
			if err != nil {
				return fmt.Errorf("catalog is invalid: %w", err)
			}

			logger.Info("Catalog is valid",
				"source", cat.Source(),
				"version", cat.Version(),
				"rules", cat.Len())
			return common.NewOutputHandler(logger, cmd.OutOrStdout()).HandleOutput(cat.Summary(), cc)
		},
	}

	addOutputFlags(cmd, &cc)
	return cmd
}
