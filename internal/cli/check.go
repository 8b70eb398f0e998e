package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glacierpeak/launchcore/internal/domain"
)

func newCheckCmd() *cobra.Command {
	var locales []string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the installed version against the remote manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, journal, err := newManager()
			if err != nil {
				return err
			}
			defer journal.Close()

			if len(locales) == 0 {
				locales = cfg.Locales
			}

			stop := withSpinner(cmd.Context(), "Fetching manifest...")
			strategy, err := mgr.Check(cmd.Context(), locales)
			stop()
			if err != nil {
				return err
			}

			fmt.Println()
			switch strategy.Action {
			case domain.ActionUpToDate:
				fmt.Printf("%s %s is up to date\n", green("✓"), bold(strategy.Target))

			case domain.ActionFreshInstall:
				if strategy.Installed.IsZero() {
					fmt.Printf("%s not installed, latest is %s\n", yellow("!"), bold(strategy.Target))
				} else {
					fmt.Printf("%s %s → %s %s\n", yellow("!"),
						bold(strategy.Installed), bold(strategy.Target), dim("(full reinstall, no diff available)"))
				}
				printArtifacts(strategy.Artifacts)

			case domain.ActionDiffUpdate:
				fmt.Printf("%s %s → %s %s\n", yellow("!"),
					bold(strategy.Installed), bold(strategy.Target), dim("(incremental)"))
				printArtifacts(strategy.Artifacts)

			case domain.ActionUnsupported:
				fmt.Printf("%s %s\n", red("✗"), strategy.Reason)
			}

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&locales, "locale", nil, "Voice pack locales to include")
	return cmd
}

func printArtifacts(artifacts []domain.Artifact) {
	var total int64
	for _, a := range artifacts {
		fmt.Printf("  %s %s %s\n", cyan("↓"), a.Name, dim(fmt.Sprintf("(%d bytes, %s)", a.Size, a.Kind)))
		total += a.Size
	}
	if len(artifacts) > 1 {
		fmt.Printf("  %s %d bytes total\n", dim("="), total)
	}
}
