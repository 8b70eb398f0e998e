package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glacierpeak/launchcore/internal/domain"
	"github.com/glacierpeak/launchcore/internal/manager"
	"github.com/glacierpeak/launchcore/internal/patcher"
)

func newUpdateCmd() *cobra.Command {
	var locales []string
	var staged bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download, unpack and patch the latest version",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, journal, err := newManager()
			if err != nil {
				return err
			}
			defer journal.Close()

			if len(locales) == 0 {
				locales = cfg.Locales
			}

			renderer := newProgressRenderer()
			result, err := mgr.Update(cmd.Context(), manager.Options{
				Locales:    locales,
				Staged:     staged,
				DryRun:     dryRun,
				OnProgress: renderer.update,
			})
			renderer.finish()
			fmt.Println()

			if err != nil {
				var unsupported *domain.UnsupportedError
				if errors.As(err, &unsupported) {
					fmt.Printf("%s %s\n", red("✗"), unsupported.Reason)
					return err
				}
				if result != nil {
					printPatchReport(result.Patches)
				}
				fmt.Printf("%s %v\n", red("✗"), err)
				return err
			}

			switch {
			case result.Strategy.Action == domain.ActionUpToDate:
				fmt.Printf("%s %s already up to date\n", dim("○"), bold(result.Strategy.Target))

			case dryRun:
				fmt.Printf("%s %s verified against a staged overlay %s\n",
					green("✓"), bold(result.Strategy.Target), dim("(nothing committed)"))
				printPatchReport(result.Patches)

			default:
				fmt.Printf("%s %s installed\n  %s %s\n",
					green("✓"), bold(result.Strategy.Target),
					cyan("path:"), cfg.InstallRoot)
				printPatchReport(result.Patches)
			}

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&locales, "locale", nil, "Voice pack locales to include")
	cmd.Flags().BoolVar(&staged, "staged", false, "Extract and patch into an overlay, commit on success")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the pipeline against an overlay and discard it")
	return cmd
}

func printPatchReport(report patcher.Report) {
	for _, r := range report.Results {
		switch r.Status {
		case patcher.StatusApplied:
			fmt.Printf("  %s patch %s applied\n", green("✓"), r.Name)
		case patcher.StatusSkipped:
			fmt.Printf("  %s patch %s %s\n", dim("○"), r.Name, dim("(already applied)"))
		case patcher.StatusInapplicable:
			fmt.Printf("  %s patch %s %s\n", dim("○"), r.Name, dim("(not for this version)"))
		case patcher.StatusFailed:
			fmt.Printf("  %s patch %s failed: %v\n", red("✗"), r.Name, r.Err)
		case patcher.StatusNotAttempted:
			fmt.Printf("  %s patch %s %s\n", dim("○"), r.Name, dim("(not attempted)"))
		}
	}
}
