package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/glacierpeak/launchcore/internal/config"
	"github.com/glacierpeak/launchcore/internal/state"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the installed version and recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store := state.NewMarkerStore()
			installed, ok, err := store.Read(cfg.InstallRoot)
			if err != nil {
				return err
			}

			fmt.Println()
			if ok {
				fmt.Printf("%s installed: %s\n  %s %s\n",
					green("●"), bold(installed),
					cyan("marker:"), filepath.Join(cfg.InstallRoot, state.MarkerName))
			} else {
				fmt.Printf("%s nothing installed at %s\n", dim("○"), cfg.InstallRoot)
			}

			journal, err := state.OpenJournal(cfg.StateDB)
			if err != nil {
				return err
			}
			defer journal.Close()

			runs, err := journal.Recent(5)
			if err != nil {
				return err
			}

			if len(runs) > 0 {
				fmt.Printf("\n%s\n", bold("recent runs"))
			}
			for _, r := range runs {
				mark := dim("○")
				switch r.Status {
				case "completed", "verified":
					mark = green("✓")
				case "failed", "aborted":
					mark = red("✗")
				}

				line := fmt.Sprintf("%s %s → %s (%s, %s)", mark, r.FromVersion, r.ToVersion, r.Action, r.Status)
				if r.FromVersion == "" {
					line = fmt.Sprintf("%s → %s (%s, %s)", mark, r.ToVersion, r.Action, r.Status)
				}
				fmt.Printf("  %s %s\n", line, dim(r.StartedAt.Format("2006-01-02 15:04")))
				if r.Detail != "" {
					fmt.Printf("    %s\n", dim(r.Detail))
				}
			}

			return nil
		},
	}

	return cmd
}
