package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glacierpeak/launchcore/internal/config"
)

func newCleanCmd() *cobra.Command {
	var partials bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove downloaded archives and stale staging overlays",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var freed int64
			var removed int

			entries, _ := os.ReadDir(cfg.DownloadDir)
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				// Partial downloads are resumable; keep them unless
				// asked to drop them too.
				if !partials && strings.HasSuffix(e.Name(), ".part") {
					continue
				}

				path := filepath.Join(cfg.DownloadDir, e.Name())
				if info, err := e.Info(); err == nil {
					freed += info.Size()
				}
				if err := os.Remove(path); err == nil {
					removed++
				}
			}

			if err := os.RemoveAll(cfg.StagingDir); err != nil {
				return err
			}

			fmt.Printf("\n%s removed %d file(s), freed %d bytes\n", green("✓"), removed, freed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&partials, "partials", false, "Also remove resumable partial downloads")
	return cmd
}
