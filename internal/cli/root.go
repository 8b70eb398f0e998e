package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/glacierpeak/launchcore/internal/config"
	"github.com/glacierpeak/launchcore/internal/domain"
	"github.com/glacierpeak/launchcore/internal/extractor"
	"github.com/glacierpeak/launchcore/internal/fetcher"
	"github.com/glacierpeak/launchcore/internal/manager"
	"github.com/glacierpeak/launchcore/internal/patcher"
	"github.com/glacierpeak/launchcore/internal/remote"
	"github.com/glacierpeak/launchcore/internal/state"
)

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   "launchcore",
		Short: "Install and update a game from its remote version manifest",
	}
	rootCmd.AddCommand(
		newCheckCmd(),
		newUpdateCmd(),
		newStatusCmd(),
		newCleanCmd(),
		newVersionCmd(),
	)
	return rootCmd.Execute()
}

func newManager() (*manager.Manager, *config.Config, *state.Journal, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.ManifestURL == "" {
		return nil, nil, nil, fmt.Errorf("manifest_url is not configured (see ~/.launchcore/config.toml)")
	}

	hasher := domain.SHA256Hasher{}

	source, err := remote.NewHTTPSource(cfg.ManifestURL, cfg.ProxyURL, 30*time.Second)
	if err != nil {
		return nil, nil, nil, err
	}

	dns := fetcher.NewDNSCache(time.Duration(cfg.DNSTTLSeconds) * time.Second)
	f, err := fetcher.New(fetcher.Options{
		Timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
		ProxyURL: cfg.ProxyURL,
		DNS:      dns,
		Hasher:   hasher,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	patches, err := patcher.LoadDir(cfg.PatchesDir, hasher)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading patches: %w", err)
	}

	journal, err := state.OpenJournal(cfg.StateDB)
	if err != nil {
		return nil, nil, nil, err
	}

	mgr := manager.New(
		remote.Cached(source, time.Duration(cfg.ManifestTTL)*time.Second),
		f,
		extractor.New(),
		state.NewMarkerStore(),
		journal,
		patches,
		cfg.InstallRoot,
		cfg.DownloadDir,
		cfg.StagingDir,
		cfg.MaxParallel,
	)

	return mgr, cfg, journal, nil
}
