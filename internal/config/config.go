package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ManifestURL string   `toml:"manifest_url"`
	InstallRoot string   `toml:"install_root"`
	Locales     []string `toml:"locales"`

	DownloadDir string `toml:"download_dir"`
	StagingDir  string `toml:"staging_dir"`
	PatchesDir  string `toml:"patches_dir"`
	StateDB     string `toml:"state_db"`

	ProxyURL       string `toml:"proxy_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxParallel    int    `toml:"max_parallel"`
	DNSTTLSeconds  int    `toml:"dns_ttl_seconds"`
	ManifestTTL    int    `toml:"manifest_ttl_seconds"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".launchcore")

	return &Config{
		InstallRoot:    filepath.Join(base, "game"),
		DownloadDir:    filepath.Join(base, "downloads"),
		StagingDir:     filepath.Join(base, "staging"),
		PatchesDir:     filepath.Join(base, "patches"),
		StateDB:        filepath.Join(base, "state.db"),
		TimeoutSeconds: 0, // no client-level timeout; downloads can run for hours
		MaxParallel:    4,
		DNSTTLSeconds:  300,
		ManifestTTL:    600,
	}
}

func configPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".launchcore", "config.toml")
}

func Load() (*Config, error) {
	cfg := DefaultConfig()

	path := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	path := configPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
