package patcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/glacierpeak/launchcore/internal/domain"
	"github.com/glacierpeak/launchcore/internal/version"
)

// Patch descriptors live as TOML files next to their payloads:
//
//	name = "player-fix"
//	order = 10
//	target = "UnityPlayer.dll"
//	payload = "player-fix.bin"
//	prior_hashes = ["ab12..."]
//	from = "3.0.0"
//	to = "3.2.0"
type descriptor struct {
	Name        string   `toml:"name"`
	Order       int      `toml:"order"`
	Target      string   `toml:"target"`
	Payload     string   `toml:"payload"`
	PriorHashes []string `toml:"prior_hashes"`
	From        string   `toml:"from"`
	To          string   `toml:"to"`
}

// LoadDir reads every *.toml descriptor in dir into a patch set. A
// missing directory is an empty set, not an error: most installs have
// no compatibility patches.
func LoadDir(dir string, hasher domain.Hasher) ([]domain.Patch, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patches []domain.Patch

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}

		path := filepath.Join(dir, e.Name())

		var d descriptor
		if _, err := toml.DecodeFile(path, &d); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}

		p, err := d.toPatch(dir, hasher)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		patches = append(patches, p)
	}

	return patches, nil
}

func (d *descriptor) toPatch(dir string, hasher domain.Hasher) (*FilePatch, error) {
	if d.Name == "" || d.Target == "" || d.Payload == "" {
		return nil, fmt.Errorf("name, target and payload are required")
	}

	payload, err := os.ReadFile(filepath.Join(dir, d.Payload))
	if err != nil {
		return nil, err
	}

	p := &FilePatch{
		PatchName:   d.Name,
		OrderKey:    d.Order,
		Target:      d.Target,
		Payload:     payload,
		PriorHashes: d.PriorHashes,
		Hasher:      hasher,
	}

	if d.From != "" {
		if p.From, err = version.Parse(d.From); err != nil {
			return nil, err
		}
	}
	if d.To != "" {
		if p.To, err = version.Parse(d.To); err != nil {
			return nil, err
		}
	}

	return p, nil
}
