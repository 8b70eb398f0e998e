package state

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/glacierpeak/launchcore/internal/version"
)

// MarkerName is the single durable version record inside an install
// root. Plain text, one dotted version string.
const MarkerName = ".version"

// MarkerStore reads and writes the installed-version marker. It is the
// only state the pipeline depends on across runs.
type MarkerStore struct{}

func NewMarkerStore() *MarkerStore {
	return &MarkerStore{}
}

func (MarkerStore) Read(root string) (version.Version, bool, error) {
	data, err := os.ReadFile(filepath.Join(root, MarkerName))
	if os.IsNotExist(err) {
		return version.Version{}, false, nil
	}
	if err != nil {
		return version.Version{}, false, err
	}

	v, err := version.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return version.Version{}, false, err
	}
	return v, true, nil
}

func (MarkerStore) Write(root string, v version.Version) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, MarkerName), []byte(v.String()+"\n"), 0644)
}
