package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/glacierpeak/launchcore/internal/domain"
)

// Area manages overlay write targets for an install root. Extraction
// and patching can run against a staged view first, then the result is
// either committed (renamed into place path by path) or discarded.
type Area struct {
	installRoot string
	stagingDir  string
}

// Handle is one staged overlay. Dir is a plain directory tree callers
// extract and patch into.
type Handle struct {
	Dir string
}

func New(installRoot, stagingDir string) *Area {
	return &Area{installRoot: installRoot, stagingDir: stagingDir}
}

func (a *Area) Stage() (*Handle, error) {
	if err := os.MkdirAll(a.stagingDir, 0755); err != nil {
		return nil, &domain.DiskError{Path: a.stagingDir, Err: err}
	}

	dir, err := os.MkdirTemp(a.stagingDir, "stage-")
	if err != nil {
		return nil, &domain.DiskError{Path: a.stagingDir, Err: err}
	}

	return &Handle{Dir: dir}, nil
}

// Seed copies one file from the install root into the overlay, so a
// run whose artifacts never produced that path still operates on the
// live content. A path the overlay already holds wins; a path absent
// from both trees stays absent.
func (a *Area) Seed(h *Handle, rel string) error {
	dst := filepath.Join(h.Dir, rel)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}

	src := filepath.Join(a.installRoot, rel)
	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &domain.DiskError{Path: src, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return &domain.DiskError{Path: filepath.Dir(dst), Err: err}
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return &domain.DiskError{Path: src, Err: err}
	}
	if err := os.WriteFile(dst, data, info.Mode()); err != nil {
		return &domain.DiskError{Path: dst, Err: err}
	}
	return nil
}

// Commit moves every staged path into the install root with
// best-effort atomic rename semantics per touched path. A failure
// preserves the remaining staged content so commit can be retried;
// commit needs no network access and is the one operation safe to
// re-run concurrently with itself.
func (a *Area) Commit(h *Handle) error {
	err := filepath.WalkDir(h.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(h.Dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		dest := filepath.Join(a.installRoot, rel)

		if d.IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return &domain.CommitError{Path: dest, Err: err}
			}
			return nil
		}

		// Rename over an existing file replaces it atomically on the
		// same filesystem.
		os.Remove(dest)
		if err := os.Rename(path, dest); err != nil {
			return &domain.CommitError{Path: dest, Err: err}
		}
		return nil
	})
	if err != nil {
		var commitErr *domain.CommitError
		if errors.As(err, &commitErr) {
			return err
		}
		return &domain.CommitError{Path: h.Dir, Err: err}
	}

	// Everything moved; the now-empty overlay can go.
	if err := os.RemoveAll(h.Dir); err != nil {
		return &domain.CommitError{Path: h.Dir, Err: fmt.Errorf("cleaning staged dir: %w", err)}
	}
	return nil
}

// Discard drops the staged overlay without touching the install root.
func (a *Area) Discard(h *Handle) {
	os.RemoveAll(h.Dir)
}
