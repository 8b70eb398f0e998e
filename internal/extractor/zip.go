package extractor

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/glacierpeak/launchcore/internal/domain"
)

func extractZip(ctx context.Context, src, target string, onProgress domain.ProgressFunc) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("zip: %w", err)
	}
	defer r.Close()

	// Zip central directory carries uncompressed sizes, so the total
	// is known up front. Only regular files report bytes, so only they
	// count toward it.
	var total int64
	for _, f := range r.File {
		if f.FileInfo().Mode().IsRegular() {
			total += int64(f.UncompressedSize64)
		}
	}
	pw := &progressWriter{total: total, fn: onProgress}

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		dest, err := securePath(target, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return &domain.DiskError{Path: dest, Err: err}
			}
			continue
		}

		if f.Mode()&os.ModeSymlink != 0 {
			linkname, err := readLinkTarget(f)
			if err != nil {
				return err
			}
			if err := secureLink(target, f.Name, linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
				return &domain.DiskError{Path: dest, Err: err}
			}
			os.Remove(dest)
			if err := os.Symlink(linkname, dest); err != nil {
				return &domain.DiskError{Path: dest, Err: err}
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening %s: %w", f.Name, err)
		}

		if err := writeEntry(dest, rc, f.Mode(), pw); err != nil {
			rc.Close()
			return err
		}
		rc.Close()
	}

	return nil
}

func readLinkTarget(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", fmt.Errorf("reading link %s: %w", f.Name, err)
	}
	return string(data), nil
}
