package extractor

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/glacierpeak/launchcore/internal/domain"
)

// copyRaw places a non-archive artifact into the target tree under its
// own basename.
func copyRaw(ctx context.Context, src, target string, onProgress domain.ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return &domain.DiskError{Path: src, Err: err}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return &domain.DiskError{Path: src, Err: err}
	}

	pw := &progressWriter{total: info.Size(), fn: onProgress}
	dest := filepath.Join(target, filepath.Base(src))

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &domain.DiskError{Path: dest, Err: err}
	}

	if _, err := io.Copy(io.MultiWriter(out, pw), in); err != nil {
		out.Close()
		return &domain.DiskError{Path: dest, Err: err}
	}
	return out.Close()
}
