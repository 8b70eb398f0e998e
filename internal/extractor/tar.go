package extractor

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/glacierpeak/launchcore/internal/domain"
)

func extractTar(ctx context.Context, src string, kind domain.ArchiveKind, target string, onProgress domain.ProgressFunc) error {
	file, err := os.Open(src)
	if err != nil {
		return &domain.DiskError{Path: src, Err: err}
	}
	defer file.Close()

	reader, cleanup, err := decompressor(file, kind)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Tar streams don't advertise unpacked size up front.
	pw := &progressWriter{total: -1, fn: onProgress}
	tr := tar.NewReader(reader)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", src, err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			dest, err := securePath(target, header.Name)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dest, 0755); err != nil {
				return &domain.DiskError{Path: dest, Err: err}
			}

		case tar.TypeReg:
			dest, err := securePath(target, header.Name)
			if err != nil {
				return err
			}
			if err := writeEntry(dest, tr, header.FileInfo().Mode(), pw); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if err := secureLink(target, header.Name, header.Linkname); err != nil {
				return err
			}
			dest, err := securePath(target, header.Name)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
				return &domain.DiskError{Path: dest, Err: err}
			}
			os.Remove(dest)
			if err := os.Symlink(header.Linkname, dest); err != nil {
				return &domain.DiskError{Path: dest, Err: err}
			}
		}
	}
}

func writeEntry(dest string, r io.Reader, mode os.FileMode, pw *progressWriter) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return &domain.DiskError{Path: dest, Err: err}
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return &domain.DiskError{Path: dest, Err: err}
	}

	if _, err := io.Copy(io.MultiWriter(out, pw), r); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return out.Close()
}

// decompressor layers the codec the artifact declares. KindTar passes
// the stream through untouched.
func decompressor(file *os.File, kind domain.ArchiveKind) (io.Reader, func(), error) {
	switch kind {
	case domain.KindTarGz:
		gzr, err := gzip.NewReader(file)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return gzr, func() { gzr.Close() }, nil

	case domain.KindTarBz2:
		return bzip2.NewReader(file), nil, nil

	case domain.KindTarXz:
		xzr, err := xz.NewReader(file)
		if err != nil {
			return nil, nil, fmt.Errorf("xz: %w", err)
		}
		return xzr, nil, nil

	case domain.KindTarZst:
		zr, err := zstd.NewReader(file)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, func() { zr.Close() }, nil

	default:
		return file, nil, nil
	}
}
