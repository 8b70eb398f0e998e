package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glacierpeak/launchcore/internal/domain"
)

// Extractor unpacks verified artifacts into a target tree. Dispatch on
// the archive kind is closed: a new codec means one more case here and
// one more decompressor, not a new type hierarchy.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, src string, kind domain.ArchiveKind, target string, onProgress domain.ProgressFunc) error {
	// Configured roots often carry a trailing separator; the prefix
	// checks in securePath need a cleaned root to compare against.
	target = filepath.Clean(target)

	if err := os.MkdirAll(target, 0755); err != nil {
		return &domain.DiskError{Path: target, Err: err}
	}

	switch kind {
	case domain.KindZip:
		return extractZip(ctx, src, target, onProgress)
	case domain.KindRaw:
		return copyRaw(ctx, src, target, onProgress)
	case domain.KindTar, domain.KindTarGz, domain.KindTarBz2, domain.KindTarXz, domain.KindTarZst:
		return extractTar(ctx, src, kind, target, onProgress)
	default:
		return fmt.Errorf("unsupported archive kind: %s", kind)
	}
}

// securePath resolves an entry name under root, rejecting absolute
// paths and anything that escapes the root through parent segments.
// A poisoned entry aborts the whole extraction.
func securePath(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", &domain.UnsafePathError{Entry: name}
	}

	target := filepath.Join(root, name)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", &domain.UnsafePathError{Entry: name}
	}

	return target, nil
}

// secureLink validates a symlink entry: the resolved link target must
// stay inside root. Links are recreated, never followed.
func secureLink(root, entry, linkname string) error {
	if filepath.IsAbs(linkname) {
		return &domain.UnsafePathError{Entry: entry + " -> " + linkname}
	}

	target, err := securePath(root, entry)
	if err != nil {
		return err
	}

	resolved := filepath.Join(filepath.Dir(target), linkname)
	if resolved != root && !strings.HasPrefix(resolved, root+string(os.PathSeparator)) {
		return &domain.UnsafePathError{Entry: entry + " -> " + linkname}
	}

	return nil
}

// progressWriter reports per-byte progress so one huge entry still
// produces smooth updates.
type progressWriter struct {
	done  int64
	total int64
	fn    domain.ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.done += int64(len(p))
	if w.fn != nil {
		w.fn(domain.Progress{Done: w.done, Total: w.total})
	}
	return len(p), nil
}
