package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/glacierpeak/launchcore/internal/domain"
)

const chunkSize = 128 * 1024

// partSuffix names the partial file next to its destination, so a
// resumed run finds the same bytes a previous run left behind.
const partSuffix = ".part"

type HTTPFetcher struct {
	client *http.Client
	hasher domain.Hasher
}

// Options configures transport behavior. The DNS cache is an explicit
// object, not ambient process state, so callers own its lifetime and
// invalidation.
type Options struct {
	Timeout  time.Duration
	ProxyURL string
	DNS      *DNSCache
	Hasher   domain.Hasher
}

func New(opts Options) (*HTTPFetcher, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	if opts.ProxyURL != "" {
		proxy, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	if opts.DNS != nil {
		transport.DialContext = opts.DNS.DialContext
	}

	hasher := opts.Hasher
	if hasher == nil {
		hasher = domain.SHA256Hasher{}
	}

	return &HTTPFetcher{
		client: &http.Client{Transport: transport, Timeout: opts.Timeout},
		hasher: hasher,
	}, nil
}

// Fetch downloads artifact to dest, trying mirrors in declared order
// and resuming a partial file when the server honors range requests.
// The returned path is verified against the artifact's size and
// checksum; a mismatch discards the partial and reports an integrity
// error.
func (f *HTTPFetcher) Fetch(ctx context.Context, artifact domain.Artifact, dest string, onProgress domain.ProgressFunc) (string, error) {
	if len(artifact.URLs) == 0 {
		return "", &domain.NetworkError{Artifact: artifact.Name, Err: errors.New("no download urls")}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", &domain.DiskError{Path: filepath.Dir(dest), Err: err}
	}

	// A verified file may already sit at dest when a previous run died
	// between download and extraction. Re-check it instead of pulling
	// the bytes again; a stale or corrupt leftover is discarded.
	if _, err := os.Stat(dest); err == nil {
		ok, err := f.matches(artifact, dest)
		if err != nil {
			return "", err
		}
		if ok {
			return dest, nil
		}
		os.Remove(dest)
	}

	part := dest + partSuffix
	offset := partialSize(part)

	if artifact.Size > 0 {
		if avail, ok := freeSpace(filepath.Dir(dest)); ok && avail < artifact.Size-offset {
			return "", &domain.DiskError{
				Path: filepath.Dir(dest),
				Err:  fmt.Errorf("not enough free space: need %d bytes, have %d", artifact.Size-offset, avail),
			}
		}
	}

	// A previous run may have received every byte and died before
	// verification. Skip straight to verify instead of asking the
	// server for an empty range.
	if artifact.Size > 0 && offset == artifact.Size {
		return f.verify(artifact, dest, part)
	}

	var lastErr error
	for _, mirror := range artifact.URLs {
		err := f.fetchOne(ctx, mirror, dest, onProgress)
		if err == nil {
			return f.verify(artifact, dest, part)
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		// Disk failures won't improve on another mirror.
		var diskErr *domain.DiskError
		if errors.As(err, &diskErr) {
			return "", err
		}

		lastErr = &domain.NetworkError{Artifact: artifact.Name, URL: mirror, Err: err}
	}

	return "", lastErr
}

func (f *HTTPFetcher) fetchOne(ctx context.Context, rawURL, dest string, onProgress domain.ProgressFunc) error {
	part := dest + partSuffix
	offset := partialSize(part)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var file *os.File

	switch resp.StatusCode {
	case http.StatusPartialContent:
		// Server honors the range: append to the partial.
		file, err = os.OpenFile(part, os.O_WRONLY|os.O_APPEND, 0644)

	case http.StatusOK:
		// No range support (or nothing to resume): restart from zero.
		offset = 0
		file, err = os.OpenFile(part, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)

	case http.StatusRequestedRangeNotSatisfiable:
		// Partial is longer than the remote file claims; it can't be
		// trusted. Drop it and restart on the next attempt.
		os.Remove(part)
		return fmt.Errorf("range %d- rejected by %s", offset, rawURL)

	default:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if err != nil {
		return &domain.DiskError{Path: part, Err: err}
	}
	defer file.Close()

	total := int64(-1)
	if resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}

	return copyChunks(ctx, file, resp.Body, offset, total, onProgress)
}

// copyChunks streams body to file in fixed-size chunks, reporting
// monotonic progress and honoring cancellation at chunk boundaries.
func copyChunks(ctx context.Context, file *os.File, body io.Reader, offset, total int64, onProgress domain.ProgressFunc) error {
	buf := make([]byte, chunkSize)
	done := offset

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return &domain.DiskError{Path: file.Name(), Err: err}
			}
			done += int64(n)
			if onProgress != nil {
				onProgress(domain.Progress{Done: done, Total: total})
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// verify checks the completed partial against the artifact's declared
// size and checksum, then moves it into place. A tainted partial is
// deleted: its content is known-corrupt and must not be resumed.
func (f *HTTPFetcher) verify(artifact domain.Artifact, dest, part string) (string, error) {
	info, err := os.Stat(part)
	if err != nil {
		return "", &domain.DiskError{Path: part, Err: err}
	}

	if artifact.Size > 0 && info.Size() != artifact.Size {
		os.Remove(part)
		return "", &domain.IntegrityError{
			Artifact:     artifact.Name,
			ExpectedSize: artifact.Size,
			ActualSize:   info.Size(),
			ExpectedHash: artifact.SHA256,
		}
	}

	if artifact.SHA256 != "" {
		actual, err := f.hasher.Sum(part)
		if err != nil {
			return "", &domain.DiskError{Path: part, Err: err}
		}
		if actual != artifact.SHA256 {
			os.Remove(part)
			return "", &domain.IntegrityError{
				Artifact:     artifact.Name,
				ExpectedHash: artifact.SHA256,
				ActualHash:   actual,
				ExpectedSize: artifact.Size,
				ActualSize:   info.Size(),
			}
		}
	}

	if err := os.Rename(part, dest); err != nil {
		return "", &domain.DiskError{Path: dest, Err: err}
	}
	return dest, nil
}

// matches reports whether the file at path already satisfies the
// artifact's declared size and checksum.
func (f *HTTPFetcher) matches(artifact domain.Artifact, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, &domain.DiskError{Path: path, Err: err}
	}

	if artifact.Size > 0 && info.Size() != artifact.Size {
		return false, nil
	}

	if artifact.SHA256 != "" {
		actual, err := f.hasher.Sum(path)
		if err != nil {
			return false, &domain.DiskError{Path: path, Err: err}
		}
		return actual == artifact.SHA256, nil
	}

	return true, nil
}

func partialSize(part string) int64 {
	info, err := os.Stat(part)
	if err != nil {
		return 0
	}
	return info.Size()
}
