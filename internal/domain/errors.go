package domain

import "fmt"

// The pipeline surfaces every stage failure as one of the typed errors
// below so callers can decide retry vs abort without parsing strings.

// NetworkError covers connection failures and unexpected statuses after
// all mirrors were exhausted. Retryable.
type NetworkError struct {
	Artifact string
	URL      string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("downloading %s from %s: %v", e.Artifact, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IntegrityError means the downloaded bytes do not match the declared
// checksum or size. The tainted partial is discarded; retry means
// re-fetching from scratch.
type IntegrityError struct {
	Artifact     string
	ExpectedHash string
	ActualHash   string
	ExpectedSize int64
	ActualSize   int64
}

func (e *IntegrityError) Error() string {
	if e.ExpectedSize != e.ActualSize {
		return fmt.Sprintf("%s: size mismatch: expected %d bytes, got %d",
			e.Artifact, e.ExpectedSize, e.ActualSize)
	}
	return fmt.Sprintf("%s: checksum mismatch: expected %s, got %s",
		e.Artifact, e.ExpectedHash, e.ActualHash)
}

// DiskError covers local filesystem failures: no space, permissions,
// missing directories. Not retryable until resolved externally.
type DiskError struct {
	Path string
	Err  error
}

func (e *DiskError) Error() string {
	return fmt.Sprintf("disk: %s: %v", e.Path, e.Err)
}

func (e *DiskError) Unwrap() error { return e.Err }

// UnsafePathError means an archive entry resolves outside the target
// root. The whole extraction aborts: a poisoned archive indicates a
// corrupted or tampered source.
type UnsafePathError struct {
	Entry string
}

func (e *UnsafePathError) Error() string {
	return fmt.Sprintf("unsafe path in archive: %s", e.Entry)
}

// PatchError halts the remaining patch queue. Previously applied
// patches stay applied.
type PatchError struct {
	Patch string
	Err   error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patch %s: %v", e.Patch, e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }

// CommitError means moving staged content into the install root failed
// partway. Staged content is preserved so commit can be retried.
type CommitError struct {
	Path string
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("committing %s: %v", e.Path, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// UnsupportedError is terminal and not retryable, e.g. the installed
// version is ahead of the remote manifest.
type UnsupportedError struct {
	Reason string
}

func (e *UnsupportedError) Error() string { return e.Reason }
