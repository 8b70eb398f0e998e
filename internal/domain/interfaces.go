package domain

import (
	"context"

	"github.com/glacierpeak/launchcore/internal/version"
)

// Fetcher downloads one artifact to dest, resuming a partial file when
// the server cooperates, and verifies size and checksum before
// returning the path to the verified file.
type Fetcher interface {
	Fetch(ctx context.Context, artifact Artifact, dest string, onProgress ProgressFunc) (string, error)
}

// Extractor unpacks a verified archive into target. Dispatch on kind
// is internal; callers never branch on format.
type Extractor interface {
	Extract(ctx context.Context, src string, kind ArchiveKind, target string, onProgress ProgressFunc) error
}

// Patch is one compatibility patch. Applied is the idempotency probe
// run before Apply; re-running a pipeline must never double-apply a
// binary modification.
type Patch interface {
	Name() string
	Order() int
	AppliesTo(v version.Version) bool
	Applied(ctx context.Context, root string) (bool, error)
	Apply(ctx context.Context, root string) error
}

// TargetedPatch is implemented by patches that modify one known file.
// Staged runs seed the overlay with the live copy of that path before
// probing, so a diff that never shipped the file still patches the
// same bytes a direct run would.
type TargetedPatch interface {
	Patch
	TargetPath() string
}

// Source supplies the remote manifest. Injected per game so the
// pipeline stays identical across titles.
type Source interface {
	FetchManifest(ctx context.Context) (*Manifest, error)
}

// VersionStore reads and writes the single durable version marker for
// an install root. Read returns ok=false when no marker exists.
type VersionStore interface {
	Read(root string) (version.Version, bool, error)
	Write(root string, v version.Version) error
}

// Hasher is the pluggable content checksum shared by download
// verification and patch idempotency checks.
type Hasher interface {
	Sum(path string) (string, error)
	SumBytes(data []byte) string
}
