package domain

import (
	"strings"

	"github.com/glacierpeak/launchcore/internal/version"
)

// ArchiveKind is the closed set of artifact container formats. Adding
// a codec means adding a constant here and a handler in the extractor.
type ArchiveKind int

const (
	KindRaw ArchiveKind = iota // plain file, no unpacking
	KindZip
	KindTar
	KindTarGz
	KindTarBz2
	KindTarXz
	KindTarZst
)

func (k ArchiveKind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindZip:
		return "zip"
	case KindTar:
		return "tar"
	case KindTarGz:
		return "tar.gz"
	case KindTarBz2:
		return "tar.bz2"
	case KindTarXz:
		return "tar.xz"
	case KindTarZst:
		return "tar.zst"
	default:
		return "unknown"
	}
}

// KindFromName guesses the archive kind from a file or URL basename.
func KindFromName(name string) ArchiveKind {
	lower := strings.ToLower(name)

	switch {
	case strings.HasSuffix(lower, ".zip"):
		return KindZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindTarGz
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return KindTarBz2
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return KindTarXz
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return KindTarZst
	case strings.HasSuffix(lower, ".tar"):
		return KindTar
	default:
		return KindRaw
	}
}

// Artifact is one downloadable unit: primary URL plus ordered mirror
// fallbacks, expected size and checksum, and the container format.
type Artifact struct {
	Name   string
	URLs   []string
	Size   int64
	SHA256 string
	Kind   ArchiveKind
}

// Diff is an incremental package valid only when the installed version
// exactly equals From. Diffs never chain.
type Diff struct {
	From     version.Version
	Artifact Artifact
}

// VoicePack is an optional per-locale artifact set shipped alongside
// the main game package.
type VoicePack struct {
	Locale string
	Full   Artifact
	Diffs  []Diff
}

// Manifest is the remote description of the latest version, the full
// package, incremental diffs reachable from known predecessors, and
// any voice packs.
type Manifest struct {
	Latest     version.Version
	Full       Artifact
	Diffs      []Diff
	VoicePacks []VoicePack
}

// DiffFrom returns the main-package diff whose source version exactly
// equals v, if the manifest carries one.
func (m *Manifest) DiffFrom(v version.Version) (Diff, bool) {
	for _, d := range m.Diffs {
		if d.From.Equal(v) {
			return d, true
		}
	}
	return Diff{}, false
}

// Action classifies how an installation reaches the manifest's latest
// version.
type Action int

const (
	ActionFreshInstall Action = iota
	ActionDiffUpdate
	ActionUpToDate
	ActionUnsupported
)

func (a Action) String() string {
	switch a {
	case ActionFreshInstall:
		return "fresh-install"
	case ActionDiffUpdate:
		return "diff-update"
	case ActionUpToDate:
		return "up-to-date"
	case ActionUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Strategy is the immutable outcome of one resolution: the action, the
// target version, and the artifact set to download (main package plus
// any selected voice packs).
type Strategy struct {
	Action    Action
	Installed version.Version
	Target    version.Version
	Artifacts []Artifact
	Reason    string // set only for ActionUnsupported
}

// Progress is a monotonically non-decreasing byte counter pair. Total
// is -1 when the source does not advertise a length; callers must wait
// for the terminal result rather than infer completion from Done.
type Progress struct {
	Done  int64
	Total int64
}

// ProgressFunc receives progress updates. May be nil.
type ProgressFunc func(Progress)
