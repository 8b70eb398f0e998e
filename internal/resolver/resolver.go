package resolver

import (
	"github.com/glacierpeak/launchcore/internal/domain"
	"github.com/glacierpeak/launchcore/internal/version"
)

// Resolve classifies the relationship between the installed version and
// the remote manifest into an update strategy. Pure: no network, no
// disk, deterministic for identical inputs.
//
// installed is a pointer-less optional: ok=false means nothing is
// installed. locales selects which voice packs join the artifact set.
func Resolve(installed version.Version, haveInstalled bool, m *domain.Manifest, locales []string) domain.Strategy {
	if !haveInstalled {
		s := domain.Strategy{
			Action:    domain.ActionFreshInstall,
			Target:    m.Latest,
			Artifacts: []domain.Artifact{m.Full},
		}
		for _, vp := range voicePacks(m, locales) {
			s.Artifacts = append(s.Artifacts, vp.Full)
		}
		return s
	}

	switch installed.Compare(m.Latest) {
	case 0:
		return domain.Strategy{
			Action:    domain.ActionUpToDate,
			Installed: installed,
			Target:    m.Latest,
		}

	case 1:
		// Installed ahead of remote: corrupted manifest or stale CDN.
		return domain.Strategy{
			Action:    domain.ActionUnsupported,
			Installed: installed,
			Target:    m.Latest,
			Reason:    "downgrade not supported",
		}
	}

	// A diff is valid only when its source version exactly equals the
	// installed version. No chaining through intermediate versions.
	if diff, ok := m.DiffFrom(installed); ok {
		s := domain.Strategy{
			Action:    domain.ActionDiffUpdate,
			Installed: installed,
			Target:    m.Latest,
			Artifacts: []domain.Artifact{diff.Artifact},
		}
		for _, vp := range voicePacks(m, locales) {
			s.Artifacts = append(s.Artifacts, voicePackArtifact(vp, installed))
		}
		return s
	}

	// No incremental path: full reinstall.
	s := domain.Strategy{
		Action:    domain.ActionFreshInstall,
		Installed: installed,
		Target:    m.Latest,
		Artifacts: []domain.Artifact{m.Full},
	}
	for _, vp := range voicePacks(m, locales) {
		s.Artifacts = append(s.Artifacts, vp.Full)
	}
	return s
}

func voicePacks(m *domain.Manifest, locales []string) []domain.VoicePack {
	var out []domain.VoicePack
	for _, locale := range locales {
		for _, vp := range m.VoicePacks {
			if vp.Locale == locale {
				out = append(out, vp)
				break
			}
		}
	}
	return out
}

// voicePackArtifact prefers the pack's own diff from the installed
// version, falling back to its full package.
func voicePackArtifact(vp domain.VoicePack, installed version.Version) domain.Artifact {
	for _, d := range vp.Diffs {
		if d.From.Equal(installed) {
			return d.Artifact
		}
	}
	return vp.Full
}
