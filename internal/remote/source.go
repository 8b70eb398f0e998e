package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/glacierpeak/launchcore/internal/domain"
	"github.com/glacierpeak/launchcore/internal/version"
)

// HTTPSource fetches the version manifest from a game-specific
// endpoint. The pipeline only sees the domain.Source capability, so
// per-title differences stay out of the core.
type HTTPSource struct {
	client *http.Client
	url    string
}

func NewHTTPSource(manifestURL, proxyURL string, timeout time.Duration) (*HTTPSource, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	if proxyURL != "" {
		proxy, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &HTTPSource{
		client: &http.Client{Transport: transport, Timeout: timeout},
		url:    manifestURL,
	}, nil
}

func (s *HTTPSource) FetchManifest(ctx context.Context) (*domain.Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "launchcore")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var wire wireManifest
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	return wire.toDomain()
}

// Wire format. Artifact kind may be declared explicitly or inferred
// from the primary URL's basename.
type wireManifest struct {
	Latest     string          `json:"latest"`
	Full       wireArtifact    `json:"full"`
	Diffs      []wireDiff      `json:"diffs"`
	VoicePacks []wireVoicePack `json:"voice_packs"`
}

type wireArtifact struct {
	Name   string   `json:"name"`
	URLs   []string `json:"urls"`
	Size   int64    `json:"size"`
	SHA256 string   `json:"sha256"`
	Kind   string   `json:"kind"`
}

type wireDiff struct {
	From     string       `json:"from"`
	Artifact wireArtifact `json:"artifact"`
}

type wireVoicePack struct {
	Locale string       `json:"locale"`
	Full   wireArtifact `json:"full"`
	Diffs  []wireDiff   `json:"diffs"`
}

func (w *wireManifest) toDomain() (*domain.Manifest, error) {
	latest, err := version.Parse(w.Latest)
	if err != nil {
		return nil, err
	}

	m := &domain.Manifest{
		Latest: latest,
		Full:   w.Full.toDomain(),
	}

	for _, d := range w.Diffs {
		diff, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		m.Diffs = append(m.Diffs, diff)
	}

	for _, vp := range w.VoicePacks {
		pack := domain.VoicePack{
			Locale: vp.Locale,
			Full:   vp.Full.toDomain(),
		}
		for _, d := range vp.Diffs {
			diff, err := d.toDomain()
			if err != nil {
				return nil, err
			}
			pack.Diffs = append(pack.Diffs, diff)
		}
		m.VoicePacks = append(m.VoicePacks, pack)
	}

	return m, nil
}

func (w wireArtifact) toDomain() domain.Artifact {
	kind := kindFromString(w.Kind)
	if w.Kind == "" && len(w.URLs) > 0 {
		kind = domain.KindFromName(path.Base(w.URLs[0]))
	}

	return domain.Artifact{
		Name:   w.Name,
		URLs:   w.URLs,
		Size:   w.Size,
		SHA256: w.SHA256,
		Kind:   kind,
	}
}

func (w wireDiff) toDomain() (domain.Diff, error) {
	from, err := version.Parse(w.From)
	if err != nil {
		return domain.Diff{}, err
	}
	return domain.Diff{From: from, Artifact: w.Artifact.toDomain()}, nil
}

func kindFromString(s string) domain.ArchiveKind {
	switch s {
	case "zip":
		return domain.KindZip
	case "tar":
		return domain.KindTar
	case "tar.gz":
		return domain.KindTarGz
	case "tar.bz2":
		return domain.KindTarBz2
	case "tar.xz":
		return domain.KindTarXz
	case "tar.zst":
		return domain.KindTarZst
	default:
		return domain.KindRaw
	}
}
