package manager

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/glacierpeak/launchcore/internal/domain"
	"github.com/glacierpeak/launchcore/internal/patcher"
	"github.com/glacierpeak/launchcore/internal/resolver"
	"github.com/glacierpeak/launchcore/internal/staging"
	"github.com/glacierpeak/launchcore/internal/state"
)

// Manager drives one update pipeline: resolve, download, extract,
// patch. Stages run strictly in sequence; only downloads within one
// strategy run concurrently, and every artifact must verify before any
// extraction starts.
type Manager struct {
	source    domain.Source
	fetcher   domain.Fetcher
	extractor domain.Extractor
	store     domain.VersionStore
	journal   *state.Journal
	patches   []domain.Patch

	installRoot string
	downloadDir string
	stagingDir  string
	maxParallel int
}

func New(
	source domain.Source,
	fetcher domain.Fetcher,
	extractor domain.Extractor,
	store domain.VersionStore,
	journal *state.Journal,
	patches []domain.Patch,
	installRoot, downloadDir, stagingDir string,
	maxParallel int,
) *Manager {
	if maxParallel < 1 {
		maxParallel = 1
	}

	return &Manager{
		source:      source,
		fetcher:     fetcher,
		extractor:   extractor,
		store:       store,
		journal:     journal,
		patches:     patches,
		installRoot: installRoot,
		downloadDir: downloadDir,
		stagingDir:  stagingDir,
		maxParallel: maxParallel,
	}
}

// Options adjusts one Update run.
type Options struct {
	// Voice pack locales to install alongside the main package.
	Locales []string

	// Staged extracts and patches into an overlay which is committed
	// into the install root only after every stage succeeds.
	Staged bool

	// DryRun implies Staged but discards the overlay instead of
	// committing, leaving the live installation untouched.
	DryRun bool

	// OnProgress receives per-artifact byte progress during download
	// and extraction. May be nil.
	OnProgress func(artifact string, p domain.Progress)
}

// Result is the terminal outcome of one pipeline run.
type Result struct {
	Strategy   domain.Strategy
	Downloaded []string
	Patches    patcher.Report
	Committed  bool
}

// Check fetches the manifest and classifies the installed tree against
// it. No artifact bytes move.
func (m *Manager) Check(ctx context.Context, locales []string) (domain.Strategy, error) {
	manifest, err := m.source.FetchManifest(ctx)
	if err != nil {
		return domain.Strategy{}, fmt.Errorf("fetching manifest: %w", err)
	}

	installed, ok, err := m.store.Read(m.installRoot)
	if err != nil {
		return domain.Strategy{}, fmt.Errorf("reading version marker: %w", err)
	}

	return resolver.Resolve(installed, ok, manifest, locales), nil
}

// Update runs the full pipeline. An up-to-date installation returns
// immediately; an unsupported relationship (installed ahead of remote)
// is a terminal error before any network transfer.
func (m *Manager) Update(ctx context.Context, opts Options) (*Result, error) {
	strategy, err := m.Check(ctx, opts.Locales)
	if err != nil {
		return nil, err
	}

	result := &Result{Strategy: strategy}

	switch strategy.Action {
	case domain.ActionUpToDate:
		return result, nil
	case domain.ActionUnsupported:
		return result, &domain.UnsupportedError{Reason: strategy.Reason}
	}

	runID := m.journalStart(strategy)

	downloaded, err := m.download(ctx, strategy, opts.OnProgress)
	if err != nil {
		m.journalFinish(runID, "failed", err.Error())
		return result, err
	}
	result.Downloaded = downloaded

	target := m.installRoot
	var area *staging.Area
	var handle *staging.Handle

	if opts.Staged || opts.DryRun {
		area = staging.New(m.installRoot, m.stagingDir)
		handle, err = area.Stage()
		if err != nil {
			m.journalFinish(runID, "failed", err.Error())
			return result, err
		}
		target = handle.Dir
	}

	for i, artifact := range strategy.Artifacts {
		progress := progressFor(artifact.Name, opts.OnProgress)
		if err := m.extractor.Extract(ctx, downloaded[i], artifact.Kind, target, progress); err != nil {
			m.journalFinish(runID, "failed", err.Error())
			return result, err
		}
	}

	// An overlay starts empty and a diff only ships changed files, so
	// patch targets outside the artifacts need their live copy seeded
	// in before the probes and prior-hash gates look at them.
	if handle != nil {
		for _, p := range m.patches {
			tp, ok := p.(domain.TargetedPatch)
			if !ok {
				continue
			}
			if err := area.Seed(handle, tp.TargetPath()); err != nil {
				m.journalFinish(runID, "failed", err.Error())
				return result, err
			}
		}
	}

	// The marker is written before patching on purpose: a failed patch
	// on an otherwise intact tree should read as "repair me", not
	// "re-download the whole update".
	if err := m.store.Write(target, strategy.Target); err != nil {
		m.journalFinish(runID, "failed", err.Error())
		return result, fmt.Errorf("writing version marker: %w", err)
	}

	result.Patches = patcher.ApplyAll(ctx, m.patches, strategy.Target, target)
	if err := result.Patches.Err(); err != nil {
		m.journalFinish(runID, "failed", err.Error())
		if handle != nil && opts.DryRun {
			area.Discard(handle)
		}
		return result, err
	}

	if handle != nil {
		if opts.DryRun {
			area.Discard(handle)
			m.journalFinish(runID, "verified", "dry run, overlay discarded")
			return result, nil
		}
		if err := area.Commit(handle); err != nil {
			m.journalFinish(runID, "failed", err.Error())
			return result, err
		}
	}

	result.Committed = true
	m.journalFinish(runID, "completed", "")
	return result, nil
}

// download fetches every artifact of the strategy concurrently. All
// must verify before the caller may extract any of them.
func (m *Manager) download(ctx context.Context, strategy domain.Strategy, onProgress func(string, domain.Progress)) ([]string, error) {
	paths := make([]string, len(strategy.Artifacts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.maxParallel)

	for i, artifact := range strategy.Artifacts {
		i, artifact := i, artifact
		g.Go(func() error {
			dest := filepath.Join(m.downloadDir, artifactFileName(artifact, strategy))
			path, err := m.fetcher.Fetch(gctx, artifact, dest, progressFor(artifact.Name, onProgress))
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// artifactFileName is deterministic so a resumed run locates the same
// partial file a previous run left behind.
func artifactFileName(a domain.Artifact, s domain.Strategy) string {
	ext := ""
	if a.Kind != domain.KindRaw {
		ext = "." + a.Kind.String()
	}
	return fmt.Sprintf("%s-%s%s", a.Name, s.Target, ext)
}

func progressFor(artifact string, fn func(string, domain.Progress)) domain.ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(p domain.Progress) { fn(artifact, p) }
}

func (m *Manager) journalStart(s domain.Strategy) int64 {
	if m.journal == nil {
		return 0
	}

	from := ""
	if !s.Installed.IsZero() {
		from = s.Installed.String()
	}

	id, err := m.journal.Start(s.Action.String(), from, s.Target.String())
	if err != nil {
		return 0
	}
	return id
}

func (m *Manager) journalFinish(id int64, status, detail string) {
	if m.journal == nil || id == 0 {
		return
	}
	m.journal.Finish(id, status, detail)
}
