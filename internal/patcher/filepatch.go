package patcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glacierpeak/launchcore/internal/domain"
	"github.com/glacierpeak/launchcore/internal/version"
)

// FilePatch replaces one file under the install root with a payload,
// gated by content hashes. The idempotency probe compares the target's
// current hash against the payload hash, so re-running the pipeline
// never rewrites an already-patched binary. PriorHashes, when set,
// restricts application to known pre-patch builds: patching an
// unrecognized binary is refused rather than risked.
type FilePatch struct {
	PatchName   string
	OrderKey    int
	Target      string // relative to the install root
	Payload     []byte
	PriorHashes []string
	// Version window the patch targets; a zero To leaves the window
	// open-ended.
	From version.Version
	To   version.Version

	Hasher domain.Hasher
}

func (p *FilePatch) Name() string       { return p.PatchName }
func (p *FilePatch) Order() int         { return p.OrderKey }
func (p *FilePatch) TargetPath() string { return p.Target }

func (p *FilePatch) AppliesTo(v version.Version) bool {
	if !p.From.IsZero() && v.Less(p.From) {
		return false
	}
	if !p.To.IsZero() && p.To.Less(v) {
		return false
	}
	return true
}

func (p *FilePatch) Applied(ctx context.Context, root string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	current, err := p.hasher().Sum(filepath.Join(root, p.Target))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return current == p.hasher().SumBytes(p.Payload), nil
}

func (p *FilePatch) Apply(ctx context.Context, root string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(root, p.Target)

	if len(p.PriorHashes) > 0 {
		current, err := p.hasher().Sum(target)
		if err != nil {
			return fmt.Errorf("hashing %s: %w", p.Target, err)
		}
		if !contains(p.PriorHashes, current) {
			return fmt.Errorf("%s has unrecognized content hash %s", p.Target, current)
		}
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode()
	}

	// Write-then-rename keeps a crashed apply from leaving a torn
	// binary behind.
	tmp := target + ".patch-tmp"
	if err := os.WriteFile(tmp, p.Payload, mode); err != nil {
		return fmt.Errorf("writing %s: %w", p.Target, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", p.Target, err)
	}

	return nil
}

func (p *FilePatch) hasher() domain.Hasher {
	if p.Hasher != nil {
		return p.Hasher
	}
	return domain.SHA256Hasher{}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
