package patcher

import (
	"context"
	"sort"

	"github.com/glacierpeak/launchcore/internal/domain"
	"github.com/glacierpeak/launchcore/internal/version"
)

type Status int

const (
	StatusApplied Status = iota
	// StatusSkipped means the idempotency probe found the patch already
	// in place; StatusInapplicable means the version window excluded it.
	StatusSkipped
	StatusInapplicable
	StatusFailed
	StatusNotAttempted
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusSkipped:
		return "skipped"
	case StatusInapplicable:
		return "inapplicable"
	case StatusFailed:
		return "failed"
	case StatusNotAttempted:
		return "not-attempted"
	default:
		return "unknown"
	}
}

type Result struct {
	Name   string
	Status Status
	Err    error
}

type Report struct {
	Results []Result
}

// Err returns the failing patch's error, if any patch failed.
func (r *Report) Err() error {
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			return &domain.PatchError{Patch: res.Name, Err: res.Err}
		}
	}
	return nil
}

// ApplyAll runs patches strictly in ascending order-key sequence
// against the tree at root. Each patch's idempotency probe runs before
// Apply; an already-applied patch is recorded as skipped. The first
// failure halts the queue, marks the rest not-attempted and leaves
// previously applied patches in place. Patches are individually safe
// to leave applied, so there is no rollback.
func ApplyAll(ctx context.Context, patches []domain.Patch, v version.Version, root string) Report {
	ordered := make([]domain.Patch, len(patches))
	copy(ordered, patches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order() < ordered[j].Order()
	})

	report := Report{Results: make([]Result, 0, len(ordered))}
	halted := false

	for _, p := range ordered {
		if halted {
			report.Results = append(report.Results, Result{Name: p.Name(), Status: StatusNotAttempted})
			continue
		}

		if !p.AppliesTo(v) {
			report.Results = append(report.Results, Result{Name: p.Name(), Status: StatusInapplicable})
			continue
		}

		applied, err := p.Applied(ctx, root)
		if err != nil {
			report.Results = append(report.Results, Result{Name: p.Name(), Status: StatusFailed, Err: err})
			halted = true
			continue
		}
		if applied {
			report.Results = append(report.Results, Result{Name: p.Name(), Status: StatusSkipped})
			continue
		}

		if err := p.Apply(ctx, root); err != nil {
			report.Results = append(report.Results, Result{Name: p.Name(), Status: StatusFailed, Err: err})
			halted = true
			continue
		}

		report.Results = append(report.Results, Result{Name: p.Name(), Status: StatusApplied})
	}

	return report
}
