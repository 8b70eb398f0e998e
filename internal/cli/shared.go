package cli

import (
	"context"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/glacierpeak/launchcore/internal/domain"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func withSpinner(ctx context.Context, desc string) (stop func()) {
	spinner := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				spinner.Finish()
				return
			default:
				spinner.Add(1)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()
	return func() {
		close(done)
		spinner.Finish()
	}
}

// progressRenderer maps per-artifact byte progress onto progress bars.
// Download and extraction report through the same callback, so a new
// bar starts whenever an artifact's total changes shape.
type progressRenderer struct {
	mu   sync.Mutex
	bars map[string]*progressbar.ProgressBar
}

func newProgressRenderer() *progressRenderer {
	return &progressRenderer{bars: make(map[string]*progressbar.ProgressBar)}
}

func (r *progressRenderer) update(artifact string, p domain.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bar, ok := r.bars[artifact]
	if !ok || (p.Total >= 0 && bar.GetMax64() != p.Total) || p.Done < bar.State().CurrentNum {
		bar = progressbar.DefaultBytes(p.Total, artifact)
		r.bars[artifact] = bar
	}
	bar.Set64(p.Done)
}

func (r *progressRenderer) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bar := range r.bars {
		bar.Finish()
	}
}
