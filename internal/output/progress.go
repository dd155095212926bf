package output

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress renders scan progress on stderr. A nil-safe no-op in quiet mode.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a progress bar for total probes. Returns a no-op
// tracker when quiet is set.
func NewProgress(total int, quiet bool) *Progress {
	if quiet {
		return &Progress{}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("probing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("req"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &Progress{bar: bar}
}

// Increment records one completed probe.
func (p *Progress) Increment() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// Clear wipes the bar line so a finding can be printed cleanly; the bar
// redraws on the next Increment.
func (p *Progress) Clear() {
	if p.bar != nil {
		_ = p.bar.Clear()
	}
}

// Finish completes and removes the bar.
func (p *Progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
