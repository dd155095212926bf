package output

import (
	"sort"

	"github.com/paraprobe/paraprobe/internal/detect"
)

// SortedWriter buffers findings and replays them sorted by a field when
// WriteFooter is called. It wraps any other Writer. Without it, finding
// order is detection order, which varies run to run because workers race.
type SortedWriter struct {
	inner    Writer
	sortBy   string
	findings []*detect.Finding
}

// NewSortedWriter wraps inner and buffers findings for sorted replay.
func NewSortedWriter(inner Writer, sortBy string) *SortedWriter {
	return &SortedWriter{inner: inner, sortBy: sortBy}
}

func (w *SortedWriter) WriteHeader() error {
	return w.inner.WriteHeader()
}

func (w *SortedWriter) WriteFinding(f *detect.Finding) error {
	cpy := *f
	w.findings = append(w.findings, &cpy)
	return nil
}

func (w *SortedWriter) WriteFooter(stats Stats) error {
	sort.Slice(w.findings, func(i, j int) bool {
		switch w.sortBy {
		case "status":
			return w.findings[i].StatusCode < w.findings[j].StatusCode
		case "length":
			return w.findings[i].Length < w.findings[j].Length
		case "param":
			return w.findings[i].Param < w.findings[j].Param
		default:
			return false
		}
	})
	for _, f := range w.findings {
		if err := w.inner.WriteFinding(f); err != nil {
			return err
		}
	}
	return w.inner.WriteFooter(stats)
}

func (w *SortedWriter) Close() error {
	return w.inner.Close()
}
