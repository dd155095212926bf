package output

import (
	"time"

	"github.com/paraprobe/paraprobe/internal/detect"
)

// Stats holds aggregate scan statistics.
type Stats struct {
	TotalRequests  int // successfully transported probes
	ErrorCount     int
	FindingCount   int
	Duration       time.Duration
	RequestsPerSec float64
}

// Writer is implemented by each output format.
type Writer interface {
	WriteHeader() error
	WriteFinding(f *detect.Finding) error
	WriteFooter(stats Stats) error
	Close() error
}
