package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/paraprobe/paraprobe/internal/detect"
)

// TextWriter prints findings as they are detected. If outputFile is empty,
// stdout is used.
type TextWriter struct {
	w     io.Writer
	quiet bool

	found  *color.Color
	param  *color.Color
	detail *color.Color
}

// NewTextWriter creates a text output writer. noColor disables ANSI colors
// globally (color.NoColor also honors NO_COLOR and non-TTY output).
func NewTextWriter(outputFile string, noColor, quiet bool) (*TextWriter, error) {
	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return nil, err
		}
		w = f
	}
	if noColor {
		color.NoColor = true
	}
	return &TextWriter{
		w:      w,
		quiet:  quiet,
		found:  color.New(color.FgGreen),
		param:  color.New(color.FgGreen, color.Bold),
		detail: color.New(color.Faint),
	}, nil
}

func (t *TextWriter) WriteHeader() error { return nil }

func (t *TextWriter) WriteFinding(f *detect.Finding) error {
	_, err := fmt.Fprintf(t.w, "%s %s  %s\n",
		t.found.Sprint("[+] FOUND:"),
		t.param.Sprint(f.Param),
		t.detail.Sprintf("[%s %d, %d bytes] %s: %s", f.Method, f.StatusCode, f.Length, f.Reason, f.Detail),
	)
	return err
}

func (t *TextWriter) WriteFooter(stats Stats) error {
	if t.quiet {
		return nil
	}
	_, err := fmt.Fprintf(os.Stderr,
		"\nCompleted: %d requests | Findings: %d | Errors: %d | Duration: %s | %.1f req/s\n",
		stats.TotalRequests,
		stats.FindingCount,
		stats.ErrorCount,
		stats.Duration.Round(time.Millisecond),
		stats.RequestsPerSec,
	)
	return err
}

func (t *TextWriter) Close() error {
	if closer, ok := t.w.(io.Closer); ok && t.w != os.Stdout {
		return closer.Close()
	}
	return nil
}
