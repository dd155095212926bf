package output

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/paraprobe/paraprobe/internal/detect"
)

// CSVWriter buffers findings and writes them in CSV format at footer time,
// with the same no-file-on-empty behavior as the JSON writer.
type CSVWriter struct {
	outputFile string
	rows       [][]string
}

// NewCSVWriter creates a CSV output writer.
func NewCSVWriter(outputFile string) (*CSVWriter, error) {
	return &CSVWriter{outputFile: outputFile}, nil
}

func (c *CSVWriter) WriteHeader() error { return nil }

func (c *CSVWriter) WriteFinding(f *detect.Finding) error {
	c.rows = append(c.rows, []string{
		f.Param,
		f.Method,
		fmt.Sprintf("%d", f.StatusCode),
		fmt.Sprintf("%d", f.Length),
		string(f.Reason),
		f.Detail,
	})
	return nil
}

func (c *CSVWriter) WriteFooter(_ Stats) error {
	if c.outputFile != "" && len(c.rows) == 0 {
		return nil
	}

	w := os.Stdout
	if c.outputFile != "" {
		f, err := os.Create(c.outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"param", "method", "status", "length", "reason", "detail"}); err != nil {
		return err
	}
	for _, row := range c.rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (c *CSVWriter) Close() error { return nil }
