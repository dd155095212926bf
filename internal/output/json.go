package output

import (
	"encoding/json"
	"os"

	"github.com/paraprobe/paraprobe/internal/detect"
)

type jsonEntry struct {
	Param  string `json:"param"`
	Method string `json:"method"`
	Status int    `json:"status"`
	Length int    `json:"length"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// JSONWriter buffers findings and writes them as an indented JSON array at
// footer time. When writing to a file, the file is only created if at least
// one finding exists — a clean scan leaves nothing behind.
type JSONWriter struct {
	outputFile string // empty = stdout
	entries    []jsonEntry
}

// NewJSONWriter creates a JSON output writer.
func NewJSONWriter(outputFile string) (*JSONWriter, error) {
	return &JSONWriter{outputFile: outputFile}, nil
}

func (j *JSONWriter) WriteHeader() error { return nil }

func (j *JSONWriter) WriteFinding(f *detect.Finding) error {
	j.entries = append(j.entries, jsonEntry{
		Param:  f.Param,
		Method: f.Method,
		Status: f.StatusCode,
		Length: f.Length,
		Reason: string(f.Reason),
		Detail: f.Detail,
	})
	return nil
}

func (j *JSONWriter) WriteFooter(stats Stats) error {
	if j.outputFile != "" && len(j.entries) == 0 {
		return nil
	}

	w := os.Stdout
	if j.outputFile != "" {
		f, err := os.Create(j.outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(j.entries)
}

func (j *JSONWriter) Close() error { return nil }
