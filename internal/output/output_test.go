package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/paraprobe/paraprobe/internal/detect"
)

func sampleFinding(param string, status int) *detect.Finding {
	return &detect.Finding{
		Param:      param,
		Method:     "GET",
		StatusCode: status,
		Length:     1234,
		Reason:     detect.ReasonStatusChange,
		Detail:     "status changed",
	}
}

func TestJSONWriterNoFileOnZeroFindings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFooter(Stats{}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected no output file for zero findings")
	}
}

func TestJSONWriterRecordCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatal(err)
	}

	findings := []*detect.Finding{
		sampleFinding("debug", 500),
		sampleFinding("admin", 403),
		sampleFinding("id", 200),
	}
	for _, f := range findings {
		if err := w.WriteFinding(f); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.WriteFooter(Stats{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("parsing export: %v", err)
	}
	if len(entries) != len(findings) {
		t.Errorf("exported %d records, want %d", len(entries), len(findings))
	}
	for _, key := range []string{"param", "method", "status", "length", "reason"} {
		if _, ok := entries[0][key]; !ok {
			t.Errorf("export record missing field %q", key)
		}
	}
}

func TestCSVWriterNoFileOnZeroFindings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFooter(Stats{}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected no output file for zero findings")
	}
}

func TestSortedWriterOrdersByParam(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	inner, err := NewJSONWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	w := NewSortedWriter(inner, "param")

	for _, p := range []string{"zeta", "alpha", "mid"} {
		if err := w.WriteFinding(sampleFinding(p, 200)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.WriteFooter(Stats{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entries []jsonEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, e := range entries {
		if e.Param != want[i] {
			t.Errorf("entries[%d].Param = %q, want %q", i, e.Param, want[i])
		}
	}
}
