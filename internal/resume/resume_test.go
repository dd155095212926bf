package resume

import (
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.state")

	s := New(path, "http://example.com/api", "GET", 100)
	s.MarkCompleted("id")
	s.MarkCompleted("page")
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil for existing file")
	}
	if !loaded.Matches("http://example.com/api", "GET") {
		t.Error("loaded state should match same scan")
	}
	if loaded.Matches("http://example.com/api", "POST") {
		t.Error("loaded state should not match different method")
	}

	remaining := loaded.FilterRemaining([]string{"id", "page", "token", "debug"})
	want := []string{"token", "debug"}
	if len(remaining) != len(want) {
		t.Fatalf("remaining = %v, want %v", remaining, want)
	}
	for i, w := range want {
		if remaining[i] != w {
			t.Errorf("remaining[%d] = %q, want %q", i, remaining[i], w)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.state"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != nil {
		t.Error("expected nil state for missing file")
	}
}

func TestMarkCompletedIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "x.state"), "http://x", "GET", 1)
	s.MarkCompleted("id")
	s.MarkCompleted("id")
	if len(s.CompletedParams) != 1 {
		t.Errorf("CompletedParams = %v, want single entry", s.CompletedParams)
	}
}
