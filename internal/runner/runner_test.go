package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paraprobe/paraprobe/internal/config"
	"github.com/paraprobe/paraprobe/internal/resume"
)

const baselineBody = "welcome to the api, nothing to see here"

func writeWordlist(t *testing.T, words []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.txt")
	if err := os.WriteFile(path, []byte(strings.Join(words, "\n")), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testOpts(t *testing.T, serverURL, wordlistPath string) *config.Options {
	t.Helper()
	return &config.Options{
		URL:             serverURL,
		WordlistPath:    wordlistPath,
		Method:          "GET",
		Threads:         3,
		Timeout:         5 * time.Second,
		Placeholder:     "FUZZ",
		BaselineSamples: 3,
		Quiet:           true,
		NoColor:         true,
		OutputFile:      filepath.Join(t.TempDir(), "findings.json"),
		OutputFormat:    "json",
	}
}

func readFindings(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading findings: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("parsing findings: %v", err)
	}
	return entries
}

func hasParam(r *http.Request, name string) bool {
	return r.URL.Query().Has(name)
}

func TestScanFindsHiddenParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case hasParam(r, "debug"):
			// Accepted parameter changes the page size well past thresholds.
			fmt.Fprint(w, baselineBody+strings.Repeat(" debug-dump", 20))
		case hasParam(r, "admin"):
			w.WriteHeader(403)
			fmt.Fprint(w, baselineBody)
		default:
			fmt.Fprint(w, baselineBody)
		}
	}))
	defer srv.Close()

	wl := writeWordlist(t, []string{"debug", "admin", "ghost1", "ghost2", "ghost3"})
	opts := testOpts(t, srv.URL, wl)

	if err := Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	entries := readFindings(t, opts.OutputFile)
	got := make(map[string]string, len(entries))
	for _, e := range entries {
		got[e["param"].(string)] = e["reason"].(string)
	}

	if len(entries) != 2 {
		t.Fatalf("got %d findings, want 2: %v", len(entries), got)
	}
	if got["admin"] != "STATUS_CHANGE" {
		t.Errorf("admin reason = %q, want STATUS_CHANGE", got["admin"])
	}
	if got["debug"] != "LENGTH_CHANGE" {
		t.Errorf("debug reason = %q, want LENGTH_CHANGE", got["debug"])
	}
}

func TestScanZeroFindingsWritesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, baselineBody)
	}))
	defer srv.Close()

	wl := writeWordlist(t, []string{"ghost1", "ghost2"})
	opts := testOpts(t, srv.URL, wl)

	if err := Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(opts.OutputFile); !os.IsNotExist(err) {
		t.Error("expected no export file when nothing was found")
	}
}

func TestScanProbesEveryCandidateOnce(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		for name := range r.URL.Query() {
			seen[name]++
		}
		mu.Unlock()
		fmt.Fprint(w, baselineBody)
	}))
	defer srv.Close()

	words := make([]string, 40)
	for i := range words {
		words[i] = fmt.Sprintf("param%d", i)
	}
	wl := writeWordlist(t, words)
	opts := testOpts(t, srv.URL, wl)
	opts.MineCandidates = false

	if err := Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	probes := 0
	for name, count := range seen {
		if strings.HasPrefix(name, "paraprobe_ctrl_") {
			continue
		}
		probes++
		if count != 1 {
			t.Errorf("candidate %s probed %d times, want 1", name, count)
		}
	}
	if probes != len(words) {
		t.Errorf("probed %d candidates, want %d", probes, len(words))
	}
}

func TestScanSurvivesPerProbeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hasParam(r, "kaboom") {
			// Drop the connection mid-request to force a transport error.
			hj, ok := w.(http.Hijacker)
			if ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
				return
			}
		}
		if hasParam(r, "secret") {
			w.WriteHeader(500)
		}
		fmt.Fprint(w, baselineBody)
	}))
	defer srv.Close()

	wl := writeWordlist(t, []string{"kaboom", "secret", "ghost"})
	opts := testOpts(t, srv.URL, wl)

	if err := Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	entries := readFindings(t, opts.OutputFile)
	for _, e := range entries {
		if e["param"] == "kaboom" {
			t.Error("errored candidate must never become a finding")
		}
	}
	if len(entries) != 1 || entries[0]["param"] != "secret" {
		t.Errorf("findings = %v, want only secret", entries)
	}
}

func TestScanMinesCandidatesFromBaselineHTML(t *testing.T) {
	page := `<html><body><form><input name="hidden_field"></form>` + baselineBody + `</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hasParam(r, "hidden_field") {
			w.WriteHeader(500)
		}
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	wl := writeWordlist(t, []string{"ghost"})
	opts := testOpts(t, srv.URL, wl)
	opts.MineCandidates = true

	if err := Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	entries := readFindings(t, opts.OutputFile)
	if len(entries) != 1 || entries[0]["param"] != "hidden_field" {
		t.Errorf("findings = %v, want mined hidden_field", entries)
	}
}

func TestScanResumeSkipsCompleted(t *testing.T) {
	var mu sync.Mutex
	var probed []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		for name := range r.URL.Query() {
			if !strings.HasPrefix(name, "paraprobe_ctrl_") {
				probed = append(probed, name)
			}
		}
		mu.Unlock()
		fmt.Fprint(w, baselineBody)
	}))
	defer srv.Close()

	wl := writeWordlist(t, []string{"alpha", "beta", "gamma"})
	opts := testOpts(t, srv.URL, wl)
	opts.ResumeFile = filepath.Join(t.TempDir(), "scan.state")

	state := resume.New(opts.ResumeFile, srv.URL, "GET", 3)
	state.MarkCompleted("alpha")
	state.MarkCompleted("beta")
	if err := state.Save(); err != nil {
		t.Fatal(err)
	}

	if err := Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(probed) != 1 || probed[0] != "gamma" {
		t.Errorf("probed %v, want only gamma", probed)
	}
	if _, err := os.Stat(opts.ResumeFile); !os.IsNotExist(err) {
		t.Error("resume file should be removed after a completed scan")
	}
}

func TestScanInterruptReturnsCleanly(t *testing.T) {
	var n atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) == 10 {
			cancel() // operator abort mid-scan
		}
		fmt.Fprint(w, baselineBody)
	}))
	defer srv.Close()

	words := make([]string, 200)
	for i := range words {
		words[i] = fmt.Sprintf("param%d", i)
	}
	wl := writeWordlist(t, words)
	opts := testOpts(t, srv.URL, wl)

	// Interruption is an expected operator action, not a failure.
	if err := Run(ctx, opts); err != nil {
		t.Fatalf("interrupted run should not error: %v", err)
	}
}

func TestScanInvalidConcurrencyIsFatal(t *testing.T) {
	wl := writeWordlist(t, []string{"id"})
	opts := testOpts(t, "http://127.0.0.1:1", wl)
	opts.Threads = 0

	if err := Run(context.Background(), opts); err == nil {
		t.Error("expected startup error for zero threads")
	}
}

func TestScanMissingWordlistIsFatal(t *testing.T) {
	opts := testOpts(t, "http://127.0.0.1:1", filepath.Join(t.TempDir(), "missing.txt"))
	if err := Run(context.Background(), opts); err == nil {
		t.Error("expected startup error for missing wordlist")
	}
}

func TestScanWriteFailureReleasesWorkers(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("requires /dev/full")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Close connections so no idle keep-alive goroutines skew the count.
		w.Header().Set("Connection", "close")
		for name := range r.URL.Query() {
			if !strings.HasPrefix(name, "paraprobe_ctrl_") {
				w.WriteHeader(500)
				break
			}
		}
		fmt.Fprint(w, baselineBody)
	}))
	defer srv.Close()

	words := make([]string, 100)
	for i := range words {
		words[i] = fmt.Sprintf("param%d", i)
	}
	wl := writeWordlist(t, words)
	opts := testOpts(t, srv.URL, wl)
	opts.OutputFormat = "text"
	opts.OutputFile = "/dev/full" // every finding write fails with ENOSPC

	before := runtime.NumGoroutine()

	if err := Run(context.Background(), opts); err == nil {
		t.Fatal("expected write error from full device")
	}

	// Workers, producer and closer must all have exited; poll briefly since
	// goroutine teardown is asynchronous.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("goroutines leaked: %d before scan, %d after", before, runtime.NumGoroutine())
}

func TestScanBaselineUnreachableIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	wl := writeWordlist(t, []string{"id"})
	opts := testOpts(t, srv.URL, wl)

	if err := Run(context.Background(), opts); err == nil {
		t.Error("expected fatal error when baseline cannot be established")
	}
}
