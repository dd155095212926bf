package config

import "time"

// Options holds all configuration for a paraprobe scan. It is populated once
// by the CLI layer and treated as read-only afterwards.
type Options struct {
	// Target
	URL          string
	WordlistPath string
	Method       string // GET or POST

	// Request
	RequestFile     string // path to raw HTTP request file (e.g. Burp export)
	Headers         map[string]string
	UserAgent       string
	Proxy           string
	FollowRedirects bool
	Placeholder     string // injected value for every candidate parameter
	Timeout         time.Duration

	// Detection
	BaselineSamples int  // control requests used to establish the baseline
	MineCandidates  bool // extract extra candidates from baseline HTML forms

	// Performance
	Threads          int
	Delay            time.Duration // per-worker delay between probes
	MaxRate          float64       // global requests/sec cap, 0 = unlimited
	AdaptiveThrottle bool

	// Output
	OutputFile   string
	OutputFormat string // "text", "json", "csv"
	SortBy       string // "", "param", "status", "length"
	Quiet        bool
	NoColor      bool
	OnFindingCmd string

	// Resume
	ResumeFile string
}
