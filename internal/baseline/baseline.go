// Package baseline establishes the reference response signature that every
// candidate probe is compared against. Control requests use parameter names
// that cannot exist on a real target, so the signature describes how the
// server answers when it ignores the parameter entirely.
package baseline

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/paraprobe/paraprobe/internal/scanner"
)

// Signature is the reference response shape. It is computed once per scan,
// before any candidate probing starts, and never mutated afterwards.
type Signature struct {
	StatusCode int
	BodyLength int
	Reflected  bool // any control sample echoed the placeholder back
}

// Estimate is the result of baseline calibration: the signature, any advisory
// warnings, and the last sampled body (kept so candidate mining can inspect
// the page's forms without an extra request).
type Estimate struct {
	Signature Signature
	Warnings  []string
	Body      []byte
}

// Establish sends samples control probes and derives the baseline signature.
// Any control probe failure is fatal: detection against a target we cannot
// reach reliably would be meaningless.
func Establish(ctx context.Context, req *scanner.Requester, samples int, placeholder string) (*Estimate, error) {
	if samples < 1 {
		return nil, fmt.Errorf("baseline sample count must be at least 1, got %d", samples)
	}

	codes := make([]int, 0, samples)
	lengths := make([]int, 0, samples)
	reflected := false
	var lastBody []byte

	marker := []byte(placeholder)

	for i := 0; i < samples; i++ {
		resp, err := req.Probe(ctx, controlName(i))
		if err != nil {
			return nil, fmt.Errorf("baseline unreachable: control probe %d/%d: %w", i+1, samples, err)
		}
		codes = append(codes, resp.StatusCode)
		lengths = append(lengths, resp.Length)
		if len(marker) > 0 && bytes.Contains(resp.Body, marker) {
			reflected = true
		}
		lastBody = resp.Body
	}

	est := &Estimate{
		Signature: Signature{
			StatusCode: modal(codes),
			BodyLength: modal(lengths),
			Reflected:  reflected,
		},
		Body: lastBody,
	}

	if distinct(lengths) > 1 || distinct(codes) > 1 {
		est.Warnings = append(est.Warnings, fmt.Sprintf(
			"baseline responses are unstable (codes %v, lengths %v) — expect false positives",
			codes, lengths))
	}
	if allRedirects(codes) {
		est.Warnings = append(est.Warnings, fmt.Sprintf(
			"server redirects every baseline request (HTTP %d) — authentication or --follow-redirects may be needed",
			codes[0]))
	}

	return est, nil
}

// controlName builds a parameter name that is guaranteed not to exist on a
// real target: fixed prefix, sample index, random suffix.
func controlName(i int) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("paraprobe_ctrl_%d_%s", i, hex.EncodeToString(buf))
}

// modal returns the most frequent value, ties broken by first-seen order.
// This mirrors the original heuristic exactly; it is an approximation, not a
// rigorous estimator, and callers should treat it as such.
func modal(vals []int) int {
	counts := make(map[int]int, len(vals))
	for _, v := range vals {
		counts[v]++
	}
	best := vals[0]
	bestCount := 0
	for _, v := range vals {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

func distinct(vals []int) int {
	set := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return len(set)
}

func allRedirects(codes []int) bool {
	for _, c := range codes {
		switch c {
		case 301, 302, 303, 307, 308:
		default:
			return false
		}
	}
	return len(codes) > 0
}
