// Package detect classifies probe responses against the baseline signature.
// Classification is pure: no I/O, no shared state, deterministic for
// identical inputs.
package detect

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/paraprobe/paraprobe/internal/baseline"
	"github.com/paraprobe/paraprobe/internal/scanner"
)

// Reason identifies which signal triggered a finding.
type Reason string

const (
	ReasonStatusChange     Reason = "STATUS_CHANGE"
	ReasonLengthChange     Reason = "LENGTH_CHANGE"
	ReasonReflectionChange Reason = "REFLECTION_CHANGE"
	ReasonErrorMessage     Reason = "ERROR_MESSAGE_MATCH"
)

// Length divergence thresholds, combined with OR: an absolute 50-byte gap or
// a 5% relative gap suffices. The dual threshold avoids false positives on
// tiny baselines and false negatives on huge ones.
const (
	lengthAbsThreshold = 50
	lengthRelThreshold = 0.05
)

// Finding records a parameter judged to be accepted by the target.
type Finding struct {
	Param      string
	Method     string
	StatusCode int
	Length     int
	Reason     Reason
	Detail     string
}

// Detector compares probe responses against an immutable baseline signature.
type Detector struct {
	Base        baseline.Signature
	Placeholder string
	Method      string
}

// Classify decides whether the probed parameter was accepted. Signals are
// checked in priority order, first match wins: status divergence is the
// strongest and least noisy signal; error-message matching comes last because
// it compiles per-parameter patterns.
func (d *Detector) Classify(res *scanner.ProbeResult) (Finding, bool) {
	finding := Finding{
		Param:      res.Param,
		Method:     d.Method,
		StatusCode: res.StatusCode,
		Length:     res.Length,
	}

	if res.StatusCode != d.Base.StatusCode {
		finding.Reason = ReasonStatusChange
		finding.Detail = fmt.Sprintf("status %d (baseline %d)", res.StatusCode, d.Base.StatusCode)
		return finding, true
	}

	diff := res.Length - d.Base.BodyLength
	if diff < 0 {
		diff = -diff
	}
	if diff > lengthAbsThreshold ||
		(d.Base.BodyLength > 0 && float64(diff)/float64(d.Base.BodyLength) > lengthRelThreshold) {
		finding.Reason = ReasonLengthChange
		finding.Detail = fmt.Sprintf("length %d (diff %d)", res.Length, diff)
		return finding, true
	}

	reflected := d.Placeholder != "" && bytes.Contains(res.Body, []byte(d.Placeholder))
	if reflected != d.Base.Reflected {
		finding.Reason = ReasonReflectionChange
		if reflected {
			finding.Detail = "placeholder reflected in response"
		} else {
			finding.Detail = "baseline reflection disappeared"
		}
		return finding, true
	}

	if matchesErrorMessage(res.Body, res.Param) {
		finding.Reason = ReasonErrorMessage
		finding.Detail = "error message references parameter"
		return finding, true
	}

	return Finding{}, false
}

// Error-message phrasings that suggest the server parsed the parameter.
// Each template embeds the candidate's own name.
var errorPatterns = []string{
	`parameter ['"]?%s['"]?`,
	`missing.*%s`,
	`%s.*required`,
	`invalid.*%s`,
	`undefined.*%s`,
	`%s.*not.*found`,
	`expects.*%s`,
}

// matchesErrorMessage scans body for any known error phrasing mentioning
// param. The name is escaped first: wordlists routinely contain entries like
// "user[]" that would otherwise change the pattern's meaning.
func matchesErrorMessage(body []byte, param string) bool {
	name := regexp.QuoteMeta(param)
	for _, tmpl := range errorPatterns {
		re, err := regexp.Compile(`(?i)` + fmt.Sprintf(tmpl, name))
		if err != nil {
			continue
		}
		if re.Match(body) {
			return true
		}
	}
	return false
}
