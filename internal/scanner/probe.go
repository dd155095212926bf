package scanner

import "time"

// ProbeResult holds the outcome of testing a single candidate parameter.
type ProbeResult struct {
	Param      string
	StatusCode int
	Length     int
	Body       []byte
	Duration   time.Duration
	Err        error
}
