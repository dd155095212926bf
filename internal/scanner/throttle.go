package scanner

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttler paces probe workers. Every worker calls Wait before each request:
// it first passes the optional global rate limiter, then sleeps the current
// per-worker delay. With adaptive mode enabled, 429/503 responses and
// repeated connection errors exponentially back off the delay; healthy
// responses gradually recover it toward the base delay.
type Throttler struct {
	mu           sync.Mutex
	baseDelay    time.Duration
	currentDelay time.Duration
	maxDelay     time.Duration
	consecutive  int // consecutive throttle signals
	adaptive     bool
	quiet        bool
	limiter      *rate.Limiter // nil = no global cap
}

// NewThrottler creates a throttler. maxRate is the global requests/sec cap
// across all workers; 0 disables it.
func NewThrottler(baseDelay time.Duration, maxRate float64, adaptive, quiet bool) *Throttler {
	t := &Throttler{
		baseDelay:    baseDelay,
		currentDelay: baseDelay,
		maxDelay:     30 * time.Second,
		adaptive:     adaptive,
		quiet:        quiet,
	}
	if maxRate > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(maxRate), 1)
	}
	return t
}

// Wait blocks until the caller may send its next request. Returns early with
// the context error on cancellation.
func (t *Throttler) Wait(ctx context.Context) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	t.mu.Lock()
	delay := t.currentDelay
	t.mu.Unlock()

	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordStatus updates the adaptive delay based on a response status code.
func (t *Throttler) RecordStatus(statusCode int) {
	if !t.adaptive {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if statusCode == 429 || statusCode == 503 {
		t.consecutive++
		t.backOffLocked(fmt.Sprintf("rate limited (HTTP %d)", statusCode))
		return
	}

	if t.consecutive > 0 {
		t.consecutive = 0
		newDelay := t.currentDelay / 2
		if newDelay < t.baseDelay {
			newDelay = t.baseDelay
		}
		if newDelay != t.currentDelay {
			t.currentDelay = newDelay
			if !t.quiet && t.currentDelay > t.baseDelay {
				fmt.Fprintf(os.Stderr, "\n[+] Recovering — delay now %s/probe\n", t.currentDelay)
			}
		}
	}
}

// RecordError flags a connection error (timeout, reset) as a possible rate
// limit signal. Three in a row trigger a back-off.
func (t *Throttler) RecordError() {
	if !t.adaptive {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutive++
	if t.consecutive >= 3 {
		t.backOffLocked("multiple transport errors")
	}
}

func (t *Throttler) backOffLocked(why string) {
	newDelay := t.currentDelay * 2
	if newDelay < 500*time.Millisecond {
		newDelay = 500 * time.Millisecond
	}
	if newDelay > t.maxDelay {
		newDelay = t.maxDelay
	}
	if newDelay != t.currentDelay {
		t.currentDelay = newDelay
		if !t.quiet {
			fmt.Fprintf(os.Stderr, "\n[!] %s — backing off to %s/probe\n", why, t.currentDelay)
		}
	}
}
