package runner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/paraprobe/paraprobe/internal/baseline"
	"github.com/paraprobe/paraprobe/internal/config"
	"github.com/paraprobe/paraprobe/internal/detect"
	"github.com/paraprobe/paraprobe/internal/hook"
	"github.com/paraprobe/paraprobe/internal/mine"
	"github.com/paraprobe/paraprobe/internal/output"
	"github.com/paraprobe/paraprobe/internal/resume"
	"github.com/paraprobe/paraprobe/internal/scanner"
	"github.com/paraprobe/paraprobe/internal/wordlist"
	"github.com/paraprobe/paraprobe/pkg/version"
)

// Run executes the full scan pipeline: load candidates, establish the
// baseline, fan probes out across workers, classify responses, report.
func Run(ctx context.Context, opts *config.Options) error {
	if opts.Threads < 1 {
		return fmt.Errorf("invalid thread count %d, must be at least 1", opts.Threads)
	}
	if opts.BaselineSamples < 1 {
		return fmt.Errorf("invalid baseline sample count %d, must be at least 1", opts.BaselineSamples)
	}

	// 1. Load candidate parameter names.
	params, err := wordlist.Load(opts.WordlistPath)
	if err != nil {
		return fmt.Errorf("loading wordlist: %w", err)
	}
	if len(params) == 0 {
		return fmt.Errorf("wordlist %s contains no candidate names", opts.WordlistPath)
	}

	// 2. Create HTTP requester.
	req, err := scanner.NewRequester(opts)
	if err != nil {
		return fmt.Errorf("creating requester: %w", err)
	}

	if !opts.Quiet {
		printBanner(opts, len(params))
	}

	// 3. Establish baseline. Unreachable target is fatal before any probing.
	if !opts.Quiet {
		fmt.Fprintf(os.Stderr, "[*] Establishing baseline against %s ...\n", opts.URL)
	}
	est, err := baseline.Establish(ctx, req, opts.BaselineSamples, opts.Placeholder)
	if err != nil {
		return err
	}
	for _, warn := range est.Warnings {
		fmt.Fprintf(os.Stderr, "[!] %s\n", warn)
	}
	if !opts.Quiet {
		fmt.Fprintf(os.Stderr, "[+] Baseline: HTTP %d, %d bytes, reflection=%v\n",
			est.Signature.StatusCode, est.Signature.BodyLength, est.Signature.Reflected)
	}

	// 4. Mine extra candidates from the baseline page's forms.
	if opts.MineCandidates {
		mined := mine.ExtractCandidates(est.Body)
		before := len(params)
		params = mine.Merge(params, mined)
		if !opts.Quiet && len(params) > before {
			fmt.Fprintf(os.Stderr, "[+] Mined %d extra candidates from baseline HTML\n", len(params)-before)
		}
	}

	// 5. Resume support.
	var resumeState *resume.State
	if opts.ResumeFile != "" {
		existing, err := resume.Load(opts.ResumeFile)
		if err != nil {
			return fmt.Errorf("loading resume file: %w", err)
		}
		if existing != nil && existing.Matches(opts.URL, req.Method()) {
			resumeState = existing
			before := len(params)
			params = resumeState.FilterRemaining(params)
			if !opts.Quiet {
				fmt.Fprintf(os.Stderr, "[+] Resuming: skipping %d already probed parameters\n", before-len(params))
			}
		} else {
			resumeState = resume.New(opts.ResumeFile, opts.URL, req.Method(), len(params))
		}
	}

	if len(params) == 0 {
		if !opts.Quiet {
			fmt.Fprintf(os.Stderr, "[+] All parameters already probed\n")
		}
		return nil
	}

	// 6. Create output writer.
	out, err := createWriter(opts)
	if err != nil {
		return fmt.Errorf("creating output writer: %w", err)
	}
	defer out.Close()

	if err := out.WriteHeader(); err != nil {
		return err
	}

	// 7. Detector shares the immutable signature across all results.
	det := &detect.Detector{
		Base:        est.Signature,
		Placeholder: opts.Placeholder,
		Method:      req.Method(),
	}

	// 8. Throttler, hook runner, interactive pause.
	throttler := scanner.NewThrottler(opts.Delay, opts.MaxRate, opts.AdaptiveThrottle, opts.Quiet)

	var hookRunner *hook.Runner
	if opts.OnFindingCmd != "" {
		hookRunner = hook.NewRunner(opts.OnFindingCmd, opts.URL, opts.Quiet)
	}

	pauser, restoreTerm := startStdinToggle(opts.Quiet)
	defer restoreTerm()

	// 9. Run the worker pool and aggregate results. The runner is the only
	// consumer, so findings and counters need no locking.
	progress := output.NewProgress(len(params), opts.Quiet)
	startTime := time.Now()

	poolCtx, poolCancel := context.WithCancel(ctx)
	defer poolCancel()

	results := scanner.RunWorkerPool(poolCtx, req, params, scanner.WorkerConfig{
		Threads:   opts.Threads,
		Throttler: throttler,
		Pauser:    pauser,
	})

	// abort stops the pool and unblocks any worker parked on a send, so an
	// early return never strands goroutines behind a full results channel.
	abort := func() {
		poolCancel()
		for range results {
		}
	}

	var stats output.Stats
	for res := range results {
		progress.Increment()

		if resumeState != nil {
			resumeState.MarkCompleted(res.Param)
		}

		// Transport errors are local to one candidate: no finding, no retry.
		if res.Err != nil {
			stats.ErrorCount++
			continue
		}
		stats.TotalRequests++

		f, found := det.Classify(&res)
		if !found {
			continue
		}
		stats.FindingCount++

		progress.Clear()
		if err := out.WriteFinding(&f); err != nil {
			abort()
			return err
		}
		if hookRunner != nil {
			hookRunner.Run(&f)
		}
	}
	progress.Finish()

	interrupted := ctx.Err() != nil
	if resumeState != nil {
		if interrupted {
			if err := resumeState.Save(); err == nil && !opts.Quiet {
				fmt.Fprintf(os.Stderr, "[*] Progress saved to %s — resume with --resume-file\n", opts.ResumeFile)
			}
		} else {
			_ = resumeState.Remove()
		}
	}
	if interrupted && !opts.Quiet {
		fmt.Fprintf(os.Stderr, "\n[!] Scan interrupted — reporting %d findings collected so far\n", stats.FindingCount)
	}

	stats.Duration = time.Since(startTime)
	if stats.Duration.Seconds() > 0 {
		stats.RequestsPerSec = float64(stats.TotalRequests) / stats.Duration.Seconds()
	}

	return out.WriteFooter(stats)
}

func createWriter(opts *config.Options) (output.Writer, error) {
	var w output.Writer
	var err error
	switch opts.OutputFormat {
	case "json":
		w, err = output.NewJSONWriter(opts.OutputFile)
	case "csv":
		w, err = output.NewCSVWriter(opts.OutputFile)
	default:
		w, err = output.NewTextWriter(opts.OutputFile, opts.NoColor, opts.Quiet)
	}
	if err != nil {
		return nil, err
	}
	if opts.SortBy != "" {
		w = output.NewSortedWriter(w, opts.SortBy)
	}
	return w, nil
}

func printBanner(opts *config.Options, paramCount int) {
	if opts.NoColor {
		color.NoColor = true
	}
	cyan := color.New(color.FgCyan)
	dim := color.New(color.Faint)
	white := color.New(color.FgHiWhite)

	cyan.Fprintf(os.Stderr, `
    ____                  ____             __
   / __ \____ __________ / __ \_________  / /_  ___
  / /_/ / __ `+"`"+`/ ___/ __ `+"`"+`/ /_/ / ___/ __ \/ __ \/ _ \
 / ____/ /_/ / /  / /_/ / ____/ /  / /_/ / /_/ /  __/
/_/    \__,_/_/   \__,_/_/   /_/   \____/_.___/\___/
`)
	dim.Fprintf(os.Stderr, "    hidden parameter discovery  v%s\n\n", version.Version)

	dim.Fprintln(os.Stderr, "  ──────────────────────────────────────")
	fmt.Fprintf(os.Stderr, "  %s %s\n", dim.Sprint("Target:     "), white.Sprint(opts.URL))
	fmt.Fprintf(os.Stderr, "  %s %s\n", dim.Sprint("Method:     "), white.Sprint(strings.ToUpper(opts.Method)))
	fmt.Fprintf(os.Stderr, "  %s %d\n", dim.Sprint("Threads:    "), opts.Threads)
	fmt.Fprintf(os.Stderr, "  %s %d candidates\n", dim.Sprint("Wordlist:   "), paramCount)
	fmt.Fprintf(os.Stderr, "  %s %s\n", dim.Sprint("Placeholder:"), white.Sprint(opts.Placeholder))
	if opts.Delay > 0 {
		fmt.Fprintf(os.Stderr, "  %s %s/probe\n", dim.Sprint("Delay:      "), opts.Delay)
	}
	if opts.MaxRate > 0 {
		fmt.Fprintf(os.Stderr, "  %s %.1f req/s\n", dim.Sprint("Max rate:   "), opts.MaxRate)
	}
	dim.Fprintln(os.Stderr, "  ──────────────────────────────────────")
	fmt.Fprintln(os.Stderr)
}
