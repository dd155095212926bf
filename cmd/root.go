package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/paraprobe/paraprobe/internal/config"
	"github.com/paraprobe/paraprobe/internal/reqparse"
	"github.com/paraprobe/paraprobe/internal/runner"
	"github.com/paraprobe/paraprobe/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var opts config.Options

type flagGroup struct {
	title string
	flags []string
}

var helpGroups = []flagGroup{
	{"TARGET", []string{"url", "wordlist", "method", "request-file"}},
	{"DETECTION", []string{"samples", "placeholder", "mine"}},
	{"RATE-LIMIT", []string{"threads", "timeout", "delay", "max-rate", "adaptive-throttle"}},
	{"HTTP", []string{"header", "user-agent", "proxy", "follow-redirects"}},
	{"OUTPUT", []string{"output", "format", "sort", "quiet", "no-color", "on-finding"}},
	{"CONFIGURATION", []string{"resume-file"}},
}

var rootCmd = &cobra.Command{
	Use:     "paraprobe -u <url> -w <wordlist> [flags]",
	Short:   "Hidden HTTP parameter discovery through differential response analysis",
	Version: version.Version,
	Long: `paraprobe discovers hidden or undocumented HTTP parameters by comparing
each probed response against a calibrated baseline. Status code changes,
body length deviations, value reflection and parameter-specific error
messages all count as evidence that the server handles a parameter.`,
	Example: `  paraprobe -u https://example.com/search -w params.txt
  paraprobe -u https://example.com/api -w params.txt -m POST -t 50
  paraprobe -u https://example.com -w params.txt --format json -o found.json
  paraprobe -r burp.req -w params.txt
  paraprobe -u https://example.com -w params.txt --max-rate 10 --adaptive-throttle
  paraprobe -u https://example.com -w params.txt --resume-file scan.state
  paraprobe -u https://example.com -w params.txt --on-finding "notify-send {param}"`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Parse raw HTTP request file (e.g. Burp export) if provided.
		if opts.RequestFile != "" {
			parsed, err := reqparse.ParseFile(opts.RequestFile)
			if err != nil {
				return fmt.Errorf("parsing request file: %w", err)
			}
			// Use parsed URL and method unless set explicitly.
			if !cmd.Flags().Changed("url") {
				opts.URL = parsed.URL
			}
			if !cmd.Flags().Changed("method") {
				opts.Method = parsed.Method
			}
			// Merge parsed headers (explicit -H flags take precedence).
			if opts.Headers == nil {
				opts.Headers = make(map[string]string)
			}
			for key, val := range parsed.Headers {
				k := strings.ToLower(key)
				// Skip hop-by-hop and encoding headers that don't make sense for probing.
				if k == "host" || k == "content-length" || k == "accept-encoding" {
					continue
				}
				if _, exists := opts.Headers[key]; !exists {
					opts.Headers[key] = val
				}
			}
			if !cmd.Flags().Changed("user-agent") {
				if ua, ok := parsed.Headers["User-Agent"]; ok {
					opts.UserAgent = ua
				}
			}
			if !opts.Quiet {
				fmt.Fprintf(os.Stderr, "[+] Loaded request from %s -> %s %s\n", opts.RequestFile, opts.Method, opts.URL)
			}
		}
		if opts.URL == "" {
			_ = cmd.Help()
			fmt.Fprintln(os.Stderr)
			return fmt.Errorf("target required: use -u or --request-file")
		}
		if !strings.HasPrefix(opts.URL, "http://") && !strings.HasPrefix(opts.URL, "https://") {
			opts.URL = "http://" + opts.URL
		}
		if opts.WordlistPath == "" {
			_ = cmd.Help()
			fmt.Fprintln(os.Stderr)
			return fmt.Errorf("wordlist required: use -w")
		}
		opts.Method = strings.ToUpper(opts.Method)
		if opts.Method != "GET" && opts.Method != "POST" {
			return fmt.Errorf("unsupported method %q, must be GET or POST", opts.Method)
		}
		if opts.Placeholder == "" {
			return fmt.Errorf("--placeholder must not be empty")
		}
		switch opts.OutputFormat {
		case "text", "json", "csv":
		default:
			return fmt.Errorf("--format must be one of: text, json, csv")
		}
		if opts.SortBy != "" && opts.SortBy != "param" && opts.SortBy != "status" && opts.SortBy != "length" {
			return fmt.Errorf("--sort must be one of: param, status, length")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runner.Run(ctx, &opts)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()

	// Target
	f.StringVarP(&opts.URL, "url", "u", "", "Target URL (endpoint to probe)")
	f.StringVarP(&opts.WordlistPath, "wordlist", "w", "", "Wordlist of candidate parameter names")
	f.StringVarP(&opts.Method, "method", "m", "GET", "HTTP method: GET or POST")
	f.StringVarP(&opts.RequestFile, "request-file", "r", "", "Raw HTTP request file (e.g. Burp Suite export)")

	// Detection
	f.IntVarP(&opts.BaselineSamples, "samples", "s", 3, "Control requests used to establish the baseline")
	f.StringVarP(&opts.Placeholder, "placeholder", "p", "FUZZ", "Value injected for every candidate parameter")
	f.BoolVar(&opts.MineCandidates, "mine", true, "Extract extra candidates from baseline HTML forms")

	// Performance
	f.IntVarP(&opts.Threads, "threads", "t", 10, "Number of concurrent workers")
	f.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "HTTP request timeout")
	f.DurationVarP(&opts.Delay, "delay", "d", 0, "Delay between probes per worker")
	f.Float64Var(&opts.MaxRate, "max-rate", 0, "Global requests/sec cap across all workers (0 = unlimited)")
	f.BoolVar(&opts.AdaptiveThrottle, "adaptive-throttle", false, "Auto back-off on 429/rate limits")

	// HTTP
	f.StringSliceVarP(new([]string), "header", "H", nil, "Custom headers (Key: Value)")
	f.StringVar(&opts.UserAgent, "user-agent", "", "Custom User-Agent string")
	f.StringVar(&opts.Proxy, "proxy", "", "HTTP/SOCKS proxy URL")
	f.BoolVar(&opts.FollowRedirects, "follow-redirects", false, "Follow HTTP redirects")

	// Output
	f.StringVarP(&opts.OutputFile, "output", "o", "", "Output file path")
	f.StringVar(&opts.OutputFormat, "format", "text", "Output format: text, json, csv")
	f.StringVar(&opts.SortBy, "sort", "", "Sort findings: param, status, length (buffers until scan completes)")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "Minimal output")
	f.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	f.StringVar(&opts.OnFindingCmd, "on-finding", "", "Shell command to run for each finding (receives JSON on stdin)")

	// Resume
	f.StringVar(&opts.ResumeFile, "resume-file", "", "File to save/load scan progress for resume")

	// Custom help: categorized flags like httpx.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		w := os.Stderr
		fmt.Fprint(w, helpBanner(cmd.Version))
		fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
		fmt.Fprintf(w, "\nExamples:\n%s\n", cmd.Example)
		fmt.Fprintf(w, "\nFlags:\n")
		for _, g := range helpGroups {
			fmt.Fprintf(w, "\n%s:\n", g.title)
			for _, name := range g.flags {
				if f := cmd.Flags().Lookup(name); f != nil {
					fmt.Fprintln(w, formatFlag(f))
				}
			}
		}
		fmt.Fprintln(w)
	})

	// Parse headers from string slice into map in PreRun.
	rootCmd.PreRunE = chainPreRun(rootCmd.PreRunE, func(cmd *cobra.Command, args []string) error {
		headers, _ := f.GetStringSlice("header")
		if len(headers) > 0 {
			if opts.Headers == nil {
				opts.Headers = make(map[string]string, len(headers))
			}
			for _, h := range headers {
				parts := strings.SplitN(h, ":", 2)
				if len(parts) != 2 {
					return fmt.Errorf("invalid header format %q, expected 'Key: Value'", h)
				}
				// Explicit -H flags override headers from a request file.
				opts.Headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
			}
		}
		return nil
	})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// chainPreRun combines two PreRunE functions.
func chainPreRun(first, second func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if first != nil {
			if err := first(cmd, args); err != nil {
				return err
			}
		}
		return second(cmd, args)
	}
}

func formatFlag(f *pflag.Flag) string {
	var left string
	if f.Shorthand != "" {
		left = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	} else {
		left = fmt.Sprintf("    --%s", f.Name)
	}

	typ := f.Value.Type()
	if typ != "bool" {
		left += " " + typ
	}

	// Pad to fixed column width for aligned descriptions.
	const col = 36
	for len(left) < col {
		left += " "
	}

	right := f.Usage
	// Show default for non-zero values.
	def := f.DefValue
	if def != "" && def != "false" && def != "0" && def != "0s" && def != "[]" {
		right += fmt.Sprintf(" (default %s)", def)
	}

	return "   " + left + right
}

func helpBanner(ver string) string {
	if ver != "dev" && ver != "" && !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	return fmt.Sprintf(`
    ____                  ____             __
   / __ \____ __________ / __ \_________  / /_  ___
  / /_/ / __ `+"`"+`/ ___/ __ `+"`"+`/ /_/ / ___/ __ \/ __ \/ _ \
 / ____/ /_/ / /  / /_/ / ____/ /  / /_/ / /_/ /  __/
/_/    \__,_/_/   \__,_/_/   /_/   \____/_.___/\___/   %s

`, ver)
}
