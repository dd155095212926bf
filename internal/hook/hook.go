package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/paraprobe/paraprobe/internal/detect"
)

// findingJSON is the JSON payload sent to the hook command via stdin.
type findingJSON struct {
	Param  string `json:"param"`
	Method string `json:"method"`
	Status int    `json:"status"`
	Length int    `json:"length"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
	URL    string `json:"url"`
}

// Runner executes a shell command for each finding.
type Runner struct {
	cmd   string
	url   string
	quiet bool
}

// NewRunner creates a hook runner. cmd is the shell command to execute for
// every finding; url is the scan target, exposed via the {url} placeholder.
func NewRunner(cmd, url string, quiet bool) *Runner {
	return &Runner{cmd: cmd, url: url, quiet: quiet}
}

// Run executes the hook command with the finding as JSON on stdin.
// The command runs with a 30-second timeout. Errors are logged but
// do not halt the scan.
func (r *Runner) Run(f *detect.Finding) {
	payload := findingJSON{
		Param:  f.Param,
		Method: f.Method,
		Status: f.StatusCode,
		Length: f.Length,
		Reason: string(f.Reason),
		Detail: f.Detail,
		URL:    r.url,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[hook] marshal error: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shell, args := shellCommand()
	expanded := r.cmd
	expanded = strings.ReplaceAll(expanded, "{param}", f.Param)
	expanded = strings.ReplaceAll(expanded, "{method}", f.Method)
	expanded = strings.ReplaceAll(expanded, "{status}", fmt.Sprintf("%d", f.StatusCode))
	expanded = strings.ReplaceAll(expanded, "{length}", fmt.Sprintf("%d", f.Length))
	expanded = strings.ReplaceAll(expanded, "{reason}", string(f.Reason))
	expanded = strings.ReplaceAll(expanded, "{url}", r.url)

	cmd := exec.CommandContext(ctx, shell, append(args, expanded)...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		if !r.quiet {
			fmt.Fprintf(os.Stderr, "[hook] error: %v\n", err)
		}
		return
	}

	if len(output) > 0 && !r.quiet {
		fmt.Fprintf(os.Stderr, "[hook] %s", output)
	}
}

func shellCommand() (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}
	}
	return "sh", []string{"-c"}
}
