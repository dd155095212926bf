//go:build !windows

package runner

import (
	"os"
	"syscall"
)

// sendInterrupt delivers SIGINT to our own process, as if Ctrl+C had been
// pressed on a cooked terminal.
func sendInterrupt() {
	syscall.Kill(os.Getpid(), syscall.SIGINT)
}
