//go:build windows

package runner

import "syscall"

var (
	kernel32                     = syscall.NewLazyDLL("kernel32.dll")
	procGenerateConsoleCtrlEvent = kernel32.NewProc("GenerateConsoleCtrlEvent")
)

// sendInterrupt raises CTRL_C_EVENT (0) in the current console process
// group (0), the Windows equivalent of signalling SIGINT to ourselves.
func sendInterrupt() {
	procGenerateConsoleCtrlEvent.Call(0, 0)
}
