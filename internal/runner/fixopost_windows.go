//go:build windows

package runner

// fixOutputProcessing is a no-op on Windows: the console host handles
// newline translation itself, independent of raw input mode.
func fixOutputProcessing(fd int) {}
