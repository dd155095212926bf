//go:build linux

package runner

import "golang.org/x/sys/unix"

// fixOutputProcessing restores the OPOST flag that term.MakeRaw cleared.
// Without it \n is not expanded to \r\n and progress output staircases
// across the screen.
func fixOutputProcessing(fd int) {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return
	}
	t.Oflag |= unix.OPOST
	_ = unix.IoctlSetTermios(fd, unix.TCSETS, t)
}
