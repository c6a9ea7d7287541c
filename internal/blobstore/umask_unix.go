//go:build unix

package blobstore

import (
	"os"
	"syscall"
)

// currentUmask reads the process umask without permanently changing it.
// syscall.Umask has no read-only variant, so the only way to read the
// current value is to swap in a new one and immediately swap it back.
func currentUmask() os.FileMode {
	old := syscall.Umask(0)
	syscall.Umask(old)
	return os.FileMode(old)
}
