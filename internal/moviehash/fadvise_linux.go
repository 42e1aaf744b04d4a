//go:build linux

package moviehash

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseRandom tells the kernel that only the two ends of the file matter, so
// it skips sequential read-ahead. Failures are ignored.
func adviseRandom(file *os.File) {
	_ = unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_RANDOM)
}
