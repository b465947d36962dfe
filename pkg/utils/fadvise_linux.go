// pkg/utils/fadvise_linux.go

package utils

import (
	"os"

	"golang.org/x/sys/unix"
)

// AdviseSequential tells the kernel that `f` will be read front to back.
func AdviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
