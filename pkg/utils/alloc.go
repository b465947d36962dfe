// pkg/utils/alloc.go

package utils

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

const minPoolBits = 12 // 4 KiB
const maxPoolBits = 27 // 128 MiB

var pools [maxPoolBits + 1]*sync.Pool
var used int64

func init() {
	for i := minPoolBits; i <= maxPoolBits; i++ {
		size := 1 << i
		pools[i] = &sync.Pool{
			New: func() interface{} {
				b := make([]byte, size)
				return &b
			},
		}
	}
}

func poolIndex(size int) int {
	if size <= 1<<minPoolBits {
		return minPoolBits
	}
	return bits.Len(uint(size - 1))
}

// Alloc returns a zeroed slice of `size` bytes, backed by a pooled buffer when it fits.
func Alloc(size int) []byte {
	if size < 0 {
		panic("negative size")
	}
	atomic.AddInt64(&used, int64(size))
	idx := poolIndex(size)
	if idx > maxPoolBits {
		return make([]byte, size)
	}
	b := *pools[idx].Get().(*[]byte)
	b = b[:size]
	clear(b)
	return b
}

// Free returns a buffer obtained from Alloc to its pool.
func Free(b []byte) {
	atomic.AddInt64(&used, -int64(len(b)))
	c := cap(b)
	if c < 1<<minPoolBits || c&(c-1) != 0 {
		return
	}
	idx := bits.Len(uint(c)) - 1
	if idx > maxPoolBits {
		return
	}
	b = b[:c]
	pools[idx].Put(&b)
}

// AllocMemory returns the bytes handed out by Alloc and not freed yet.
func AllocMemory() int64 {
	return atomic.LoadInt64(&used)
}
