// pkg/array/array.go

// Package array provides byte and int64 arrays addressed by int64 indices.
// Direct arrays are a single slice; chunked arrays split storage into
// fixed-size pages addressed by (index >> bits, index & mask).
package array

import "fmt"

// DefaultPageBits gives 1 MiB pages for chunked byte arrays.
const DefaultPageBits = 20

// DirectLimit is the largest length NewBytes/NewLongs back with a single slice.
const DirectLimit = 1 << 26

// ByteArray is a growable byte array with int64 indices.
type ByteArray interface {
	Length() int64
	Get(i int64) byte
	Set(i int64, v byte)
	Swap(i, j int64)
	// CopyIn copies src into the array starting at off.
	CopyIn(off int64, src []byte)
	// CopyOut fills dst from the array starting at off.
	CopyOut(off int64, dst []byte)
	// Extend grows the array by n zero bytes and returns the previous length.
	Extend(n int64) int64
	Release()
}

// LongIndex is a fixed-length int64 array with int64 indices.
type LongIndex interface {
	Length() int64
	Get(i int64) int64
	Set(i int64, v int64)
	Swap(i, j int64)
}

// NewBytes picks a direct or chunked byte array for the given length.
func NewBytes(length int64) ByteArray {
	if length <= DirectLimit {
		return NewDirectBytes(length)
	}
	return NewChunkedBytes(length, DefaultPageBits)
}

// NewLongs picks a direct or chunked int64 array for the given length.
func NewLongs(length int64) LongIndex {
	if length <= DirectLimit {
		return NewDirectLongs(length)
	}
	return NewChunkedLongs(length, DefaultPageBits)
}

func checkLength(length int64) {
	if length < 0 {
		panic(fmt.Sprintf("negative array length: %d", length))
	}
}
