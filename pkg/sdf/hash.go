// pkg/sdf/hash.go

package sdf

import (
	"hash/crc32"
	"math/bits"
)

var mixTable [256]uint64

func init() {
	for i := range mixTable {
		z := uint64(i) + 0x9e3779b97f4a7c15
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		mixTable[i] = z ^ (z >> 31)
	}
}

// Hash is an order-sensitive rolling hash over byte runs and lengths. Each
// byte rotates the state by one bit and mixes in a table value, so feeding
// the same bytes in any number of pieces gives the same value, and hashes of
// consecutive ranges can be joined with CombineHash.
type Hash struct {
	h uint64
}

func (h *Hash) Bytes(b []byte) {
	v := h.h
	for _, c := range b {
		v = bits.RotateLeft64(v, 1) ^ mixTable[c]
	}
	h.h = v
}

func (h *Hash) Long(x int64) {
	v := h.h
	for s := 56; s >= 0; s -= 8 {
		v = bits.RotateLeft64(v, 1) ^ mixTable[byte(x>>uint(s))]
	}
	h.h = v
}

// Sequence feeds one whole sequence followed by its length.
func (h *Hash) Sequence(b []byte) {
	h.Bytes(b)
	h.Long(int64(len(b)))
}

func (h *Hash) Sum() uint64 { return h.h }

// CombineHash returns the hash of range a followed by range b, where b holds
// sequences sequences totalling bytes bytes.
func CombineHash(a, b uint64, sequences, bytes int64) uint64 {
	steps := (bytes + 8*sequences) & 63
	return bits.RotateLeft64(a, int(steps)) ^ b
}

// Checksum is the stored per-sequence check value: the low byte of CRC-32 (IEEE).
func Checksum(b []byte) byte {
	return byte(crc32.ChecksumIEEE(b))
}
