// pkg/sdf/pointer.go

package sdf

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"SeqStore/pkg/array"
	"SeqStore/pkg/object"
	"SeqStore/pkg/utils"
)

const pointerPage = 1 << 16 // entries per paged read

// PointerFileHandler decodes pointer files. Every entry is
// [checksum bytes][uint32 offset], where the checksum bytes of entry j
// belong to sequence j-1 of the same file, and a trailer after the last
// entry holds the checksums of the last sequence.
type PointerFileHandler struct {
	checksums int // 0 for names, 1 for sequences, 2 with quality
	entry     int64
}

func NewPointerFileHandler(checksums int) *PointerFileHandler {
	return &PointerFileHandler{checksums: checksums, entry: int64(4 + checksums)}
}

func sequencePointerHandler(hasQuality bool) *PointerFileHandler {
	if hasQuality {
		return NewPointerFileHandler(2)
	}
	return NewPointerFileHandler(1)
}

// EntrySize is the width of one pointer entry in bytes.
func (h *PointerFileHandler) EntrySize() int64 { return h.entry }

// FileSize is the expected size of a pointer file with n entries.
func (h *PointerFileHandler) FileSize(n int64) int64 {
	if n == 0 {
		return 0
	}
	return n*h.entry + int64(h.checksums)
}

func readFull(f object.File, buf []byte, off int64) error {
	n, err := f.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// ReadPointer returns the start offset of the idx-th sequence of a file.
func (h *PointerFileHandler) ReadPointer(f object.File, idx int64) (int64, error) {
	var buf [4]byte
	if err := readFull(f, buf[:], idx*h.entry+int64(h.checksums)); err != nil {
		return 0, errors.Wrapf(err, "read pointer %d", idx)
	}
	return int64(binary.BigEndian.Uint32(buf[:])), nil
}

// ReadPointers decodes entries [start, end) of a file into dest starting at
// destOff, adding bias to each offset. The checksums of every sequence but
// the last one read are stored alongside (sequence k of the read goes to
// index destOff+k). checksums and qualityChecksums may be nil.
func (h *PointerFileHandler) ReadPointers(f object.File, start, end int64, dest array.LongIndex, destOff, bias int64,
	checksums, qualityChecksums array.ByteArray) (int64, error) {
	if start >= end {
		return 0, nil
	}
	buf := make([]byte, h.entry*utils.Min64(end-start, pointerPage))
	for pos := start; pos < end; {
		cnt := utils.Min64(end-pos, pointerPage)
		page := buf[:cnt*h.entry]
		if err := readFull(f, page, pos*h.entry); err != nil {
			return pos - start, errors.Wrapf(err, "read pointers %d-%d", pos, pos+cnt)
		}
		for k := int64(0); k < cnt; k++ {
			e := page[k*h.entry:]
			i := destOff + pos - start + k
			dest.Set(i, bias+int64(binary.BigEndian.Uint32(e[h.checksums:])))
			if pos+k == start {
				continue
			}
			if h.checksums > 0 && checksums != nil {
				checksums.Set(i-1, e[0])
			}
			if h.checksums > 1 && qualityChecksums != nil {
				qualityChecksums.Set(i-1, e[1])
			}
		}
		pos += cnt
	}
	return end - start, nil
}

// ReadChecksums reads the checksum prefix at entry position e, which holds the
// checksums of sequence e-1: either entry e itself or the file trailer when e
// is the entry count. Values are stored at destIdx.
func (h *PointerFileHandler) ReadChecksums(f object.File, e int64, checksums, qualityChecksums array.ByteArray, destIdx int64) error {
	if h.checksums == 0 {
		return nil
	}
	var buf [2]byte
	if err := readFull(f, buf[:h.checksums], e*h.entry); err != nil {
		return errors.Wrapf(err, "read checksums at entry %d", e)
	}
	if checksums != nil {
		checksums.Set(destIdx, buf[0])
	}
	if h.checksums > 1 && qualityChecksums != nil {
		qualityChecksums.Set(destIdx, buf[1])
	}
	return nil
}

// pointerSpan is the placement of one sequence within its file.
type pointerSpan struct {
	start    int64
	length   int64
	checksum byte
	quality  byte
}

// Locate reads entry idx of a file holding n sequences and dataSize bytes,
// together with the next entry (or trailer), to place sequence id.
func (h *PointerFileHandler) Locate(f object.File, name string, id, idx, n, dataSize int64) (pointerSpan, error) {
	var span pointerSpan
	var buf [2 * 6]byte
	want := h.entry + int64(h.checksums)
	if idx+1 < n {
		want = 2 * h.entry
	}
	b := buf[:want]
	if err := readFull(f, b, idx*h.entry); err != nil {
		return span, errors.Wrapf(err, "read %s entry %d", name, idx)
	}
	span.start = int64(binary.BigEndian.Uint32(b[h.checksums:]))
	end := dataSize
	next := b[h.entry:]
	if idx+1 < n {
		end = int64(binary.BigEndian.Uint32(next[h.checksums:]))
	}
	if h.checksums > 0 {
		span.checksum = next[0]
	}
	if h.checksums > 1 {
		span.quality = next[1]
	}
	span.length = end - span.start
	if span.length < 0 || span.length > maxSequenceLength {
		return span, corrupt(name, id, "entry %d has length %d", idx, span.length)
	}
	return span, nil
}

// encodeEntry appends one pointer entry to dst.
func (h *PointerFileHandler) encodeEntry(dst []byte, prev [2]byte, offset uint32) []byte {
	dst = append(dst, prev[:h.checksums]...)
	return binary.BigEndian.AppendUint32(dst, offset)
}
