// pkg/sdf/loader.go

package sdf

import (
	"context"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"

	"SeqStore/pkg/array"
	"SeqStore/pkg/compress"
	"SeqStore/pkg/object"
	"SeqStore/pkg/utils"
)

// Loader bulk-loads contiguous id ranges of a store. Each Loader opens its
// own file handles per call, so several loaders may work on disjoint ranges
// of the same store at once.
type Loader struct {
	st *store
}

func NewLoader(storage object.ObjectStorage) (*Loader, error) {
	st, err := openStore(storage)
	if err != nil {
		return nil, err
	}
	return &Loader{st}, nil
}

func (l *Loader) NumberSequences() int64 { return l.st.main.NumberSequences }

func (l *Loader) HasQuality() bool { return l.st.main.HasQuality }

// MainIndex returns the store metadata.
func (l *Loader) MainIndex() *MainIndex { return l.st.main }

func (l *Loader) checkRange(start, end int64) error {
	if start < 0 || end < start || end > l.st.main.NumberSequences {
		return invalid("range [%d, %d) outside [0, %d)", start, end, l.st.main.NumberSequences)
	}
	return nil
}

// LoadPositions fills positions[0..end-start] with the logical offsets of
// sequences start..end, the last one being the end of sequence end-1, and
// stores the recorded checksums of each sequence at its index relative to
// start. Checksum arrays may be nil.
func (l *Loader) LoadPositions(ctx context.Context, start, end int64, positions array.LongIndex,
	checksums, qualityChecksums array.ByteArray) error {
	if err := l.checkRange(start, end); err != nil {
		return err
	}
	if positions.Length() < end-start+1 {
		return invalid("positions hold %d entries, need %d", positions.Length(), end-start+1)
	}
	index, h := l.st.sequences, l.st.pointers
	for id := start; id < end; {
		if err := ctx.Err(); err != nil {
			return err
		}
		file, idx, err := index.Locate(id)
		if err != nil {
			return err
		}
		stop := utils.Min64(end, index.FirstSequence(file)+index.NumberSequences(file))
		cnt := stop - id
		f, err := openPointerFile(l.st.storage, index, h, sequenceArtifact, file)
		if err != nil {
			return err
		}
		_, err = h.ReadPointers(f, idx, idx+cnt, positions, id-start, index.DataOffset(file), checksums, qualityChecksums)
		if err == nil {
			err = h.ReadChecksums(f, idx+cnt, checksums, qualityChecksums, stop-1-start)
		}
		_ = f.Close()
		if err != nil {
			return errors.Wrapf(err, "load positions from %s", sequenceArtifact.pointerFile(file))
		}
		id = stop
	}
	last := index.TotalDataSize()
	if end < index.TotalNumberSequences() {
		file, idx, err := index.Locate(end)
		if err != nil {
			return err
		}
		f, err := openPointerFile(l.st.storage, index, h, sequenceArtifact, file)
		if err != nil {
			return err
		}
		p, err := h.ReadPointer(f, idx)
		_ = f.Close()
		if err != nil {
			return errors.Wrapf(err, "load positions from %s", sequenceArtifact.pointerFile(file))
		}
		last = index.DataOffset(file) + p
	}
	positions.Set(end-start, last)
	return nil
}

// LoadData appends the bytes of sequences [start, end) to dest and returns
// the content hash of the range. A nil dest only checks and hashes. positions come from LoadPositions. With
// verify the per-sequence checksums are compared against checksums,
// otherwise computed values are stored into it (when not nil).
func (l *Loader) LoadData(ctx context.Context, start, end int64, positions array.LongIndex, dest array.ByteArray,
	checksums array.ByteArray, verify bool) (uint64, error) {
	return l.load(ctx, sequenceArtifact, l.st.main.SequenceEncoding, start, end, positions, dest, checksums, verify)
}

// LoadQuality is LoadData for the quality values.
func (l *Loader) LoadQuality(ctx context.Context, start, end int64, positions array.LongIndex, dest array.ByteArray,
	checksums array.ByteArray, verify bool) (uint64, error) {
	if !l.st.main.HasQuality {
		return 0, ErrNoQuality
	}
	return l.load(ctx, qualityArtifact, l.st.main.QualityEncoding, start, end, positions, dest, checksums, verify)
}

// rangeLoader is the state of one load walk.
type rangeLoader struct {
	positions array.LongIndex
	sums      array.ByteArray
	verify    bool
	start     int64
	n         int64
	cur       int64
	pos       int64
	crc       uint32
	hash      Hash
	name      string
}

// finish closes every sequence that ends at or before the current position.
func (r *rangeLoader) finish() error {
	for r.cur < r.n && r.positions.Get(r.cur+1) <= r.pos {
		sum := byte(r.crc)
		r.hash.Long(r.positions.Get(r.cur+1) - r.positions.Get(r.cur))
		if r.verify {
			if stored := r.sums.Get(r.cur); stored != sum {
				return corrupt(r.name, r.start+r.cur, "checksum mismatch: stored %#02x, computed %#02x", stored, sum)
			}
		} else if r.sums != nil {
			r.sums.Set(r.cur, sum)
		}
		r.crc = 0
		r.cur++
	}
	return nil
}

func (r *rangeLoader) consume(b []byte) error {
	for len(b) > 0 {
		if err := r.finish(); err != nil {
			return err
		}
		take := int(utils.Min64(int64(len(b)), r.positions.Get(r.cur+1)-r.pos))
		r.crc = crc32.Update(r.crc, crc32.IEEETable, b[:take])
		r.hash.Bytes(b[:take])
		r.pos += int64(take)
		b = b[take:]
	}
	return nil
}

func (l *Loader) load(ctx context.Context, art artifact, enc compress.Encoding, start, end int64,
	positions array.LongIndex, dest array.ByteArray, sums array.ByteArray, verify bool) (uint64, error) {
	if err := l.checkRange(start, end); err != nil {
		return 0, err
	}
	n := end - start
	if positions.Length() < n+1 {
		return 0, invalid("positions hold %d entries, need %d", positions.Length(), n+1)
	}
	if verify && sums == nil {
		return 0, invalid("verifying load needs stored checksums")
	}
	index := l.st.sequences
	for k := int64(0); k < n; k++ {
		if positions.Get(k+1) < positions.Get(k) {
			return 0, corrupt(art.pointer, start+k, "pointers decrease")
		}
	}
	base, limit := positions.Get(0), positions.Get(n)
	if base < 0 || limit > index.TotalDataSize() {
		return 0, corrupt(art.pointer, start, "positions [%d, %d) outside data size %d", base, limit, index.TotalDataSize())
	}
	var destOff int64
	if dest != nil {
		destOff = dest.Extend(limit - base)
	}
	r := &rangeLoader{positions: positions, sums: sums, verify: verify, start: start, n: n, pos: base, name: art.data}
	if n == 0 {
		return r.hash.Sum(), nil
	}
	file, _, err := index.Locate(start)
	if err != nil {
		return 0, err
	}
	var buf []byte
	if limit > base {
		buf = utils.Alloc(loadBlockSize)
		defer utils.Free(buf)
	}
	for r.pos < limit {
		for index.DataOffset(file)+index.DataSize(file) <= r.pos {
			file++
		}
		if err := r.finish(); err != nil {
			return 0, err
		}
		r.name = art.dataFile(file)
		fileStart := index.DataOffset(file)
		in, err := openSequential(l.st.storage, r.name, enc, r.pos-fileStart)
		if err != nil {
			return 0, err
		}
		remaining := utils.Min64(fileStart+index.DataSize(file), limit) - r.pos
		for remaining > 0 {
			if err = ctx.Err(); err != nil {
				break
			}
			chunk := buf[:utils.Min64(remaining, int64(len(buf)))]
			if _, err = io.ReadFull(in, chunk); err != nil {
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					err = corrupt(r.name, -1, "data file shorter than index declares")
				} else {
					err = errors.Wrapf(err, "read %s", r.name)
				}
				break
			}
			if dest != nil {
				dest.CopyIn(destOff+r.pos-base, chunk)
			}
			if err = r.consume(chunk); err != nil {
				break
			}
			remaining -= int64(len(chunk))
		}
		_ = in.Close()
		if err != nil {
			return 0, err
		}
		file++
	}
	if err := r.finish(); err != nil {
		return 0, err
	}
	logger.Debugf("loaded %d sequences (%d bytes) from %s", n, limit-base, l.st.storage)
	return r.hash.Sum(), nil
}
