// pkg/sdf/paired.go

package sdf

import (
	"github.com/pkg/errors"

	"SeqStore/pkg/object"
)

// Paired-end reads are kept as two stores under one location, mate i of a
// pair at id i in each.
const (
	LeftDir  = "left"
	RightDir = "right"
)

// PairedLocations returns the locations of the two halves of a paired store.
func PairedLocations(location string) (left, right string) {
	return location + "/" + LeftDir, location + "/" + RightDir
}

// IsPaired reports whether storage holds a paired store instead of a plain one.
func IsPaired(storage object.ObjectStorage) bool {
	if _, err := storage.Head(MainIndexFile); err == nil {
		return false
	}
	_, err := storage.Head(LeftDir + "/" + MainIndexFile)
	return err == nil
}

type interleaved struct {
	left, right SequencesReader
}

// Interleave presents the two halves of a paired store as one reader where
// pair i is id 2i (left) followed by id 2i+1 (right). Both halves must hold
// the same number of sequences. Closing the result closes both.
func Interleave(left, right SequencesReader) (SequencesReader, error) {
	if left.NumberSequences() != right.NumberSequences() {
		return nil, invalid("paired halves hold %d and %d sequences", left.NumberSequences(), right.NumberSequences())
	}
	return &interleaved{left: left, right: right}, nil
}

func (p *interleaved) locate(id int64) (SequencesReader, int64, error) {
	if id < 0 || id >= p.NumberSequences() {
		return nil, 0, invalid("sequence id %d out of range [0, %d)", id, p.NumberSequences())
	}
	if id&1 == 0 {
		return p.left, id >> 1, nil
	}
	return p.right, id >> 1, nil
}

func (p *interleaved) NumberSequences() int64 { return 2 * p.left.NumberSequences() }

func (p *interleaved) HasQuality() bool { return p.left.HasQuality() && p.right.HasQuality() }

func (p *interleaved) HasNames() bool { return p.left.HasNames() && p.right.HasNames() }

func (p *interleaved) Identity() Identity {
	l, r := p.left.Identity(), p.right.Identity()
	return Identity{
		SdfID:    l.SdfID,
		Location: l.Location + "|" + r.SdfID.String() + "@" + r.Location,
		Start:    l.Start,
		End:      l.Start + p.NumberSequences(),
	}
}

func (p *interleaved) Length(id int64) (int64, error) {
	r, local, err := p.locate(id)
	if err != nil {
		return 0, err
	}
	return r.Length(local)
}

func (p *interleaved) Name(id int64) (string, error) {
	if !p.HasNames() {
		return "", ErrNoNames
	}
	r, local, err := p.locate(id)
	if err != nil {
		return "", err
	}
	return r.Name(local)
}

func (p *interleaved) NameSuffix(id int64) (string, error) {
	if !p.HasNames() {
		return "", ErrNoNames
	}
	r, local, err := p.locate(id)
	if err != nil {
		return "", err
	}
	return r.NameSuffix(local)
}

func (p *interleaved) Read(id int64) ([]byte, error) {
	r, local, err := p.locate(id)
	if err != nil {
		return nil, err
	}
	return r.Read(local)
}

func (p *interleaved) ReadInto(id int64, dst []byte) (int, error) {
	r, local, err := p.locate(id)
	if err != nil {
		return 0, err
	}
	return r.ReadInto(local, dst)
}

func (p *interleaved) ReadRange(id int64, dst []byte, start, length int64) (int, error) {
	r, local, err := p.locate(id)
	if err != nil {
		return 0, err
	}
	return r.ReadRange(local, dst, start, length)
}

func (p *interleaved) ReadQuality(id int64) ([]byte, error) {
	if !p.HasQuality() {
		return nil, ErrNoQuality
	}
	r, local, err := p.locate(id)
	if err != nil {
		return nil, err
	}
	return r.ReadQuality(local)
}

func (p *interleaved) ReadQualityInto(id int64, dst []byte) (int, error) {
	if !p.HasQuality() {
		return 0, ErrNoQuality
	}
	r, local, err := p.locate(id)
	if err != nil {
		return 0, err
	}
	return r.ReadQualityInto(local, dst)
}

func (p *interleaved) ReadQualityRange(id int64, dst []byte, start, length int64) (int, error) {
	if !p.HasQuality() {
		return 0, ErrNoQuality
	}
	r, local, err := p.locate(id)
	if err != nil {
		return 0, err
	}
	return r.ReadQualityRange(local, dst, start, length)
}

func (p *interleaved) SequenceDataChecksum(id int64) (byte, error) {
	r, local, err := p.locate(id)
	if err != nil {
		return 0, err
	}
	return r.SequenceDataChecksum(local)
}

// halves maps [start, end) to the left ids [(start+1)/2, (end+1)/2) and the
// right ids [start/2, end/2).
func (p *interleaved) halves(start, end int64) (ls, le, rs, re int64, err error) {
	if start < 0 || end < start || end > p.NumberSequences() {
		return 0, 0, 0, 0, invalid("range [%d, %d) outside [0, %d)", start, end, p.NumberSequences())
	}
	return (start + 1) / 2, (end + 1) / 2, start / 2, end / 2, nil
}

func (p *interleaved) LengthBetween(start, end int64) (int64, error) {
	ls, le, rs, re, err := p.halves(start, end)
	if err != nil {
		return 0, err
	}
	l, err := p.left.LengthBetween(ls, le)
	if err != nil {
		return 0, err
	}
	r, err := p.right.LengthBetween(rs, re)
	if err != nil {
		return 0, err
	}
	return l + r, nil
}

func (p *interleaved) SequenceLengths(start, end int64) ([]int64, error) {
	ls, le, rs, re, err := p.halves(start, end)
	if err != nil {
		return nil, err
	}
	left, err := p.left.SequenceLengths(ls, le)
	if err != nil {
		return nil, err
	}
	right, err := p.right.SequenceLengths(rs, re)
	if err != nil {
		return nil, err
	}
	lengths := make([]int64, 0, end-start)
	for id := start; id < end; id++ {
		if id&1 == 0 {
			lengths = append(lengths, left[id/2-ls])
		} else {
			lengths = append(lengths, right[id/2-rs])
		}
	}
	return lengths, nil
}

func (p *interleaved) Close() error {
	lerr := p.left.Close()
	rerr := p.right.Close()
	if lerr != nil {
		return errors.Wrap(lerr, "close left")
	}
	if rerr != nil {
		return errors.Wrap(rerr, "close right")
	}
	return nil
}

// PairedWriter alternates sequences between the two halves of a paired
// store: even sequences go left, odd ones right.
type PairedWriter struct {
	left, right *Writer
	cur         *Writer
	n           int64
}

// NewPairedWriter writes mates into left and right. Both halves share one
// SDF-ID so they can be told apart from unrelated stores.
func NewPairedWriter(left, right *Writer) *PairedWriter {
	right.SetSdfID(left.SdfID())
	return &PairedWriter{left: left, right: right}
}

// NumberPairs counts completed pairs.
func (p *PairedWriter) NumberPairs() int64 { return p.n / 2 }

func (p *PairedWriter) StartSequence(name string) error {
	p.cur = p.left
	if p.n&1 == 1 {
		p.cur = p.right
	}
	return p.cur.StartSequence(name)
}

func (p *PairedWriter) Write(data []byte) error {
	if p.cur == nil {
		return invalid("no sequence started")
	}
	return p.cur.Write(data)
}

func (p *PairedWriter) WriteQuality(q []byte) error {
	if p.cur == nil {
		return invalid("no sequence started")
	}
	return p.cur.WriteQuality(q)
}

func (p *PairedWriter) EndSequence() error {
	if p.cur == nil {
		return invalid("no sequence started")
	}
	if err := p.cur.EndSequence(); err != nil {
		return err
	}
	p.cur = nil
	p.n++
	return nil
}

// Close finishes both halves. A missing right mate is an error, but both
// halves are still closed.
func (p *PairedWriter) Close() error {
	lerr := p.left.Close()
	rerr := p.right.Close()
	if lerr != nil {
		return errors.Wrap(lerr, "close left")
	}
	if rerr != nil {
		return errors.Wrap(rerr, "close right")
	}
	if p.n&1 == 1 {
		return invalid("sequence %d has no mate", p.n-1)
	}
	return nil
}
