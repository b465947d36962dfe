// pkg/sdf/writer.go

package sdf

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"SeqStore/pkg/compress"
	"SeqStore/pkg/object"
)

// maximum stored quality value
const maxQuality = 63

// WriterConfig controls the layout of a new store.
type WriterConfig struct {
	SizeLimit  int64 // bytes per data file
	HasQuality bool
	HasNames   bool
	Encoding   compress.Encoding // sequence and quality data files
	BlockSize  int               // raw bytes per compressed frame
}

func (c *WriterConfig) check() error {
	if c.SizeLimit == 0 {
		c.SizeLimit = DefaultSizeLimit
	}
	if c.SizeLimit < MinSizeLimit || c.SizeLimit > MaxSizeLimit {
		return invalid("size limit %d outside [%d, %d]", c.SizeLimit, MinSizeLimit, int64(MaxSizeLimit))
	}
	if compress.NewCompressor(c.Encoding) == nil {
		return invalid("unknown encoding %s", c.Encoding)
	}
	if c.BlockSize <= 0 {
		c.BlockSize = compress.DefaultBlockSize
	}
	return nil
}

const (
	stateUnstarted = iota
	stateWriting
	stateBetween
	stateFinished
)

// Writer creates a store by appending sequences in id order. Files roll over
// at the configured size limit on sequence boundaries. A Writer owns its
// directory exclusively and is not safe for concurrent use.
type Writer struct {
	storage object.ObjectStorage
	conf    WriterConfig
	main    MainIndex
	state   int

	sequences   *DataFileIndex
	nameIndex   *DataFileIndex
	suffixIndex *DataFileIndex
	seq         *FilePair
	names       *NameFilePair
	suffixes    *NameFilePair
	handler     nameHandler

	label     string
	suffix    string
	length    int64
	qlength   int64
	clipped   []byte
	anySuffix bool

	dataHash    Hash
	qualityHash Hash
	nameHash    Hash
	suffixHash  Hash
}

// NewWriter prepares storage for a new store.
func NewWriter(storage object.ObjectStorage, conf *WriterConfig) (*Writer, error) {
	c := *conf
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := storage.Create(); err != nil {
		return nil, errors.Wrapf(err, "create %s", storage)
	}
	w := &Writer{
		storage:     storage,
		conf:        c,
		sequences:   newDataFileIndex(SequenceIndexFile),
		nameIndex:   newDataFileIndex(NameIndexFile),
		suffixIndex: newDataFileIndex(SuffixIndexFile),
	}
	w.main = MainIndex{
		Version:          mainVersion,
		SizeLimit:        c.SizeLimit,
		HasQuality:       c.HasQuality,
		HasNames:         c.HasNames,
		SequenceEncoding: c.Encoding,
		QualityEncoding:  c.Encoding,
		BlockSize:        c.BlockSize,
		SdfID:            uuid.New(),
	}
	return w, nil
}

func (w *Writer) SetSdfID(id uuid.UUID)   { w.main.SdfID = id }
func (w *Writer) SetComment(s string)     { w.main.Comment = s }
func (w *Writer) SetCommandLine(s string) { w.main.CommandLine = s }
func (w *Writer) SetReadGroup(s string)   { w.main.ReadGroup = s }
func (w *Writer) SdfID() uuid.UUID        { return w.main.SdfID }
func (w *Writer) NumberSequences() int64  { return w.main.NumberSequences }
func (w *Writer) HasQuality() bool        { return w.conf.HasQuality }

func (w *Writer) rollSequences() error {
	if w.seq != nil {
		if err := w.seq.Close(); err != nil {
			return err
		}
		if err := w.sequences.add(w.seq.NumberSequences(), w.seq.DataSize()); err != nil {
			return err
		}
		w.seq = nil
	}
	p, err := newFilePair(w.storage, w.sequences.NumberEntries(), &w.conf)
	if err != nil {
		return err
	}
	w.seq = p
	return nil
}

// StartSequence begins a new sequence with the given name; the name is
// ignored when the store keeps no names.
func (w *Writer) StartSequence(name string) error {
	switch w.state {
	case stateWriting:
		return invalid("sequence %d not ended", w.main.NumberSequences)
	case stateFinished:
		return invalid("writer is closed")
	}
	if w.conf.HasNames {
		label, suffix, err := w.handler.split(name)
		if err != nil {
			return err
		}
		w.label, w.suffix = label, suffix
	}
	ok := false
	if w.seq != nil {
		var err error
		if ok, err = w.seq.MarkNextSequence(); err != nil {
			return err
		}
	}
	if !ok {
		if err := w.rollSequences(); err != nil {
			return err
		}
		if _, err := w.seq.MarkNextSequence(); err != nil {
			return err
		}
	}
	w.state = stateWriting
	w.length, w.qlength = 0, 0
	return nil
}

// moveSequence carries the open sequence to a fresh file.
func (w *Writer) moveSequence() error {
	data, quality := w.seq.AbortSequence()
	if err := w.rollSequences(); err != nil {
		return err
	}
	if _, err := w.seq.MarkNextSequence(); err != nil {
		return err
	}
	logger.Debugf("moved sequence %d (%d bytes so far) to %s", w.main.NumberSequences, len(data), SequenceDataFile(w.seq.file))
	w.seq.Write(data)
	w.seq.WriteQuality(quality)
	return nil
}

func (w *Writer) checkWriting(have, more int64) error {
	if w.state != stateWriting {
		return invalid("no sequence started")
	}
	if have+more > maxSequenceLength {
		return invalid("sequence %d longer than %d bytes", w.main.NumberSequences, int64(maxSequenceLength))
	}
	return nil
}

// Write appends bytes to the current sequence.
func (w *Writer) Write(data []byte) error {
	if err := w.checkWriting(w.length, int64(len(data))); err != nil {
		return err
	}
	if !w.seq.Write(data) {
		if err := w.moveSequence(); err != nil {
			return err
		}
		w.seq.Write(data)
	}
	w.dataHash.Bytes(data)
	w.length += int64(len(data))
	return nil
}

// WriteQuality appends quality values to the current sequence, clipping them at 63.
func (w *Writer) WriteQuality(q []byte) error {
	if !w.conf.HasQuality {
		return ErrNoQuality
	}
	if err := w.checkWriting(w.qlength, int64(len(q))); err != nil {
		return err
	}
	w.clipped = append(w.clipped[:0], q...)
	for i, v := range w.clipped {
		if v > maxQuality {
			w.clipped[i] = maxQuality
		}
	}
	if !w.seq.WriteQuality(w.clipped) {
		if err := w.moveSequence(); err != nil {
			return err
		}
		w.seq.WriteQuality(w.clipped)
	}
	w.qualityHash.Bytes(w.clipped)
	w.qlength += int64(len(q))
	return nil
}

// EndSequence completes the current sequence.
func (w *Writer) EndSequence() error {
	if w.state != stateWriting {
		return invalid("no sequence started")
	}
	id := w.main.NumberSequences
	if w.conf.HasQuality && w.qlength != w.length {
		return invalid("sequence %d has %d bases but %d quality values", id, w.length, w.qlength)
	}
	if w.conf.HasNames {
		label, err := w.writeName(&w.names, w.nameIndex, nameArtifact, toLatin1(w.label))
		if err != nil {
			return err
		}
		w.nameHash.Sequence(label)
		suffix, err := w.writeName(&w.suffixes, w.suffixIndex, suffixArtifact, toLatin1(w.suffix))
		if err != nil {
			return err
		}
		w.suffixHash.Sequence(suffix)
		if len(suffix) > 0 {
			w.anySuffix = true
		}
	}
	w.dataHash.Long(w.length)
	if w.conf.HasQuality {
		w.qualityHash.Long(w.length)
	}
	m := &w.main
	if id == 0 || w.length > m.MaxLength {
		m.MaxLength = w.length
	}
	if id == 0 || w.length < m.MinLength {
		m.MinLength = w.length
	}
	m.TotalLength += w.length
	m.NumberSequences++
	w.state = stateBetween
	return nil
}

func (w *Writer) writeName(pair **NameFilePair, index *DataFileIndex, art artifact, name []byte) ([]byte, error) {
	if *pair != nil {
		ok, err := (*pair).WriteName(name)
		if err != nil || ok {
			return name, err
		}
	}
	if err := w.closeNames(pair, index); err != nil {
		return nil, err
	}
	p, err := newNameFilePair(w.storage, art, index.NumberEntries(), w.conf.SizeLimit)
	if err != nil {
		return nil, err
	}
	*pair = p
	if ok, err := p.WriteName(name); err != nil || ok {
		return name, err
	}
	return p.ForceWriteName(name)
}

func (w *Writer) closeNames(pair **NameFilePair, index *DataFileIndex) error {
	p := *pair
	if p == nil {
		return nil
	}
	*pair = nil
	if err := p.Close(); err != nil {
		return err
	}
	return index.add(p.count, p.dataSize)
}

// Close ends any open sequence, closes every file and writes the indexes and
// the main index. The store is readable only after Close returns nil.
func (w *Writer) Close() error {
	if w.state == stateFinished {
		return nil
	}
	if w.state == stateWriting {
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	w.state = stateFinished
	if w.seq != nil {
		if err := w.seq.Close(); err != nil {
			return err
		}
		if err := w.sequences.add(w.seq.NumberSequences(), w.seq.DataSize()); err != nil {
			return err
		}
		w.seq = nil
	}
	if err := w.sequences.WriteTo(w.storage); err != nil {
		return err
	}
	if w.conf.HasNames {
		if err := w.closeNames(&w.names, w.nameIndex); err != nil {
			return err
		}
		if err := w.closeNames(&w.suffixes, w.suffixIndex); err != nil {
			return err
		}
		if err := w.nameIndex.WriteTo(w.storage); err != nil {
			return err
		}
		if w.anySuffix {
			if err := w.suffixIndex.WriteTo(w.storage); err != nil {
				return err
			}
		} else if err := w.removeSuffixes(); err != nil {
			return err
		}
	}
	m := &w.main
	m.HasSuffixes = w.anySuffix
	m.DataHash = w.dataHash.Sum()
	if w.conf.HasQuality {
		m.QualityHash = w.qualityHash.Sum()
	}
	if w.conf.HasNames {
		m.NameHash = w.nameHash.Sum()
		if w.anySuffix {
			m.SuffixHash = w.suffixHash.Sum()
		}
	}
	if err := m.Write(w.storage); err != nil {
		return err
	}
	logger.Infof("wrote %d sequences (%d bytes) in %d files to %s", m.NumberSequences, m.TotalLength,
		w.sequences.NumberEntries(), w.storage)
	return nil
}

func (w *Writer) removeSuffixes() error {
	for i := 0; i < w.suffixIndex.NumberEntries(); i++ {
		for _, name := range []string{SuffixDataFile(i), SuffixPointerFile(i)} {
			if err := w.storage.Delete(name); err != nil {
				return errors.Wrapf(err, "remove %s", name)
			}
		}
	}
	return nil
}
