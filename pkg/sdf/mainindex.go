// pkg/sdf/mainindex.go

package sdf

import (
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"SeqStore/pkg/compress"
	"SeqStore/pkg/object"
	"SeqStore/pkg/utils"
)

const (
	mainMagic       = "SDFMAIN\x00"
	mainVersion     = 1
	maxHeaderString = 1 << 20
)

const (
	flagQuality = 1 << iota
	flagNames
	flagSuffixes
)

// MainIndex holds the store-wide metadata kept in mainIndex.
type MainIndex struct {
	Version          uint64
	SizeLimit        int64
	NumberSequences  int64
	TotalLength      int64
	MaxLength        int64
	MinLength        int64
	HasQuality       bool
	HasNames         bool
	HasSuffixes      bool
	SequenceEncoding compress.Encoding
	QualityEncoding  compress.Encoding
	BlockSize        int
	SdfID            uuid.UUID

	DataHash    uint64
	QualityHash uint64
	NameHash    uint64
	SuffixHash  uint64

	Comment     string
	CommandLine string
	ReadGroup   string
}

func (m *MainIndex) encode() []byte {
	size := len(mainMagic) + 8*6 + 3 + 4 + 16 + 8*4 +
		4*3 + len(m.Comment) + len(m.CommandLine) + len(m.ReadGroup) + 8
	b := utils.NewBuffer(uint32(size))
	b.Put([]byte(mainMagic))
	b.Put64(mainVersion)
	b.Put64(uint64(m.SizeLimit))
	b.Put64(uint64(m.NumberSequences))
	b.Put64(uint64(m.TotalLength))
	b.Put64(uint64(m.MaxLength))
	b.Put64(uint64(m.MinLength))
	var flags uint8
	if m.HasQuality {
		flags |= flagQuality
	}
	if m.HasNames {
		flags |= flagNames
	}
	if m.HasSuffixes {
		flags |= flagSuffixes
	}
	b.Put8(flags)
	b.Put8(uint8(m.SequenceEncoding))
	b.Put8(uint8(m.QualityEncoding))
	b.Put32(uint32(m.BlockSize))
	b.Put(m.SdfID[:])
	b.Put64(m.DataHash)
	b.Put64(m.QualityHash)
	b.Put64(m.NameHash)
	b.Put64(m.SuffixHash)
	for _, s := range []string{m.Comment, m.CommandLine, m.ReadGroup} {
		b.Put32(uint32(len(s)))
		b.Put([]byte(s))
	}
	var h Hash
	h.Bytes(b.Bytes()[:b.Offset()])
	b.Put64(h.Sum())
	return b.Bytes()
}

func decodeMainIndex(data []byte) (*MainIndex, error) {
	bad := func(format string, args ...interface{}) error {
		return corrupt(MainIndexFile, -1, format, args...)
	}
	fixed := len(mainMagic) + 8*6 + 3 + 4 + 16 + 8*4 + 4*3 + 8
	if len(data) < fixed {
		return nil, bad("header too short: %d bytes", len(data))
	}
	var h Hash
	h.Bytes(data[:len(data)-8])
	b := utils.ReadBuffer(data)
	if string(b.Get(len(mainMagic))) != mainMagic {
		return nil, bad("bad magic")
	}
	m := &MainIndex{Version: b.Get64()}
	if m.Version != mainVersion {
		return nil, bad("unsupported version %d", m.Version)
	}
	m.SizeLimit = int64(b.Get64())
	m.NumberSequences = int64(b.Get64())
	m.TotalLength = int64(b.Get64())
	m.MaxLength = int64(b.Get64())
	m.MinLength = int64(b.Get64())
	flags := b.Get8()
	m.HasQuality = flags&flagQuality != 0
	m.HasNames = flags&flagNames != 0
	m.HasSuffixes = flags&flagSuffixes != 0
	m.SequenceEncoding = compress.Encoding(b.Get8())
	m.QualityEncoding = compress.Encoding(b.Get8())
	m.BlockSize = int(b.Get32())
	copy(m.SdfID[:], b.Get(16))
	m.DataHash = b.Get64()
	m.QualityHash = b.Get64()
	m.NameHash = b.Get64()
	m.SuffixHash = b.Get64()
	var strs [3]string
	for i := range strs {
		if b.Left() < 4 {
			return nil, bad("truncated header")
		}
		l := int(b.Get32())
		if l > maxHeaderString || b.Left() < l+8 {
			return nil, bad("header string length %d out of range", l)
		}
		strs[i] = string(b.Get(l))
	}
	m.Comment, m.CommandLine, m.ReadGroup = strs[0], strs[1], strs[2]
	if b.Left() != 8 {
		return nil, bad("%d trailing bytes in header", b.Left()-8)
	}
	if b.Get64() != h.Sum() {
		return nil, bad("header hash mismatch")
	}
	if m.NumberSequences < 0 || m.TotalLength < 0 || m.MinLength > m.MaxLength && m.NumberSequences > 0 {
		return nil, bad("inconsistent totals")
	}
	if compress.NewCompressor(m.SequenceEncoding) == nil || compress.NewCompressor(m.QualityEncoding) == nil {
		return nil, bad("unknown encoding")
	}
	return m, nil
}

// ReadMainIndex loads and validates the main index of a store.
func ReadMainIndex(store object.ObjectStorage) (*MainIndex, error) {
	r, err := store.Get(MainIndexFile, 0, -1)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", MainIndexFile)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", MainIndexFile)
	}
	return decodeMainIndex(data)
}

// Write stores the main index.
func (m *MainIndex) Write(store object.ObjectStorage) error {
	return writeFile(store, MainIndexFile, m.encode())
}

func writeFile(store object.ObjectStorage, name string, data []byte) error {
	w, err := store.Put(name)
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}
	if _, err = w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "write %s", name)
	}
	return errors.Wrapf(w.Close(), "close %s", name)
}
