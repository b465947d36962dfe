// pkg/sdf/concat.go

package sdf

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

type concatReader struct {
	readers []SequencesReader
	starts  []int64 // starts[i] is the first id served by readers[i]; last entry is the total
}

// Concat presents several readers as one id space, in order. Quality and
// names are available only when every reader has them. Closing the result
// closes all readers.
func Concat(readers ...SequencesReader) (SequencesReader, error) {
	if len(readers) == 0 {
		return nil, invalid("nothing to concatenate")
	}
	c := &concatReader{readers: readers, starts: make([]int64, len(readers)+1)}
	for i, r := range readers {
		c.starts[i+1] = c.starts[i] + r.NumberSequences()
	}
	return c, nil
}

func (c *concatReader) locate(id int64) (SequencesReader, int64, error) {
	if id < 0 || id >= c.NumberSequences() {
		return nil, 0, invalid("sequence id %d out of range [0, %d)", id, c.NumberSequences())
	}
	i := sort.Search(len(c.readers), func(i int) bool { return c.starts[i+1] > id })
	return c.readers[i], id - c.starts[i], nil
}

func (c *concatReader) NumberSequences() int64 { return c.starts[len(c.readers)] }

func (c *concatReader) HasQuality() bool {
	for _, r := range c.readers {
		if !r.HasQuality() {
			return false
		}
	}
	return true
}

func (c *concatReader) HasNames() bool {
	for _, r := range c.readers {
		if !r.HasNames() {
			return false
		}
	}
	return true
}

func (c *concatReader) Identity() Identity {
	locs := make([]string, len(c.readers))
	for i, r := range c.readers {
		id := r.Identity()
		locs[i] = id.SdfID.String() + "@" + id.Location
	}
	return Identity{Location: strings.Join(locs, ";"), End: c.NumberSequences()}
}

func (c *concatReader) Length(id int64) (int64, error) {
	r, local, err := c.locate(id)
	if err != nil {
		return 0, err
	}
	return r.Length(local)
}

func (c *concatReader) Name(id int64) (string, error) {
	if !c.HasNames() {
		return "", ErrNoNames
	}
	r, local, err := c.locate(id)
	if err != nil {
		return "", err
	}
	return r.Name(local)
}

func (c *concatReader) NameSuffix(id int64) (string, error) {
	if !c.HasNames() {
		return "", ErrNoNames
	}
	r, local, err := c.locate(id)
	if err != nil {
		return "", err
	}
	return r.NameSuffix(local)
}

func (c *concatReader) Read(id int64) ([]byte, error) {
	r, local, err := c.locate(id)
	if err != nil {
		return nil, err
	}
	return r.Read(local)
}

func (c *concatReader) ReadInto(id int64, dst []byte) (int, error) {
	r, local, err := c.locate(id)
	if err != nil {
		return 0, err
	}
	return r.ReadInto(local, dst)
}

func (c *concatReader) ReadRange(id int64, dst []byte, start, length int64) (int, error) {
	r, local, err := c.locate(id)
	if err != nil {
		return 0, err
	}
	return r.ReadRange(local, dst, start, length)
}

func (c *concatReader) ReadQuality(id int64) ([]byte, error) {
	if !c.HasQuality() {
		return nil, ErrNoQuality
	}
	r, local, err := c.locate(id)
	if err != nil {
		return nil, err
	}
	return r.ReadQuality(local)
}

func (c *concatReader) ReadQualityInto(id int64, dst []byte) (int, error) {
	if !c.HasQuality() {
		return 0, ErrNoQuality
	}
	r, local, err := c.locate(id)
	if err != nil {
		return 0, err
	}
	return r.ReadQualityInto(local, dst)
}

func (c *concatReader) ReadQualityRange(id int64, dst []byte, start, length int64) (int, error) {
	if !c.HasQuality() {
		return 0, ErrNoQuality
	}
	r, local, err := c.locate(id)
	if err != nil {
		return 0, err
	}
	return r.ReadQualityRange(local, dst, start, length)
}

func (c *concatReader) SequenceDataChecksum(id int64) (byte, error) {
	r, local, err := c.locate(id)
	if err != nil {
		return 0, err
	}
	return r.SequenceDataChecksum(local)
}

// spans calls fn for each reader overlapping [start, end) with reader-local bounds.
func (c *concatReader) spans(start, end int64, fn func(r SequencesReader, s, e int64) error) error {
	if start < 0 || end < start || end > c.NumberSequences() {
		return invalid("range [%d, %d) outside [0, %d)", start, end, c.NumberSequences())
	}
	for i, r := range c.readers {
		s, e := max(start, c.starts[i]), min(end, c.starts[i+1])
		if s >= e {
			continue
		}
		if err := fn(r, s-c.starts[i], e-c.starts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *concatReader) LengthBetween(start, end int64) (int64, error) {
	var total int64
	err := c.spans(start, end, func(r SequencesReader, s, e int64) error {
		l, err := r.LengthBetween(s, e)
		total += l
		return err
	})
	return total, err
}

func (c *concatReader) SequenceLengths(start, end int64) ([]int64, error) {
	var lengths []int64
	err := c.spans(start, end, func(r SequencesReader, s, e int64) error {
		l, err := r.SequenceLengths(s, e)
		lengths = append(lengths, l...)
		return err
	})
	if err != nil {
		return nil, err
	}
	if lengths == nil {
		lengths = []int64{}
	}
	return lengths, nil
}

func (c *concatReader) Close() error {
	var first error
	for _, r := range c.readers {
		if err := r.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "close %s", r.Identity().Location)
		}
	}
	return first
}
