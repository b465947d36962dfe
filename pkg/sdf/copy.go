// pkg/sdf/copy.go

package sdf

import (
	"context"

	"github.com/pkg/errors"
)

// SequenceWriter is the append side shared by Writer and PairedWriter.
type SequenceWriter interface {
	StartSequence(name string) error
	Write(data []byte) error
	WriteQuality(q []byte) error
	EndSequence() error
	Close() error
}

// Copy appends sequences [start, end) of src to w. Names are carried over
// when src has them (label followed by suffix); quality is copied when
// quality is true, which needs src to have it. It returns the number of
// sequences copied.
func Copy(ctx context.Context, src SequencesReader, w SequenceWriter, start, end int64, quality bool) (int64, error) {
	if start < 0 || end < start || end > src.NumberSequences() {
		return 0, invalid("range [%d, %d) outside [0, %d)", start, end, src.NumberSequences())
	}
	if quality && !src.HasQuality() {
		return 0, ErrNoQuality
	}
	var copied int64
	for id := start; id < end; id++ {
		if copied&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return copied, err
			}
		}
		var name string
		if src.HasNames() {
			label, err := src.Name(id)
			if err != nil {
				return copied, err
			}
			suffix, err := src.NameSuffix(id)
			if err != nil {
				return copied, err
			}
			name = label + suffix
		}
		data, err := src.Read(id)
		if err != nil {
			return copied, err
		}
		if err = w.StartSequence(name); err != nil {
			return copied, err
		}
		if err = w.Write(data); err != nil {
			return copied, err
		}
		if quality {
			q, err := src.ReadQuality(id)
			if err != nil {
				return copied, err
			}
			if err = w.WriteQuality(q); err != nil {
				return copied, err
			}
		}
		if err = w.EndSequence(); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

// Split copies src into consecutive parts of at most per sequences each.
// create is called with the part number and the writer it returns is closed
// once the part is full. An empty src still yields one empty part. It
// returns the number of parts written.
func Split(ctx context.Context, src SequencesReader, per int64, quality bool, create func(part int) (SequenceWriter, error)) (int, error) {
	if per <= 0 {
		return 0, invalid("parts need at least one sequence, got %d", per)
	}
	total := src.NumberSequences()
	parts := 0
	for start := int64(0); start < total || parts == 0; start += per {
		w, err := create(parts)
		if err != nil {
			return parts, errors.Wrapf(err, "create part %d", parts)
		}
		end := min(start+per, total)
		n, err := Copy(ctx, src, w, start, end, quality)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return parts, errors.Wrapf(err, "part %d", parts)
		}
		logger.Debugf("part %d holds sequences [%d, %d)", parts, start, start+n)
		parts++
	}
	return parts, nil
}
