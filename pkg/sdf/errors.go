// pkg/sdf/errors.go

package sdf

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrCorrupt is matched by every *CorruptError.
	ErrCorrupt = errors.New("corrupt store")
	// ErrInvalidArgument reports a bad id, range or a destination that is too small.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoQuality       = errors.New("store has no quality data")
	ErrNoNames         = errors.New("store has no names")
)

// CorruptError describes a store whose files disagree with each other.
type CorruptError struct {
	Path   string
	Seq    int64 // -1 when no single sequence is at fault
	Reason string
}

func (e *CorruptError) Error() string {
	if e.Seq >= 0 {
		return fmt.Sprintf("corrupt store: %s (file %s, sequence %d)", e.Reason, e.Path, e.Seq)
	}
	return fmt.Sprintf("corrupt store: %s (file %s)", e.Reason, e.Path)
}

func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }

func corrupt(path string, seq int64, format string, args ...interface{}) error {
	return &CorruptError{Path: path, Seq: seq, Reason: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
