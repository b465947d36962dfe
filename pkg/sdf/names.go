// pkg/sdf/names.go

package sdf

import (
	"fmt"
	"unicode"
)

const (
	MaxNameLength = 240
	maxWarnings   = 5
)

// nameHandler turns raw sequence names into label and suffix.
type nameHandler struct {
	unnamed int64
	tooLong int64
}

func validNameChar(c byte, first bool) bool {
	if c < '!' || c > '~' {
		return false
	}
	return !first || (c != '*' && c != '=' && c != '@')
}

// split separates the label (up to the first whitespace) from the suffix,
// which keeps its leading whitespace. Empty names are numbered and labels
// longer than MaxNameLength spill into the suffix.
func (h *nameHandler) split(name string) (string, string, error) {
	if name == "" {
		name = fmt.Sprintf("Unnamed_sequence_%d", h.unnamed)
		if h.unnamed < maxWarnings {
			logger.Warnf("sequence with no name was given name %s", name)
		} else if h.unnamed == maxWarnings {
			logger.Warnf("subsequent warnings about unnamed sequences will not be shown")
		}
		h.unnamed++
	}
	label, suffix := name, ""
	for i, r := range name {
		if unicode.IsSpace(r) {
			label, suffix = name[:i], name[i:]
			break
		}
	}
	for i := 0; i < len(label); i++ {
		if !validNameChar(label[i], i == 0) {
			return "", "", invalid("sequence name %q contains invalid characters", label)
		}
	}
	if len(label) > MaxNameLength {
		if h.tooLong < maxWarnings {
			logger.Warnf("sequence name %s longer than %d characters was truncated", label, MaxNameLength)
		}
		h.tooLong++
		suffix = label[MaxNameLength:] + suffix
		label = label[:MaxNameLength]
	}
	return label, suffix, nil
}

// toLatin1 encodes s as ISO-8859-1; unrepresentable characters become '?'.
func toLatin1(s string) []byte {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0:
			b = append(b, ' ')
		case r > 0xff:
			b = append(b, '?')
		default:
			b = append(b, byte(r))
		}
	}
	return b
}
