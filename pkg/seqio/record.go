// pkg/seqio/record.go

package seqio

import "github.com/pkg/errors"

// Record is one FASTA or FASTQ entry. Qual is nil for FASTA and holds
// phred values (not ASCII) for FASTQ.
type Record struct {
	Name string
	Seq  []byte
	Qual []byte
}

// Alphabet maps residues to the bytes kept in a store.
type Alphabet int

const (
	// Raw keeps residues as upper-cased ASCII.
	Raw Alphabet = iota
	// DNA stores N, A, C, G, T as 0..4; anything else becomes N.
	DNA
)

const phredOffset = 33

var dnaCode [256]byte

const dnaChars = "NACGT"

func init() {
	for i, c := range dnaChars {
		dnaCode[c] = byte(i)
		dnaCode[c+'a'-'A'] = byte(i)
	}
}

func (a Alphabet) String() string {
	if a == DNA {
		return "dna"
	}
	return "raw"
}

func ParseAlphabet(s string) (Alphabet, error) {
	switch s {
	case "raw", "":
		return Raw, nil
	case "dna":
		return DNA, nil
	}
	return Raw, errors.Errorf("unknown alphabet %q", s)
}

// Encode converts residues in place.
func (a Alphabet) Encode(seq []byte) {
	for i, c := range seq {
		switch a {
		case DNA:
			seq[i] = dnaCode[c]
		default:
			if c >= 'a' && c <= 'z' {
				seq[i] = c - 'a' + 'A'
			}
		}
	}
}

// Decode converts stored bytes back to printable residues in place.
func (a Alphabet) Decode(seq []byte) {
	if a != DNA {
		return
	}
	for i, c := range seq {
		if int(c) < len(dnaChars) {
			seq[i] = dnaChars[c]
		} else {
			seq[i] = 'N'
		}
	}
}
