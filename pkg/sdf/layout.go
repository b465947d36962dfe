// pkg/sdf/layout.go

package sdf

import "strconv"

const (
	MainIndexFile     = "mainIndex"
	SequenceIndexFile = "sequenceIndex0"
	NameIndexFile     = "nameIndex0"
	SuffixIndexFile   = "suffixIndex0"
)

// artifact names the numbered files holding one kind of per-sequence value.
type artifact struct {
	data    string
	pointer string
	index   string
}

var (
	sequenceArtifact = artifact{"seqdata", "seqpointer", SequenceIndexFile}
	// quality shares pointers and index with the sequence data
	qualityArtifact = artifact{"qualitydata", "seqpointer", SequenceIndexFile}
	nameArtifact    = artifact{"namedata", "namepointer", NameIndexFile}
	suffixArtifact  = artifact{"suffixdata", "suffixpointer", SuffixIndexFile}
)

func (a artifact) dataFile(n int) string    { return a.data + strconv.Itoa(n) }
func (a artifact) pointerFile(n int) string { return a.pointer + strconv.Itoa(n) }

func SequenceDataFile(n int) string    { return sequenceArtifact.dataFile(n) }
func SequencePointerFile(n int) string { return sequenceArtifact.pointerFile(n) }
func QualityDataFile(n int) string     { return qualityArtifact.dataFile(n) }
func NameDataFile(n int) string        { return nameArtifact.dataFile(n) }
func NamePointerFile(n int) string     { return nameArtifact.pointerFile(n) }
func SuffixDataFile(n int) string      { return suffixArtifact.dataFile(n) }
func SuffixPointerFile(n int) string   { return suffixArtifact.pointerFile(n) }
