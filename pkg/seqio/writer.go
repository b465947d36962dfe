// pkg/seqio/writer.go

package seqio

import (
	"bufio"
	"io"
)

// Writer emits FASTA, or FASTQ for records that carry quality.
type Writer struct {
	w     *bufio.Writer
	width int
}

// NewWriter wraps w. FASTA sequence lines are wrapped at width; 0 means no wrapping.
func NewWriter(w io.Writer, width int) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 1<<16), width: width}
}

func (w *Writer) Write(rec *Record) error {
	if rec.Qual != nil {
		return w.writeFastq(rec)
	}
	_ = w.w.WriteByte('>')
	_, _ = w.w.WriteString(rec.Name)
	_ = w.w.WriteByte('\n')
	seq := rec.Seq
	for len(seq) > 0 {
		n := len(seq)
		if w.width > 0 && n > w.width {
			n = w.width
		}
		_, _ = w.w.Write(seq[:n])
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
		seq = seq[n:]
	}
	return nil
}

func (w *Writer) writeFastq(rec *Record) error {
	_ = w.w.WriteByte('@')
	_, _ = w.w.WriteString(rec.Name)
	_ = w.w.WriteByte('\n')
	_, _ = w.w.Write(rec.Seq)
	_, _ = w.w.WriteString("\n+\n")
	for _, q := range rec.Qual {
		_ = w.w.WriteByte(q + phredOffset)
	}
	return w.w.WriteByte('\n')
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}
