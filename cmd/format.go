// cmd/format.go

package main

import (
	"bytes"
	crand "crypto/rand"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"SeqStore/pkg/compress"
	"SeqStore/pkg/object"
	"SeqStore/pkg/sdf"
	"SeqStore/pkg/seqio"
	"SeqStore/pkg/utils"
)

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

func randSeq(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

func doTesting(store object.ObjectStorage, key string, data []byte) error {
	w, err := store.Put(key)
	if err == nil {
		_, err = w.Write(data)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return errors.Wrap(err, "failed to put")
	}
	p, err := store.Get(key, 0, -1)
	if err != nil {
		return errors.Wrap(err, "failed to get")
	}
	data2, err := io.ReadAll(p)
	_ = p.Close()
	if err != nil {
		return err
	}
	if !bytes.Equal(data, data2) {
		return errors.New("read wrong data")
	}
	if err = store.Delete(key); err != nil {
		// it's OK to don't have deletion permission
		logger.Warnf("failed to delete %s: %s", key, err)
	}
	return nil
}

// test checks that the store directory accepts writes before any sequence is read.
func test(store object.ObjectStorage) error {
	key := ".check-" + randSeq(10)
	data := make([]byte, 100)
	_, _ = crand.Read(data)
	var err error
	for i := 0; i < 3; i++ {
		err = doTesting(store, key, data)
		if err == nil {
			return nil
		}
		time.Sleep(time.Second * time.Duration(i*3+1))
	}
	return err
}

// openStorage opens a store location and applies the bandwidth flags (Mbps).
func openStorage(c *cli.Context, uri string) (object.ObjectStorage, error) {
	blob, err := object.CreateStorage(uri)
	if err != nil {
		return nil, err
	}
	up, down := c.Int64("upload-limit"), c.Int64("download-limit")
	if up > 0 || down > 0 {
		blob = object.NewLimited(blob, up*1e6/8, down*1e6/8)
	}
	return blob, nil
}

func bandwidthFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:  "upload-limit",
			Usage: "bandwidth limit for writing store files in Mbps (0 means unlimited)",
		},
		&cli.Int64Flag{
			Name:  "download-limit",
			Usage: "bandwidth limit for reading store files in Mbps (0 means unlimited)",
		},
	}
}

// anyFastq reports whether the first record of any input carries quality.
// stdin serves "-"; it is only peeked so the import still sees every record.
func anyFastq(inputs []string, stdin *seqio.Reader) (bool, error) {
	for _, in := range inputs {
		r := stdin
		if in != "-" {
			var err error
			if r, err = seqio.Open(in); err != nil {
				return false, err
			}
		}
		_, err := r.Peek()
		fastq := r.IsFastq()
		if in != "-" {
			_ = r.Close()
		}
		if err != nil && err != io.EOF {
			return false, errors.Wrapf(err, "read %s", in)
		}
		if fastq {
			return true, nil
		}
	}
	return false, nil
}

// storeHalves expands a paired store location into its two halves.
func storeHalves(c *cli.Context, location string) ([]string, error) {
	blob, err := openStorage(c, location)
	if err != nil {
		return nil, err
	}
	defer object.Shutdown(blob)
	if sdf.IsPaired(blob) {
		l, r := sdf.PairedLocations(location)
		return []string{l, r}, nil
	}
	return []string{location}, nil
}

// prepareStore makes location ready for a new store, removing an existing
// one (plain or paired) when --force is given.
func prepareStore(c *cli.Context, location string) {
	blob, err := openStorage(c, location)
	if err != nil {
		logger.Fatalf("open %s: %s", location, err)
	}
	defer object.Shutdown(blob)
	if _, err = blob.Head(sdf.MainIndexFile); err == nil || sdf.IsPaired(blob) {
		if !c.Bool("force") {
			logger.Fatalf("%s already holds a store, use --force to overwrite", blob)
		}
		halves, err := storeHalves(c, location)
		if err != nil {
			logger.Fatalf("open %s: %s", location, err)
		}
		var removed int
		for _, h := range halves {
			hb, err := openStorage(c, h)
			if err != nil {
				logger.Fatalf("open %s: %s", h, err)
			}
			objs, err := hb.List()
			if err != nil {
				logger.Fatalf("list %s: %s", hb, err)
			}
			for _, o := range objs {
				if err = hb.Delete(o.Key()); err != nil {
					logger.Fatalf("remove %s: %s", o.Key(), err)
				}
			}
			removed += len(objs)
			object.Shutdown(hb)
		}
		logger.Warnf("Existing store %s is overwritten (%d files removed)", blob, removed)
	}
	if err = blob.Create(); err != nil {
		logger.Fatalf("create %s: %s", blob, err)
	}
	if err = test(blob); err != nil {
		logger.Fatalf("Storage %s is not configured correctly: %s", blob, err)
	}
}

func newWriter(c *cli.Context, location string, conf *sdf.WriterConfig) (*sdf.Writer, object.ObjectStorage) {
	blob, err := openStorage(c, location)
	if err != nil {
		logger.Fatalf("open %s: %s", location, err)
	}
	w, err := sdf.NewWriter(blob, conf)
	if err != nil {
		logger.Fatalf("%s", err)
	}
	return w, blob
}

func format(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 2 {
		logger.Fatalf("STORE and at least one INPUT are required")
	}
	location := c.Args().Get(0)
	inputs := c.Args().Slice()[1:]
	paired := c.Bool("paired")
	if paired && len(inputs)%2 != 0 {
		logger.Fatalf("--paired needs LEFT and RIGHT inputs, got %d inputs", len(inputs))
	}

	enc, err := compress.ParseEncoding(c.String("compress"))
	if err != nil {
		logger.Fatalf("%s", err)
	}
	alphabet, err := seqio.ParseAlphabet(c.String("alphabet"))
	if err != nil {
		logger.Fatalf("%s", err)
	}
	var stdin *seqio.Reader
	for _, in := range inputs {
		if in == "-" {
			if stdin != nil {
				logger.Fatalf("stdin can only be read once")
			}
			stdin = seqio.NewReader(os.Stdin)
		}
	}
	quality := false
	if !c.Bool("no-quality") {
		if quality, err = anyFastq(inputs, stdin); err != nil {
			logger.Fatalf("%s", err)
		}
	}
	open := func(in string) *seqio.Reader {
		if in == "-" {
			return stdin
		}
		r, err := seqio.Open(in)
		if err != nil {
			logger.Fatalf("open %s: %s", in, err)
		}
		return r
	}

	prepareStore(c, location)
	conf := &sdf.WriterConfig{
		SizeLimit:  c.Int64("size-limit"),
		HasQuality: quality,
		HasNames:   !c.Bool("no-names"),
		Encoding:   enc,
		BlockSize:  c.Int("block-size") << 10,
	}
	var w sdf.SequenceWriter
	var blobs []object.ObjectStorage
	var each func(func(*sdf.Writer))
	if paired {
		l, r := sdf.PairedLocations(location)
		lw, lb := newWriter(c, l, conf)
		rw, rb := newWriter(c, r, conf)
		w, blobs = sdf.NewPairedWriter(lw, rw), []object.ObjectStorage{lb, rb}
		each = func(fn func(*sdf.Writer)) { fn(lw); fn(rw) }
	} else {
		sw, b := newWriter(c, location, conf)
		w, blobs = sw, []object.ObjectStorage{b}
		each = func(fn func(*sdf.Writer)) { fn(sw) }
	}
	defer func() {
		for _, b := range blobs {
			object.Shutdown(b)
		}
	}()
	if id := c.String("sdf-id"); id != "" {
		u, err := uuid.Parse(id)
		if err != nil {
			logger.Fatalf("bad SDF-ID %q: %s", id, err)
		}
		each(func(sw *sdf.Writer) { sw.SetSdfID(u) })
	}
	each(func(sw *sdf.Writer) {
		sw.SetComment(c.String("comment"))
		sw.SetReadGroup(c.String("read-group"))
		sw.SetCommandLine(strings.Join(os.Args, " "))
	})

	progress, bar := utils.NewDynProgressBar("sequences: ", c.Bool("quiet"))
	var count int64
	done := func() {
		count++
		bar.SetTotal(count+1, false)
		bar.Increment()
	}
	if paired {
		for i := 0; i < len(inputs); i += 2 {
			if err = importPair(w, open(inputs[i]), open(inputs[i+1]), alphabet, quality, done); err != nil {
				logger.Fatalf("import %s and %s: %s", inputs[i], inputs[i+1], err)
			}
		}
	} else {
		for _, in := range inputs {
			if err = importFile(w, open(in), alphabet, quality, done); err != nil {
				logger.Fatalf("import %s: %s", in, err)
			}
		}
	}
	if err = w.Close(); err != nil {
		logger.Fatalf("close store: %s", err)
	}
	bar.SetTotal(count, true)
	progress.Wait()

	for i, b := range blobs {
		m, err := sdf.ReadMainIndex(b)
		if err != nil {
			logger.Fatalf("read back %s: %s", sdf.MainIndexFile, err)
		}
		logger.Infof("Store %s (%s) holds %d sequences, %d residues, lengths %d..%d",
			b, m.SdfID, m.NumberSequences, m.TotalLength, m.MinLength, m.MaxLength)
		if uri := c.String("catalog"); uri != "" && i == 0 {
			// halves share an SDF-ID; the catalog points at the paired location
			if err = registerStore(c, uri, m, location); err != nil {
				logger.Fatalf("register %s: %s", m.SdfID, err)
			}
		}
	}
	reportUsage("formatted")
	return nil
}

func importRecord(w sdf.SequenceWriter, rec *seqio.Record, alphabet seqio.Alphabet, quality bool) error {
	if err := w.StartSequence(rec.Name); err != nil {
		return err
	}
	alphabet.Encode(rec.Seq)
	if err := w.Write(rec.Seq); err != nil {
		return err
	}
	if quality {
		q := rec.Qual
		if q == nil {
			// FASTA input in a store with quality
			q = make([]byte, len(rec.Seq))
		}
		if err := w.WriteQuality(q); err != nil {
			return err
		}
	}
	return w.EndSequence()
}

func importFile(w sdf.SequenceWriter, r *seqio.Reader, alphabet seqio.Alphabet, quality bool, done func()) error {
	defer r.Close()
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err = importRecord(w, rec, alphabet, quality); err != nil {
			return err
		}
		done()
	}
}

// importPair reads mates from left and right in lockstep.
func importPair(w sdf.SequenceWriter, left, right *seqio.Reader, alphabet seqio.Alphabet, quality bool, done func()) error {
	defer left.Close()
	defer right.Close()
	for n := 0; ; n++ {
		l, lerr := left.Next()
		r, rerr := right.Next()
		if lerr == io.EOF && rerr == io.EOF {
			return nil
		}
		if lerr == io.EOF || rerr == io.EOF {
			return errors.Errorf("inputs hold different numbers of records, one ends after %d", n)
		}
		if lerr != nil {
			return lerr
		}
		if rerr != nil {
			return rerr
		}
		for _, rec := range []*seqio.Record{l, r} {
			if err := importRecord(w, rec, alphabet, quality); err != nil {
				return err
			}
			done()
		}
	}
}

func formatFlags() *cli.Command {
	return &cli.Command{
		Name:      "format",
		Usage:     "convert FASTA/FASTQ files into a store",
		ArgsUsage: "STORE INPUT...",
		Flags: append([]cli.Flag{
			&cli.Int64Flag{
				Name:  "size-limit",
				Value: sdf.DefaultSizeLimit,
				Usage: "maximum bytes per data file",
			},
			&cli.StringFlag{
				Name:  "compress",
				Value: "none",
				Usage: "compression of data files (lz4, zstd, none)",
			},
			&cli.IntFlag{
				Name:  "block-size",
				Value: compress.DefaultBlockSize >> 10,
				Usage: "size of compressed frames in KiB",
			},
			&cli.StringFlag{
				Name:  "alphabet",
				Value: "dna",
				Usage: "residue encoding (dna, raw)",
			},
			&cli.BoolFlag{
				Name:  "no-names",
				Usage: "don't store sequence names",
			},
			&cli.BoolFlag{
				Name:  "no-quality",
				Usage: "don't store FASTQ quality values",
			},
			&cli.StringFlag{
				Name:  "sdf-id",
				Usage: "use this SDF-ID instead of a fresh one",
			},
			&cli.StringFlag{
				Name:  "comment",
				Usage: "free text kept in the store header",
			},
			&cli.StringFlag{
				Name:  "read-group",
				Usage: "SAM read group line kept in the store header",
			},
			&cli.StringFlag{
				Name:  "catalog",
				Usage: "register the new store in this catalog (redis://..., mem://)",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "overwrite an existing store",
			},
			forceRegisterFlag(),
			&cli.BoolFlag{
				Name:  "paired",
				Usage: "inputs are LEFT RIGHT pairs of mate files, stored as left and right halves",
			},
		}, bandwidthFlags()...),
		Action: format,
	}
}
