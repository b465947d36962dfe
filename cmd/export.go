// cmd/export.go

package main

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"SeqStore/pkg/object"
	"SeqStore/pkg/sdf"
	"SeqStore/pkg/seqio"
	"SeqStore/pkg/utils"
)

// openReaders opens every store and joins them into one id space. Paired
// stores contribute their mates interleaved.
func openReaders(c *cli.Context, locations []string) (sdf.SequencesReader, func(), error) {
	var blobs []object.ObjectStorage
	var readers []sdf.SequencesReader
	cleanup := func() {
		for _, r := range readers {
			_ = r.Close()
		}
		for _, b := range blobs {
			object.Shutdown(b)
		}
	}
	openOne := func(location string) (sdf.SequencesReader, error) {
		blob, err := openStorage(c, location)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, blob)
		var r sdf.SequencesReader
		if c.Bool("memory") {
			r, err = sdf.LoadMemory(context.Background(), blob, 0, -1)
		} else {
			r, err = sdf.Open(blob)
		}
		return r, errors.Wrapf(err, "open %s", location)
	}
	for _, location := range locations {
		halves, err := storeHalves(c, location)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		var parts []sdf.SequencesReader
		for _, h := range halves {
			r, err := openOne(h)
			if err != nil {
				for _, p := range parts {
					_ = p.Close()
				}
				cleanup()
				return nil, nil, err
			}
			parts = append(parts, r)
		}
		if len(parts) == 1 {
			readers = append(readers, parts[0])
			continue
		}
		// mates follow each other in the output
		r, err := sdf.Interleave(parts[0], parts[1])
		if err != nil {
			_ = parts[0].Close()
			_ = parts[1].Close()
			cleanup()
			return nil, nil, errors.Wrapf(err, "open %s", location)
		}
		readers = append(readers, r)
	}
	r, err := sdf.Concat(readers...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if size := c.Int64("cache-size"); size > 0 && !c.Bool("memory") {
		r = sdf.NewCachingReader(r, &sdf.CacheConfig{CacheSize: size})
	}
	return r, cleanup, nil
}

func export(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 1 {
		logger.Fatalf("STORE is needed")
	}
	alphabet, err := seqio.ParseAlphabet(c.String("alphabet"))
	if err != nil {
		logger.Fatalf("%s", err)
	}
	r, cleanup, err := openReaders(c, c.Args().Slice())
	if err != nil {
		logger.Fatalf("%s", err)
	}
	defer cleanup()

	start, end := c.Int64("start"), c.Int64("end")
	if end < 0 || end > r.NumberSequences() {
		end = r.NumberSequences()
	}
	if start < 0 || start > end {
		logger.Fatalf("bad range [%d, %d) for %d sequences", start, end, r.NumberSequences())
	}

	var out io.Writer = os.Stdout
	if path := c.String("output"); path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			logger.Fatalf("create %s: %s", path, err)
		}
		defer f.Close()
		out = f
	}
	w := seqio.NewWriter(out, c.Int("width"))
	quality := r.HasQuality() && !c.Bool("fasta")

	progress, bar := utils.NewDynProgressBar("exported: ", c.Bool("quiet") || c.String("output") == "")
	bar.SetTotal(end-start, false)
	for id := start; id < end; id++ {
		rec := &seqio.Record{}
		if r.HasNames() {
			if rec.Name, err = r.Name(id); err != nil {
				logger.Fatalf("name of %d: %s", id, err)
			}
			suffix, err := r.NameSuffix(id)
			if err != nil {
				logger.Fatalf("suffix of %d: %s", id, err)
			}
			rec.Name += suffix
		} else {
			rec.Name = "sequence_" + strconv.FormatInt(id, 10)
		}
		if rec.Seq, err = r.Read(id); err != nil {
			logger.Fatalf("read %d: %s", id, err)
		}
		alphabet.Decode(rec.Seq)
		if quality {
			if rec.Qual, err = r.ReadQuality(id); err != nil {
				logger.Fatalf("quality of %d: %s", id, err)
			}
		}
		if err = w.Write(rec); err != nil {
			logger.Fatalf("write: %s", err)
		}
		bar.Increment()
	}
	if err = w.Flush(); err != nil {
		logger.Fatalf("write: %s", err)
	}
	bar.SetTotal(end-start, true)
	progress.Wait()
	if cr, ok := r.(*sdf.CachingReader); ok {
		items, used := cr.Stats()
		logger.Debugf("cache holds %d values in %d bytes", items, used)
	}
	reportUsage("exported")
	return nil
}

func exportFlags() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "write sequences of stores as FASTA or FASTQ",
		ArgsUsage: "STORE...",
		Action:    export,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output file (default stdout)",
			},
			&cli.Int64Flag{
				Name:  "start",
				Usage: "first sequence id",
			},
			&cli.Int64Flag{
				Name:  "end",
				Value: -1,
				Usage: "sequence id to stop before (-1 means all)",
			},
			&cli.StringFlag{
				Name:  "alphabet",
				Value: "dna",
				Usage: "residue encoding used at format time (dna, raw)",
			},
			&cli.IntFlag{
				Name:  "width",
				Value: 80,
				Usage: "FASTA line width (0 means unwrapped)",
			},
			&cli.BoolFlag{
				Name:  "fasta",
				Usage: "write FASTA even when the store has quality",
			},
			&cli.BoolFlag{
				Name:  "memory",
				Usage: "load whole stores into memory first",
			},
			&cli.Int64Flag{
				Name:  "cache-size",
				Usage: "cache recently read values, in MiB",
			},
		}, bandwidthFlags()...),
	}
}
