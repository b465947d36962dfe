// cmd/split.go

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"SeqStore/pkg/compress"
	"SeqStore/pkg/object"
	"SeqStore/pkg/sdf"
)

// copyConf keeps the layout of the source unless flags override it.
func copyConf(c *cli.Context, src sdf.SequencesReader) (*sdf.WriterConfig, error) {
	conf := &sdf.WriterConfig{
		SizeLimit:  c.Int64("size-limit"),
		HasQuality: src.HasQuality() && !c.Bool("no-quality"),
		HasNames:   src.HasNames() && !c.Bool("no-names"),
	}
	enc, err := compress.ParseEncoding(c.String("compress"))
	if err != nil {
		return nil, err
	}
	conf.Encoding = enc
	return conf, nil
}

func openDest(c *cli.Context, location string, conf *sdf.WriterConfig) (*sdf.Writer, object.ObjectStorage) {
	prepareStore(c, location)
	w, blob := newWriter(c, location, conf)
	w.SetCommandLine(strings.Join(os.Args, " "))
	return w, blob
}

func subset(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() != 2 {
		logger.Fatalf("SOURCE and DEST are needed")
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	src, cleanup, err := openReaders(c, c.Args().Slice()[:1])
	if err != nil {
		logger.Fatalf("%s", err)
	}
	defer cleanup()
	start, end := c.Int64("start"), c.Int64("end")
	if end < 0 || end > src.NumberSequences() {
		end = src.NumberSequences()
	}
	conf, err := copyConf(c, src)
	if err != nil {
		logger.Fatalf("%s", err)
	}
	w, blob := openDest(c, c.Args().Get(1), conf)
	defer object.Shutdown(blob)
	n, err := sdf.Copy(ctx, src, w, start, end, conf.HasQuality)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.Fatalf("subset: %s", err)
	}
	logger.Infof("Wrote %d sequences [%d, %d) to %s", n, start, start+n, blob)
	reportUsage("subset")
	return nil
}

func split(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() != 2 {
		logger.Fatalf("SOURCE and DEST are needed")
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	src, cleanup, err := openReaders(c, c.Args().Slice()[:1])
	if err != nil {
		logger.Fatalf("%s", err)
	}
	defer cleanup()
	conf, err := copyConf(c, src)
	if err != nil {
		logger.Fatalf("%s", err)
	}
	dest := strings.TrimRight(c.Args().Get(1), "/")
	var blobs []object.ObjectStorage
	defer func() {
		for _, b := range blobs {
			object.Shutdown(b)
		}
	}()
	parts, err := sdf.Split(ctx, src, c.Int64("count"), conf.HasQuality, func(part int) (sdf.SequenceWriter, error) {
		w, blob := openDest(c, fmt.Sprintf("%s/%06d", dest, part), conf)
		blobs = append(blobs, blob)
		return w, nil
	})
	if err != nil {
		logger.Fatalf("split: %s", err)
	}
	logger.Infof("Split %d sequences into %d stores under %s", src.NumberSequences(), parts, dest)
	reportUsage("split")
	return nil
}

func copyFlags() []cli.Flag {
	return append([]cli.Flag{
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
		&cli.BoolFlag{
			Name:  "no-names",
			Usage: "drop sequence names",
		},
		&cli.BoolFlag{
			Name:  "no-quality",
			Usage: "drop quality values",
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "overwrite existing destination stores",
		},
	}, bandwidthFlags()...)
}

func subsetFlags() *cli.Command {
	return &cli.Command{
		Name:      "subset",
		Usage:     "copy a range of sequences into a new store",
		ArgsUsage: "SOURCE DEST",
		Action:    subset,
		Flags: append([]cli.Flag{
			&cli.Int64Flag{
				Name:  "start",
				Usage: "first sequence id",
			},
			&cli.Int64Flag{
				Name:  "end",
				Value: -1,
				Usage: "sequence id to stop before (-1 means all)",
			},
		}, copyFlags()...),
	}
}

func splitFlags() *cli.Command {
	return &cli.Command{
		Name:      "split",
		Usage:     "copy a store into numbered stores DEST/000000, DEST/000001, ...",
		ArgsUsage: "SOURCE DEST",
		Action:    split,
		Flags: append([]cli.Flag{
			&cli.Int64Flag{
				Name:  "count",
				Value: 1000000,
				Usage: "sequences per store",
			},
		}, copyFlags()...),
	}
}
