// cmd/verify.go

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"SeqStore/pkg/object"
	"SeqStore/pkg/sdf"
	"SeqStore/pkg/utils"
)

func verify(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 1 {
		logger.Fatalf("STORE is needed")
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var locations []string
	for _, location := range c.Args().Slice() {
		halves, err := storeHalves(c, location)
		if err != nil {
			logger.Fatalf("open %s: %s", location, err)
		}
		locations = append(locations, halves...)
	}
	var failed int
	for _, location := range locations {
		blob, err := openStorage(c, location)
		if err != nil {
			logger.Fatalf("open %s: %s", location, err)
		}
		m, err := sdf.ReadMainIndex(blob)
		if err != nil {
			logger.Errorf("%s: %s", location, err)
			object.Shutdown(blob)
			failed++
			continue
		}
		progress, bar := utils.NewDynProgressBar("verified: ", c.Bool("quiet"))
		bar.SetTotal(m.NumberSequences, false)
		report, err := sdf.Verify(ctx, blob, &sdf.VerifyConfig{
			Threads:   c.Int("threads"),
			BatchSize: c.Int64("batch"),
			Progress:  func(n int64) { bar.IncrInt64(n) },
		})
		if err != nil {
			bar.Abort(false)
		} else {
			bar.SetTotal(m.NumberSequences, true)
		}
		progress.Wait()
		object.Shutdown(blob)
		if err != nil {
			if sdf.IsCorrupt(err) {
				logger.Errorf("%s is corrupt: %s", location, err)
			} else {
				logger.Errorf("verify %s: %s", location, err)
			}
			failed++
			continue
		}
		logger.Infof("%s is OK: %d sequences, %d bytes, data hash %#x", location, report.Sequences, report.Bytes, report.DataHash)
	}
	reportUsage("verified")
	if failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func verifyFlags() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "check every checksum and content hash of stores",
		ArgsUsage: "STORE...",
		Action:    verify,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "threads",
				Aliases: []string{"p"},
				Value:   4,
				Usage:   "number of concurrent workers",
			},
			&cli.Int64Flag{
				Name:  "batch",
				Value: 4096,
				Usage: "sequences checked per task",
			},
		}, bandwidthFlags()...),
	}
}
