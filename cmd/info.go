// cmd/info.go

package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"SeqStore/pkg/object"
	"SeqStore/pkg/sdf"
)

type dataFile struct {
	Name      string
	Sequences int64
	Bytes     int64
}

type sections struct {
	Location string
	Setting  *sdf.MainIndex
	Files    []dataFile
	Lengths  []int64 `json:",omitempty"`
}

func printJson(v interface{}) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatalf("json: %s", err)
	}
	fmt.Println(string(output))
}

func info(ctx *cli.Context) error {
	setLoggerLevel(ctx)
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("STORE is needed")
	}
	for i := 0; i < ctx.Args().Len(); i++ {
		halves, err := storeHalves(ctx, ctx.Args().Get(i))
		if err != nil {
			logger.Errorf("open %s: %s", ctx.Args().Get(i), err)
			continue
		}
		for _, location := range halves {
			blob, err := openStorage(ctx, location)
			if err != nil {
				logger.Errorf("open %s: %s", location, err)
				continue
			}
			s, err := describe(blob, ctx.Bool("lengths"))
			object.Shutdown(blob)
			if err != nil {
				logger.Errorf("%s: %s", location, err)
				continue
			}
			printJson(s)
		}
	}
	return nil
}

func describe(blob object.ObjectStorage, lengths bool) (*sections, error) {
	m, err := sdf.ReadMainIndex(blob)
	if err != nil {
		return nil, err
	}
	idx, err := sdf.LoadDataFileIndex(blob, sdf.SequenceIndexFile, m.NumberSequences)
	if err != nil {
		return nil, err
	}
	s := &sections{Location: blob.String(), Setting: m}
	for f := 0; f < idx.NumberEntries(); f++ {
		s.Files = append(s.Files, dataFile{sdf.SequenceDataFile(f), idx.NumberSequences(f), idx.DataSize(f)})
	}
	if lengths {
		r, err := sdf.Open(blob)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		if s.Lengths, err = r.SequenceLengths(0, r.NumberSequences()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func infoFlags() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "show the header and data files of stores",
		ArgsUsage: "STORE...",
		Action:    info,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "lengths",
				Aliases: []string{"l"},
				Usage:   "also list the length of every sequence",
			},
		}, bandwidthFlags()...),
	}
}
