// cmd/catalog.go

package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"SeqStore/pkg/meta"
	"SeqStore/pkg/object"
	"SeqStore/pkg/sdf"
)

func openCatalog(c *cli.Context, uri string) meta.Catalog {
	m, err := meta.NewClient(uri, &meta.Config{Retries: c.Int("retries"), Prefix: c.String("prefix")})
	if err != nil {
		logger.Fatalf("catalog %s: %s", uri, err)
	}
	return m
}

func registerStore(c *cli.Context, uri string, m *sdf.MainIndex, location string) error {
	cat := openCatalog(c, uri)
	defer cat.Close()
	return registerIn(context.Background(), cat, m, location, c.Bool("force-register"))
}

// registerIn records location for the store; an entry at another location is
// only replaced when force is set.
func registerIn(ctx context.Context, cat meta.Catalog, m *sdf.MainIndex, location string, force bool) error {
	if err := cat.Register(ctx, meta.NewEntry(m, location), force); err != nil {
		return err
	}
	logger.Infof("Registered %s at %s in %s catalog", m.SdfID, location, cat.Name())
	return nil
}

func register(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 2 {
		return fmt.Errorf("CATALOG-URL and STORE are needed")
	}
	for _, location := range c.Args().Slice()[1:] {
		blob, err := openStorage(c, location)
		if err != nil {
			logger.Fatalf("open %s: %s", location, err)
		}
		m, err := sdf.ReadMainIndex(blob)
		object.Shutdown(blob)
		if err != nil {
			logger.Fatalf("%s: %s", location, err)
		}
		if err = registerStore(c, c.Args().Get(0), m, location); err != nil {
			logger.Fatalf("register %s: %s", location, err)
		}
	}
	return nil
}

func lookup(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 1 {
		return fmt.Errorf("CATALOG-URL is needed")
	}
	cat := openCatalog(c, c.Args().Get(0))
	defer cat.Close()
	ctx := context.Background()
	if c.Args().Len() == 1 {
		entries, err := cat.List(ctx)
		if err != nil {
			logger.Fatalf("list: %s", err)
		}
		printJson(entries)
		return nil
	}
	for _, s := range c.Args().Slice()[1:] {
		id, err := uuid.Parse(s)
		if err != nil {
			logger.Fatalf("bad SDF-ID %q: %s", s, err)
		}
		if c.Bool("remove") {
			if err = cat.Remove(ctx, id); err != nil {
				logger.Fatalf("remove %s: %s", id, err)
			}
			logger.Infof("Removed %s", id)
			continue
		}
		e, err := cat.Lookup(ctx, id)
		if err != nil {
			logger.Fatalf("lookup %s: %s", id, err)
		}
		printJson(e)
	}
	return nil
}

func forceRegisterFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "force-register",
		Usage: "replace a catalog entry registered at another location",
	}
}

func catalogFlags() *cli.Command {
	shared := []cli.Flag{
		&cli.IntFlag{
			Name:  "retries",
			Value: 2,
			Usage: "retries of failed catalog requests",
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "key namespace inside the catalog",
		},
	}
	return &cli.Command{
		Name:  "catalog",
		Usage: "track stores by SDF-ID (redis://HOST[:PORT][/DB], rediss://..., mem://)",
		Subcommands: []*cli.Command{
			{
				Name:      "register",
				Usage:     "record the location of stores",
				ArgsUsage: "CATALOG-URL STORE...",
				Action:    register,
				Flags: append(append([]cli.Flag{
					forceRegisterFlag(),
				}, shared...), bandwidthFlags()...),
			},
			{
				Name:      "lookup",
				Usage:     "show where stores live; lists every entry when no SDF-ID is given",
				ArgsUsage: "CATALOG-URL [SDF-ID...]",
				Action:    lookup,
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "remove",
						Usage: "drop the given entries instead of showing them",
					},
				}, shared...),
			},
		},
	}
}
