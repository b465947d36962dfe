// cmd/main.go

package main

import (
	"fmt"
	"os"

	"github.com/google/gops/agent"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"SeqStore/pkg/utils"
	"SeqStore/pkg/version"
)

var logger = utils.GetLogger("seqstore")

func newApp() *cli.App {
	cli.VersionFlag = &cli.BoolFlag{
		Name: "version", Aliases: []string{"V"},
		Usage: "print only the version",
	}
	return &cli.App{
		Name:                 "seqstore",
		Usage:                "chunked binary sequence store",
		Version:              version.Version(),
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"debug", "v"},
				Usage:   "enable debug log",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "enable trace log",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "only warning and errors",
			},
			&cli.StringFlag{
				Name:  "log",
				Usage: "append log messages to this file",
			},
			&cli.BoolFlag{
				Name:  "no-agent",
				Usage: "disable the gops diagnostics agent",
			},
		},
		Commands: []*cli.Command{
			formatFlags(),
			infoFlags(),
			verifyFlags(),
			exportFlags(),
			subsetFlags(),
			splitFlags(),
			catalogFlags(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setLoggerLevel applies the global flags. Every command calls it first.
func setLoggerLevel(c *cli.Context) {
	if c.Bool("trace") {
		utils.SetLogLevel(logrus.TraceLevel)
	} else if c.Bool("verbose") {
		utils.SetLogLevel(logrus.DebugLevel)
	} else if c.Bool("quiet") {
		utils.SetLogLevel(logrus.WarnLevel)
	} else {
		utils.SetLogLevel(logrus.InfoLevel)
	}
	if f := c.String("log"); f != "" {
		utils.SetOutFile(f)
	}
	if !c.Bool("no-agent") {
		if err := agent.Listen(agent.Options{}); err != nil {
			logger.Warnf("start gops agent: %s", err)
		}
	}
}

func reportUsage(what string) {
	ru := utils.GetRusage()
	logger.Infof("%s in %s, cpu user %.2fs sys %.2fs, buffers in use %d bytes",
		what, utils.Clock(), ru.GetUtime(), ru.GetStime(), utils.AllocMemory())
}
