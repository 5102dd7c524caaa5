package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/Furulango/handseg/internal/app"
	"github.com/Furulango/handseg/internal/segment"
	"github.com/Furulango/handseg/internal/server/api"
)

var version = "dev"

const (
	flagDebug     = "debug"
	flagIn        = "in"
	flagOut       = "out"
	flagLandmarks = "landmarks"
	flagMaxHands  = "max-hands"
	flagThreshold = "threshold"
	flagAddr      = "addr"
	flagDataDir   = "data-dir"
	flagStatic    = "static"
	flagCamera    = "camera"
	flagTimeout   = "timeout"
	flagTray      = "tray"
	flagMaxUpload = "max-upload"
)

func main() {
	var logger *logrus.Logger

	cliApp := &cli.App{
		Name:    "handseg",
		Usage:   "outline hands from their landmarks",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Usage:   "enable debug logging",
				EnvVars: []string{"HANDSEG_DEBUG"},
			},
			&cli.IntFlag{
				Name:    flagMaxHands,
				Value:   segment.DefaultConfig().MaxHands,
				Usage:   "maximum number of hands drawn per image",
				EnvVars: []string{"HANDSEG_MAX_HANDS"},
			},
			&cli.Float64Flag{
				Name:    flagThreshold,
				Value:   float64(segment.DefaultConfig().Threshold),
				Usage:   "grayscale level above which a pixel is foreground",
				EnvVars: []string{"HANDSEG_THRESHOLD"},
			},
		},
		Before: func(c *cli.Context) error {
			logger = initLogger(c.Bool(flagDebug))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "segment",
				Usage:     "segment the hands of one image file",
				UsageText: "handseg segment --in IN --out OUT [--landmarks FILE]",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagIn,
						Usage:    "input image `FILE`",
						Required: true,
					},
					&cli.PathFlag{
						Name:     flagOut,
						Usage:    "output image `FILE`",
						Required: true,
					},
					&cli.PathFlag{
						Name:  flagLandmarks,
						Usage: "read normalized hand landmarks from a JSON `FILE` instead of detecting them",
					},
				},
				Action: func(c *cli.Context) error {
					return segmentAction(c, logger)
				},
			},
			{
				Name:  "serve",
				Usage: "run the HTTP segmentation service",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagAddr,
						Value:   ":8000",
						Usage:   "listen address",
						EnvVars: []string{"HANDSEG_ADDR"},
					},
					&cli.PathFlag{
						Name:    flagDataDir,
						Value:   defaultDataDir(),
						Usage:   "directory holding the run history database",
						EnvVars: []string{"HANDSEG_DATA_DIR"},
					},
					&cli.PathFlag{
						Name:    flagStatic,
						Usage:   "serve static files from `DIR` (default: first web directory found)",
						EnvVars: []string{"HANDSEG_STATIC"},
					},
					&cli.IntFlag{
						Name:    flagCamera,
						Value:   -1,
						Usage:   "camera device for the live preview, negative to disable",
						EnvVars: []string{"HANDSEG_CAMERA"},
					},
					&cli.DurationFlag{
						Name:    flagTimeout,
						Value:   app.DefaultTimeout,
						Usage:   "per image processing timeout",
						EnvVars: []string{"HANDSEG_TIMEOUT"},
					},
					&cli.Int64Flag{
						Name:    flagMaxUpload,
						Value:   api.DefaultMaxUploadBytes,
						Usage:   "maximum upload size in bytes",
						EnvVars: []string{"HANDSEG_MAX_UPLOAD"},
					},
					&cli.BoolFlag{
						Name:    flagTray,
						Usage:   "show a system tray menu",
						EnvVars: []string{"HANDSEG_TRAY"},
					},
				},
				Action: func(c *cli.Context) error {
					return serveAction(c, logger)
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
