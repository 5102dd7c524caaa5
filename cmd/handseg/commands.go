package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/Furulango/handseg/internal/app"
	"github.com/Furulango/handseg/internal/capture"
	"github.com/Furulango/handseg/internal/detector"
	"github.com/Furulango/handseg/internal/segment"
	"github.com/Furulango/handseg/internal/server"
	"github.com/Furulango/handseg/internal/store"
	"github.com/Furulango/handseg/internal/tray"
)

// fixedHands is a Detector that always reports the same hands.
type fixedHands []detector.HandLandmarks

func (f fixedHands) Detect(*gocv.Mat) ([]detector.HandLandmarks, error) { return f, nil }
func (f fixedHands) Close() error                                      { return nil }

func segmentConfig(c *cli.Context, logger *logrus.Logger) segment.Config {
	cfg := segment.DefaultConfig()
	cfg.MaxHands = c.Int(flagMaxHands)
	cfg.Threshold = float32(c.Float64(flagThreshold))
	cfg.Logger = logger
	return cfg
}

// newDetector starts the MediaPipe detector, or returns nil with a warning
// when it is unavailable.
func newDetector(c *cli.Context, logger *logrus.Logger) detector.Detector {
	cfg := detector.DefaultConfig()
	cfg.MaxHands = c.Int(flagMaxHands)
	cfg.Logger = logger

	d, err := detector.NewMediaPipeDetector(cfg)
	if err != nil {
		logger.WithError(err).Warn("MediaPipe not available, images are treated as having no hands")
		return nil
	}
	logger.Debug("Using MediaPipe hand detection")
	return d
}

func segmentAction(c *cli.Context, logger *logrus.Logger) (err error) {
	in, out := c.Path(flagIn), c.Path(flagOut)

	var d detector.Detector
	if path := c.Path(flagLandmarks); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read landmarks: %w", err)
		}
		hands, err := detector.ParseHands(data)
		if err != nil {
			return fmt.Errorf("read landmarks %s: %w", path, err)
		}
		d = fixedHands(hands)
	} else if found := newDetector(c, logger); found != nil {
		d = found
		defer func() {
			err = multierr.Append(err, found.Close())
		}()
	}

	seg := segment.New(segmentConfig(c, logger))
	ok, err := seg.SegmentFile(in, out, d)
	if errors.Is(err, segment.ErrDecodeImage) {
		return cli.Exit(fmt.Sprintf("cannot read image %s", in), 2)
	}
	if err != nil {
		return err
	}
	if ok {
		logger.WithFields(logrus.Fields{"in": in, "out": out}).Info("Image segmented")
	}
	return nil
}

func serveAction(c *cli.Context, logger *logrus.Logger) (err error) {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir := c.Path(flagDataDir)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(filepath.Join(dataDir, "handseg.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		err = multierr.Append(err, st.Close())
	}()

	a := app.New(app.Config{
		Store:    st,
		Detector: newDetector(c, logger),
		Segment:  segmentConfig(c, logger),
		Timeout:  c.Duration(flagTimeout),
		Logger:   logger,
	})
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	if id := c.Int(flagCamera); id >= 0 {
		cam := capture.NewCamera(capture.Config{DeviceID: id, Logger: logger})
		if err := a.StartPreview(cam); err != nil {
			logger.WithError(err).Warn("Live preview disabled")
		}
	}

	staticDir := c.Path(flagStatic)
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		logger.WithField("dir", staticDir).Info("Serving static files")
	}

	srv := server.New(server.Config{
		App:            a,
		Store:          st,
		StaticDir:      staticDir,
		MaxUploadBytes: c.Int64(flagMaxUpload),
		Version:        version,
		Logger:         logger,
	})

	addr := c.String(flagAddr)
	if !c.Bool(flagTray) {
		return srv.ListenAndServe(ctx, addr)
	}

	t := tray.New()
	a.OnRun(t.SetLastRun)
	t.OnOpen(func() {
		if err := openBrowser(browserURL(addr)); err != nil {
			logger.WithError(err).Warn("Failed to open browser")
		}
	})
	t.OnQuit(stop)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, addr)
		t.Quit()
	}()
	t.Run()
	stop()
	return <-errCh
}

func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".handseg"
	}
	return filepath.Join(home, ".handseg")
}

// findWebDir returns the first existing web directory among "web", "../web"
// and ~/.handseg/web, or "" when none exists.
func findWebDir() string {
	candidates := []string{"web", filepath.Join("..", "web")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".handseg", "web"))
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
