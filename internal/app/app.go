// Package app ties detection, segmentation, zone analysis, reporting and
// run history together for the CLI and the HTTP server.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/Furulango/handseg/internal/analysis"
	"github.com/Furulango/handseg/internal/detector"
	"github.com/Furulango/handseg/internal/report"
	"github.com/Furulango/handseg/internal/segment"
	"github.com/Furulango/handseg/internal/store"
)

// DefaultTimeout bounds a single image run.
const DefaultTimeout = 30 * time.Second

// ErrUnsupportedFormat is returned by ParseFormat for unknown output formats.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Format is the output encoding of a run.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// ParseFormat maps a query value to a Format. Empty selects PDF.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	default:
		return "application/pdf"
	}
}

// Config holds configuration options for the application.
type Config struct {
	// Store records runs. Optional.
	Store *store.Store

	// Detector finds hands when a request carries no landmarks. A nil
	// detector means such requests are treated as having no hands.
	Detector detector.Detector

	Segment  segment.Config
	Analysis analysis.Config

	// Timeout bounds Process. Defaults to DefaultTimeout.
	Timeout time.Duration

	Logger *logrus.Logger
}

// Request is one image to segment.
type Request struct {
	Filename string
	Data     []byte
	// Hands overrides detection when non-nil. An empty non-nil slice means
	// no hands.
	Hands  []detector.HandLandmarks
	Format Format
}

// Outcome is the result of a successful run.
type Outcome struct {
	RunID     string
	Format    Format
	Body      []byte
	Width     int
	Height    int
	Hands     int
	PalmSteps int
	Zones     []analysis.Zone
}

// ContentType returns the MIME type of Body.
func (o *Outcome) ContentType() string {
	return o.Format.ContentType()
}

// App runs segmentation requests and the live preview.
type App struct {
	config    Config
	log       *logrus.Logger
	segmenter *segment.Segmenter
	analyzer  *analysis.Analyzer

	mu      sync.RWMutex
	lastRun *store.Run
	onRun   func(*store.Run)

	preview preview
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if config.Analysis.Upper == (gocv.Scalar{}) {
		config.Analysis = analysis.DefaultConfig()
	}
	if config.Segment.Logger == nil {
		config.Segment.Logger = log
	}
	if config.Analysis.Logger == nil {
		config.Analysis.Logger = log
	}

	return &App{
		config:    config,
		log:       log,
		segmenter: segment.New(config.Segment),
		analyzer:  analysis.New(config.Analysis),
	}
}

// Segmenter returns the segmenter used for every run.
func (a *App) Segmenter() *segment.Segmenter {
	return a.segmenter
}

// Detector returns the configured hand detector, which may be nil.
func (a *App) Detector() detector.Detector {
	return a.config.Detector
}

// Store returns the run store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// OnRun registers a callback invoked after every run, successful or not.
func (a *App) OnRun(fn func(*store.Run)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onRun = fn
}

// LastRun returns the most recent run, or nil before the first one.
func (a *App) LastRun() *store.Run {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastRun
}

// Process segments one image within the configured timeout and records the
// run. Decode failures wrap segment.ErrDecodeImage; a timeout wraps
// context.DeadlineExceeded.
func (a *App) Process(ctx context.Context, req Request) (*Outcome, error) {
	if req.Format == "" {
		req.Format = FormatPDF
	}

	start := time.Now()
	id := uuid.New().String()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	type result struct {
		out *Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := a.process(id, req)
		done <- result{out: out, err: err}
	}()

	var (
		out *Outcome
		err error
	)
	select {
	case r := <-done:
		out, err = r.out, r.err
	case <-ctx.Done():
		err = fmt.Errorf("process %s: %w", req.Filename, ctx.Err())
	}

	a.record(id, req.Filename, out, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *App) process(id string, req Request) (out *Outcome, err error) {
	img, err := segment.Decode(req.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", req.Filename, err)
	}
	defer func() {
		err = multierr.Append(err, img.Close())
	}()

	hands := req.Hands
	if hands == nil && a.config.Detector != nil {
		hands, err = a.config.Detector.Detect(&img)
		if err != nil {
			return nil, fmt.Errorf("detect hands: %w", err)
		}
	}

	res, err := a.segmenter.Segment(img, hands)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", req.Filename, err)
	}
	defer func() {
		err = multierr.Append(err, res.Close())
	}()

	zones, err := a.analyzer.Zones(res.Image, img)
	if err != nil {
		return nil, fmt.Errorf("analyze zones: %w", err)
	}

	out = &Outcome{
		RunID:  id,
		Format: req.Format,
		Width:  img.Cols(),
		Height: img.Rows(),
		Hands:  len(res.Hands),
		Zones:  zones,
	}
	for _, h := range res.Hands {
		out.PalmSteps += h.Palm.Steps
	}

	switch req.Format {
	case FormatJPEG:
		out.Body, err = segment.Encode(res.Image, gocv.JPEGFileExt)
	case FormatPNG:
		out.Body, err = segment.Encode(res.Image, gocv.PNGFileExt)
	case FormatPDF:
		out.Body, err = a.pdf(id, req.Filename, res, zones)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (a *App) pdf(id, filename string, res *segment.Result, zones []analysis.Zone) ([]byte, error) {
	png, err := segment.Encode(res.Image, gocv.PNGFileExt)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = report.Write(&buf, report.Data{
		RunID:     id,
		Filename:  filename,
		Image:     png,
		Hands:     len(res.Hands),
		Zones:     zones,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// record stores the run and notifies the OnRun callback. Store failures are
// logged, never returned.
func (a *App) record(id, filename string, out *Outcome, runErr error, elapsed time.Duration) {
	run := &store.Run{
		ID:         id,
		Filename:   filename,
		DurationMS: elapsed.Milliseconds(),
		Status:     store.RunStatusOK,
		CreatedAt:  time.Now(),
	}
	if runErr != nil {
		run.Status = store.RunStatusFailed
		run.Error = runErr.Error()
	}
	if out != nil {
		run.Width = out.Width
		run.Height = out.Height
		run.Hands = out.Hands
		run.PalmSteps = out.PalmSteps
		for _, z := range out.Zones {
			run.Zones = append(run.Zones, store.Zone{Name: z.Name, Area: z.Area, Pixels: z.Pixels, Mean: z.Mean})
		}
	}

	entry := a.log.WithFields(logrus.Fields{
		"run":         id,
		"file":        filename,
		"hands":       run.Hands,
		"duration_ms": run.DurationMS,
		"status":      run.Status,
	})
	if runErr != nil {
		entry.WithError(runErr).Warn("Run failed")
	} else {
		entry.Info("Run finished")
	}

	if a.config.Store != nil {
		if err := a.config.Store.Runs().Create(run); err != nil {
			a.log.WithError(err).WithField("run", id).Error("Failed to store run")
		}
	}

	a.mu.Lock()
	a.lastRun = run
	callback := a.onRun
	a.mu.Unlock()

	if callback != nil {
		callback(run)
	}
}

// Close stops the preview and releases the detector.
func (a *App) Close() error {
	err := a.StopPreview()
	if a.config.Detector != nil {
		err = multierr.Append(err, a.config.Detector.Close())
	}
	return err
}
