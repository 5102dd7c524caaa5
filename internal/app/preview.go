package app

import (
	"errors"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/Furulango/handseg/internal/capture"
	"github.com/Furulango/handseg/internal/segment"
)

// ErrPreviewRunning is returned when StartPreview is called twice.
var ErrPreviewRunning = errors.New("preview already running")

// HandSummary describes one hand of a preview frame.
type HandSummary struct {
	Handedness string `json:"handedness"`
	Steps      int    `json:"steps"`
	Reason     string `json:"reason"`
	Contours   int    `json:"contours"`
}

// Frame is one segmented preview frame.
type Frame struct {
	JPEG      []byte        `json:"-"`
	Hands     []HandSummary `json:"hands"`
	Timestamp int64         `json:"timestamp"`
}

type preview struct {
	mu          sync.Mutex
	source      capture.Source
	stopCh      chan struct{}
	done        chan struct{}
	subscribers map[chan Frame]struct{}
}

// StartPreview opens src and segments its frames at the source rate until
// StopPreview. Frames are only processed while someone is subscribed. Every
// frame is segmented independently. The App takes ownership of src.
func (a *App) StartPreview(src capture.Source) error {
	p := &a.preview
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopCh != nil {
		return ErrPreviewRunning
	}
	if err := src.Open(); err != nil {
		return err
	}

	p.source = src
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	go a.runPreview(src, p.stopCh, p.done)

	a.log.WithField("fps", src.FPS()).Info("Preview started")
	return nil
}

// StopPreview halts the preview loop and closes its source. Stopping a
// preview that is not running is a no-op.
func (a *App) StopPreview() error {
	p := &a.preview
	p.mu.Lock()
	if p.stopCh == nil {
		p.mu.Unlock()
		return nil
	}
	close(p.stopCh)
	done, src := p.done, p.source
	p.stopCh, p.done, p.source = nil, nil, nil
	p.mu.Unlock()

	<-done
	a.log.Info("Preview stopped")
	return src.Close()
}

// Previewing reports whether the preview loop is running.
func (a *App) Previewing() bool {
	p := &a.preview
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopCh != nil
}

// Subscribe returns a channel receiving preview frames and a function that
// cancels the subscription. Slow subscribers miss frames.
func (a *App) Subscribe() (<-chan Frame, func()) {
	p := &a.preview
	ch := make(chan Frame, 1)

	p.mu.Lock()
	if p.subscribers == nil {
		p.subscribers = make(map[chan Frame]struct{})
	}
	p.subscribers[ch] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subscribers, ch)
			p.mu.Unlock()
		})
	}
}

func (a *App) subscribed() bool {
	p := &a.preview
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers) > 0
}

func (a *App) publish(f Frame) {
	p := &a.preview
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subscribers {
		select {
		case ch <- f:
		default:
		}
	}
}

func (a *App) runPreview(src capture.Source, stopCh, done chan struct{}) {
	defer close(done)

	fps := src.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.subscribed() {
				continue
			}

			frame, err := src.ReadFrame()
			if err != nil {
				a.log.WithError(err).Debug("Preview frame unavailable")
				continue
			}

			f, err := a.previewFrame(*frame)
			frame.Close()
			if err != nil {
				a.log.WithError(err).Warn("Preview frame failed")
				continue
			}
			a.publish(f)
		}
	}
}

// previewFrame detects and segments one camera frame.
func (a *App) previewFrame(img gocv.Mat) (Frame, error) {
	f := Frame{Timestamp: time.Now().UnixMilli()}

	if d := a.config.Detector; d != nil {
		hands, err := d.Detect(&img)
		if err != nil {
			return f, err
		}

		res, err := a.segmenter.Segment(img, hands)
		if err != nil {
			return f, err
		}
		defer res.Close()

		for _, h := range res.Hands {
			f.Hands = append(f.Hands, HandSummary{
				Handedness: h.Handedness,
				Steps:      h.Palm.Steps,
				Reason:     h.Palm.Reason.String(),
				Contours:   len(h.Contours),
			})
		}
		f.JPEG, err = segment.Encode(res.Image, gocv.JPEGFileExt)
		return f, err
	}

	var err error
	f.JPEG, err = segment.Encode(img, gocv.JPEGFileExt)
	return f, err
}
