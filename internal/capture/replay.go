package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// Replay plays back a fixed set of frames. It owns copies of the frames it
// was given and releases them on Release.
type Replay struct {
	frames  []gocv.Mat
	index   int
	loop    bool
	fps     int
	mu      sync.Mutex
	running bool
}

// NewReplay creates a Replay over clones of frames. With loop set, playback
// wraps around instead of returning ErrNoFrames.
func NewReplay(frames []gocv.Mat, loop bool) *Replay {
	owned := make([]gocv.Mat, len(frames))
	for i := range frames {
		owned[i] = frames[i].Clone()
	}
	return &Replay{frames: owned, loop: loop, fps: DefaultFPS}
}

// Open restarts playback from the first frame.
func (r *Replay) Open() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = true
	r.index = 0
	return nil
}

// Close stops playback. Frames are kept so the replay can be reopened.
func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	return nil
}

// Release frees the frames.
func (r *Replay) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.frames {
		r.frames[i].Close()
	}
	r.frames = nil
	r.running = false
}

// ReadFrame returns a clone of the next frame.
func (r *Replay) ReadFrame() (*gocv.Mat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil, ErrCameraNotOpen
	}
	if len(r.frames) == 0 {
		return nil, ErrNoFrames
	}

	if r.index >= len(r.frames) {
		if !r.loop {
			return nil, ErrNoFrames
		}
		r.index = 0
	}

	frame := r.frames[r.index].Clone()
	r.index++
	return &frame, nil
}

func (r *Replay) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fps = fps
}

func (r *Replay) FPS() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fps
}

func (r *Replay) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
