package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestNewCamera(t *testing.T) {
	tests := []struct {
		name       string
		config     Config
		wantFPS    int
		wantWidth  int
		wantHeight int
	}{
		{"zero config", Config{}, DefaultFPS, DefaultWidth, DefaultHeight},
		{"custom rate", Config{DeviceID: 1, FPS: 12}, 12, DefaultWidth, DefaultHeight},
		{"custom size", Config{Width: 1280, Height: 720}, DefaultFPS, 1280, 720},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.config)

			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
			if cam.config.Width != tt.wantWidth || cam.config.Height != tt.wantHeight {
				t.Errorf("size = %dx%d, want %dx%d", cam.config.Width, cam.config.Height, tt.wantWidth, tt.wantHeight)
			}
			if cam.IsOpen() {
				t.Error("camera should not be open initially")
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{"set to 10", 10, 10},
		{"set to 1", 1, 1},
		{"zero keeps previous", 0, 1},
		{"negative keeps previous", -5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)
			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
		})
	}
}

func TestCamera_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on a closed camera = %v, want nil", err)
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(DefaultConfig())
	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}
	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Empty() {
			t.Error("ReadFrame() returned empty mat")
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

func TestReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame1 := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	t.Run("not open", func(t *testing.T) {
		r := NewReplay([]gocv.Mat{frame1}, false)
		defer r.Release()

		if _, err := r.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
			t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
		}
	})

	t.Run("plays once", func(t *testing.T) {
		r := NewReplay([]gocv.Mat{frame1, frame2}, false)
		defer r.Release()
		r.Open()

		for i := 0; i < 2; i++ {
			f, err := r.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame() %d error = %v", i, err)
			}
			f.Close()
		}
		if _, err := r.ReadFrame(); !errors.Is(err, ErrNoFrames) {
			t.Errorf("ReadFrame() error = %v, want ErrNoFrames", err)
		}

		r.Close()
		r.Open()
		f, err := r.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() after reopen error = %v", err)
		}
		f.Close()
	})

	t.Run("loops", func(t *testing.T) {
		r := NewReplay([]gocv.Mat{frame1}, true)
		defer r.Release()
		r.Open()

		for i := 0; i < 5; i++ {
			f, err := r.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame() %d error = %v", i, err)
			}
			f.Close()
		}
	})

	t.Run("empty", func(t *testing.T) {
		r := NewReplay(nil, true)
		r.Open()
		if _, err := r.ReadFrame(); !errors.Is(err, ErrNoFrames) {
			t.Errorf("ReadFrame() error = %v, want ErrNoFrames", err)
		}
	})
}
