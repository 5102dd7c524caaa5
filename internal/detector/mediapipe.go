package detector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

const (
	scriptName  = "hand_landmarks.py"
	idleTimeout = 30 * time.Second
)

// MediaPipeDetector runs hand_landmarks.py as a long-lived child process.
//
// Each request is a 4-byte big-endian length followed by a PNG image; each
// response is one JSON line {"hands": [...]} with normalized points. The
// process starts on the first Detect and exits after idleTimeout without
// requests.
type MediaPipeDetector struct {
	config Config
	script string
	python string
	log    *logrus.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	stderr    *io.PipeWriter
	idleTimer *time.Timer
}

// NewMediaPipeDetector locates the landmark script and a Python interpreter
// without starting the process.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	dirs := searchDirs()

	script := lookup(dirs, filepath.Join("scripts", scriptName))
	if script == "" {
		return nil, fmt.Errorf("%s not found in %v", scriptName, dirs)
	}

	python := lookup(dirs, filepath.Join("venv", "bin", "python"))
	if python == "" {
		python = "python3"
	}

	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &MediaPipeDetector{
		config: config,
		script: script,
		python: python,
		log:    log,
	}, nil
}

// Detect sends frame to the landmark service and returns at most
// config.MaxHands hands.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("detect: empty frame")
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	png := buf.GetBytes()

	msg := make([]byte, 4+len(png))
	binary.BigEndian.PutUint32(msg, uint32(len(png)))
	copy(msg[4:], png)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.start(); err != nil {
		return nil, err
	}

	if _, err := d.stdin.Write(msg); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}
	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read landmarks: %w", err)
	}

	hands, err := ParseHands(line)
	if err != nil {
		return nil, fmt.Errorf("parse landmarks: %w", err)
	}
	if d.config.MaxHands > 0 && len(hands) > d.config.MaxHands {
		hands = hands[:d.config.MaxHands]
	}

	d.resetIdleTimer()
	return hands, nil
}

// Close stops the landmark service if it is running.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

// args returns the command line of the landmark service.
func (d *MediaPipeDetector) args() []string {
	args := []string{
		d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
	}
	if d.config.StaticImageMode {
		args = append(args, "--static")
	}
	return args
}

func (d *MediaPipeDetector) start() error {
	if d.cmd != nil {
		return nil
	}

	cmd := exec.Command(d.python, d.args()...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("landmark service stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("landmark service stdout: %w", err)
	}
	stderr := d.log.WithField("component", "landmarks").WriterLevel(logrus.DebugLevel)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		stderr.Close()
		return fmt.Errorf("start landmark service: %w", err)
	}
	d.log.WithFields(logrus.Fields{
		"python": d.python,
		"script": d.script,
		"pid":    cmd.Process.Pid,
	}).Debug("Landmark service started")

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.stderr = stderr
	return nil
}

func (d *MediaPipeDetector) stop() error {
	if d.cmd == nil {
		return nil
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	err := multierr.Combine(d.stdin.Close(), d.cmd.Wait())
	d.stderr.Close()
	d.cmd, d.stdin, d.stdout, d.stderr = nil, nil, nil, nil

	d.log.Debug("Landmark service stopped")
	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.stop(); err != nil {
			d.log.WithError(err).Warn("Landmark service exited with error")
		}
	})
}

// searchDirs lists the directories holding scripts/ and venv/: the working
// directory, its parent, the executable's directory and ~/.handseg.
func searchDirs() []string {
	dirs := []string{".", ".."}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".handseg"))
	}
	return dirs
}

// lookup returns the absolute path of the first dirs/rel that exists, or "".
func lookup(dirs []string, rel string) string {
	for _, dir := range dirs {
		p := filepath.Join(dir, rel)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}

// jsonHand is one hand as written by the landmark service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}
