// Package tray provides a system tray menu for the segmentation server.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/Furulango/handseg/internal/store"
)

// Tray represents the system tray application.
type Tray struct {
	onOpen func()
	onQuit func()
	last   string
	mu     sync.RWMutex

	menuLastRun *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{last: Summary(nil)}
}

// OnOpen sets the callback invoked by "Open in browser".
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback invoked before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

func (t *Tray) onReady() {
	systray.SetTitle("handseg")
	systray.SetTooltip("Hand segmentation")

	t.mu.Lock()
	t.menuLastRun = systray.AddMenuItem(t.last, "Most recent segmentation")
	t.menuLastRun.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open in browser", "Open the upload page")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Stop the server")

	go func() {
		for {
			select {
			case <-menuOpen.ClickedCh:
				t.mu.RLock()
				callback := t.onOpen
				t.mu.RUnlock()
				if callback != nil {
					callback()
				}
			case <-menuQuit.ClickedCh:
				t.Quit()
				return
			}
		}
	}()
}

// Quit runs the quit callback and exits the tray loop.
func (t *Tray) Quit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// SetLastRun updates the last run line of the menu.
func (t *Tray) SetLastRun(run *store.Run) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = Summary(run)
	if t.menuLastRun != nil {
		t.menuLastRun.SetTitle(t.last)
	}
}

// LastRun returns the text shown for the last run.
func (t *Tray) LastRun() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// Summary renders a run as a single menu line.
func Summary(run *store.Run) string {
	if run == nil {
		return "Last run: none"
	}
	name := run.Filename
	if name == "" {
		name = "upload"
	}
	if run.Status == store.RunStatusFailed {
		return fmt.Sprintf("Last run: %s failed", name)
	}
	hands := "hands"
	if run.Hands == 1 {
		hands = "hand"
	}
	return fmt.Sprintf("Last run: %s, %d %s, %d ms", name, run.Hands, hands, run.DurationMS)
}
