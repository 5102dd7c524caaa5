package server

import (
	"fmt"
	"net/http"

	"github.com/Furulango/handseg/internal/app"
)

// StreamHandler serves the annotated preview as MJPEG.
type StreamHandler struct {
	app *app.App
}

// NewStreamHandler creates a new StreamHandler for the preview of a.
func NewStreamHandler(a *app.App) *StreamHandler {
	return &StreamHandler{app: a}
}

// ServeHTTP streams preview frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frames, cancel := h.app.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		case f := <-frames:
			if len(f.JPEG) == 0 {
				continue
			}
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(f.JPEG))
			if _, err := w.Write(f.JPEG); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")

			if fl, ok := w.(http.Flusher); ok {
				fl.Flush()
			}
		}
	}
}
