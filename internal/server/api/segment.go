package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Furulango/handseg/internal/app"
	"github.com/Furulango/handseg/internal/detector"
	"github.com/Furulango/handseg/internal/segment"
)

// DefaultMaxUploadBytes bounds the multipart body of a segmentation request.
const DefaultMaxUploadBytes = 32 << 20

// RunIDHeader carries the id of the stored run on successful responses.
const RunIDHeader = "X-Run-ID"

// SegmentHandler handles POST /api/segment/hands.
type SegmentHandler struct {
	app      *app.App
	maxBytes int64
}

// NewSegmentHandler creates a SegmentHandler. A maxBytes of zero or less
// selects DefaultMaxUploadBytes.
func NewSegmentHandler(a *app.App, maxBytes int64) *SegmentHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &SegmentHandler{app: a, maxBytes: maxBytes}
}

// ServeHTTP accepts a multipart form with the image in "file" and optional
// normalized landmarks JSON in "landmarks". The response is the PDF report or
// the annotated image, selected by the format query parameter.
func (h *SegmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format, err := app.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		writeError(w, http.StatusBadRequest, "File must be an image")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	var hands []detector.HandLandmarks
	if raw := r.FormValue("landmarks"); raw != "" {
		hands, err = detector.ParseHands([]byte(raw))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	out, err := h.app.Process(r.Context(), app.Request{
		Filename: header.Filename,
		Data:     data,
		Hands:    hands,
		Format:   format,
	})
	if err != nil {
		switch {
		case errors.Is(err, segment.ErrDecodeImage):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "Processing timed out")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", out.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Body)))
	w.Header().Set(RunIDHeader, out.RunID)
	if format == app.FormatPDF {
		w.Header().Set("Content-Disposition", `attachment; filename="hand_report.pdf"`)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(out.Body)
}
