// Package report renders segmentation results as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"codeberg.org/go-pdf/fpdf"

	"github.com/Furulango/handseg/internal/analysis"
)

const (
	pageTitle  = "Hand Segmentation Result"
	zonesTitle = "Pixel Intensity Analysis"
	imageName  = "annotated"
	imageWidth = 180.0
)

// Data is the content of one report.
type Data struct {
	RunID    string
	Filename string
	// Image is the annotated image, PNG encoded.
	Image     []byte
	Hands     int
	Zones     []analysis.Zone
	CreatedAt time.Time
}

// Write renders d as a PDF to w.
func Write(w io.Writer, d Data) error {
	if len(d.Image) == 0 {
		return fmt.Errorf("write report: no image")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	if !d.CreatedAt.IsZero() {
		pdf.SetCreationDate(d.CreatedAt)
	}
	pdf.SetTitle(pageTitle, false)

	pdf.AddPage()
	pdf.SetFont("Arial", "", 16)
	pdf.CellFormat(0, 10, pageTitle, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	if d.Filename != "" {
		pdf.CellFormat(0, 6, "Source: "+d.Filename, "", 1, "L", false, 0, "")
	}
	if d.RunID != "" {
		pdf.CellFormat(0, 6, "Run: "+d.RunID, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(d.Image))
	pdf.ImageOptions(imageName, 10, pdf.GetY(), imageWidth, 0, true, opts, 0, "")

	pdf.Ln(4)
	pdf.CellFormat(0, 8, fmt.Sprintf("Hands processed: %d", d.Hands), "", 1, "L", false, 0, "")

	if len(d.Zones) > 0 {
		writeZones(pdf, d.Zones)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func writeZones(pdf *fpdf.Fpdf, zones []analysis.Zone) {
	pdf.AddPage()
	pdf.SetFont("Arial", "", 16)
	pdf.CellFormat(0, 10, zonesTitle, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 8, "Hand zone", "1", 0, "C", false, 0, "")
	pdf.CellFormat(90, 8, "Mean intensity", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, z := range zones {
		pdf.CellFormat(90, 8, z.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(90, 8, fmt.Sprintf("%.2f", z.Mean), "1", 1, "C", false, 0, "")
	}
}
