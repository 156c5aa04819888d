package grainpipeline

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"grainpipeline/gradation"
)

const pdfMargin = 15 // margin in mm on an A4 page

// ReportMeta is caller-supplied sample metadata embedded in a
// report; none of it is produced by the pipeline itself.
type ReportMeta struct {
	Location string
	Contact  string
	RockType string
}

type Report struct {
	fpdf *gofpdf.Fpdf
	tr   func(string) string
}

// Setup creates a new PDF with appropriate settings and fonts
func (r *Report) Setup() error {
	r.fpdf = gofpdf.New("P", "mm", "A4", "")
	// Sieve labels use µ, which the core fonts can represent but
	// needs translating from UTF-8 first.
	r.tr = r.fpdf.UnicodeTranslatorFromDescriptor("")
	r.fpdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	r.fpdf.SetFont("Helvetica", "", 11)
	r.fpdf.AddPage()
	return r.fpdf.Error()
}

func (r *Report) keyval(key string, val string) {
	r.fpdf.SetFont("Helvetica", "B", 11)
	r.fpdf.CellFormat(50, 7, r.tr(key), "", 0, "L", false, 0, "")
	r.fpdf.SetFont("Helvetica", "", 11)
	r.fpdf.CellFormat(0, 7, r.tr(val), "", 1, "L", false, 0, "")
}

// AddSummary adds a titled header section with the sample metadata
// and the headline numbers of the sieve analysis. The D values and
// coefficients are only meaningful for calibrated samples, so they
// are skipped when calibrated is false.
func (r *Report) AddSummary(samplename string, meta ReportMeta, sum gradation.Summary, calibrated bool) {
	r.fpdf.SetFont("Helvetica", "B", 16)
	r.fpdf.CellFormat(0, 10, r.tr("Grain size distribution: "+samplename), "", 1, "L", false, 0, "")
	r.fpdf.Ln(3)

	if meta.Location != "" {
		r.keyval("Location", meta.Location)
	}
	if meta.Contact != "" {
		r.keyval("Point of contact", meta.Contact)
	}
	if meta.RockType != "" {
		r.keyval("Rock type", meta.RockType)
	}
	r.keyval("Grains measured", fmt.Sprintf("%d", sum.Count))

	if !calibrated {
		r.fpdf.Ln(3)
		r.fpdf.SetFont("Helvetica", "I", 11)
		r.fpdf.CellFormat(0, 7, "Sample is uncalibrated; measurements are in pixels only.", "", 1, "L", false, 0, "")
		return
	}

	r.keyval("Mean diameter", fmt.Sprintf("%.3f mm", sum.MeanMm))
	r.keyval("Std deviation", fmt.Sprintf("%.3f mm", sum.StdDevMm))
	r.keyval("D10 / D30 / D60", fmt.Sprintf("%.3f / %.3f / %.3f mm", sum.D10, sum.D30, sum.D60))
	if sum.Cu > 0 {
		r.keyval("Cu / Cc", fmt.Sprintf("%.2f / %.2f", sum.Cu, sum.Cc))
	}
}

// AddCurve adds a table of the gradation curve, one row per sieve.
func (r *Report) AddCurve(c gradation.Curve) {
	r.fpdf.Ln(5)
	r.fpdf.SetFont("Helvetica", "B", 11)
	for _, h := range []string{"Sieve", "Size (mm)", "Passing (%)", "Retained (%)"} {
		r.fpdf.CellFormat(40, 7, h, "1", 0, "C", false, 0, "")
	}
	r.fpdf.Ln(-1)
	r.fpdf.SetFont("Helvetica", "", 11)
	for i, s := range gradation.Sieves {
		r.fpdf.CellFormat(40, 7, r.tr(s.Label), "1", 0, "C", false, 0, "")
		r.fpdf.CellFormat(40, 7, fmt.Sprintf("%g", s.SizeMm), "1", 0, "C", false, 0, "")
		r.fpdf.CellFormat(40, 7, fmt.Sprintf("%.2f", c.Passing[i]), "1", 0, "C", false, 0, "")
		r.fpdf.CellFormat(40, 7, fmt.Sprintf("%.2f", c.Retained[i]), "1", 1, "C", false, 0, "")
	}
}

// AddGraph adds the gradation curve graph image on its own page.
func (r *Report) AddGraph(pngpath string) error {
	info := r.fpdf.RegisterImageOptions(pngpath, gofpdf.ImageOptions{})
	if r.fpdf.Err() {
		return fmt.Errorf("Could not load graph %s: %v", pngpath, r.fpdf.Error())
	}
	r.fpdf.AddPage()
	w, h := r.fpdf.GetPageSize()
	w -= 2 * pdfMargin
	if info.Height()*w/info.Width() > h-2*pdfMargin {
		w = (h - 2*pdfMargin) * info.Width() / info.Height()
	}
	r.fpdf.ImageOptions(pngpath, pdfMargin, pdfMargin, w, 0, false, gofpdf.ImageOptions{}, 0, "")
	return r.fpdf.Error()
}

// Save saves the PDF to the file at path
func (r *Report) Save(path string) error {
	return r.fpdf.OutputFileAndClose(path)
}
