package conformance

import (
	"fmt"

	"github.com/go-pdf/fpdf"
)

// Report aggregates the outcome of every scenario in the conformance
// suite (§8's end-to-end scenarios) so a single run can be summarized as
// one document.
type Report struct {
	Blargg      []BlarggResult
	Acid2       []Acid2Result
	RTC         RTCResult
	WaveformPNG string // path to a PNG produced by PlotWaveform, embedded if non-empty
}

// GeneratePDF writes a one-page pass/fail summary of report to path: a row
// per Blargg sub-test, a row per acid2 comparison, the RTC sanity result,
// and the waveform PNG embedded as a figure when one was supplied.
func GeneratePDF(report Report, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "gbcore conformance report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Blargg test ROMs")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, r := range report.Blargg {
		pdf.Cell(120, 6, r.ROM)
		pdf.Cell(30, 6, statusText(r.Passed))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "acid2")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, r := range report.Acid2 {
		pdf.Cell(120, 6, r.ROM)
		pdf.Cell(30, 6, statusText(r.Match))
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 8)
		pdf.Cell(0, 5, fmt.Sprintf("framebuffer sha256: %x", r.FrameSHA256))
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "MBC3 RTC sanity")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(120, 6, fmt.Sprintf("h=%02d m=%02d s=%02d", report.RTC.Hours, report.RTC.Minutes, report.RTC.Seconds))
	pdf.Cell(30, 6, statusText(report.RTC.Passed))
	pdf.Ln(10)

	if report.WaveformPNG != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Audio waveform (last drained samples)")
		pdf.Ln(10)
		pdf.ImageOptions(report.WaveformPNG, 10, pdf.GetY(), 190, 0, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("conformance: write pdf report: %w", err)
	}
	return nil
}

func statusText(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}
