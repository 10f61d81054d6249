package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dbailuk/arcgis-automation/internal/errors"
	"github.com/dbailuk/arcgis-automation/internal/fsutil"
	"github.com/dbailuk/arcgis-automation/internal/healthcheck"
	"github.com/go-pdf/fpdf"
)

const pageMargin = 15.0 // mm

func newPDF() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()
	return pdf
}

func writeHeader(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")
	pdf.Ln(4)
}

func writeLines(pdf *fpdf.Fpdf, size float64, lines []string) {
	pdf.SetFont("Helvetica", "", size)
	for _, line := range lines {
		pdf.CellFormat(0, size*0.5, line, "", 1, "L", false, 0, "")
	}
}

// HealthPDF writes the health-check report to path.
func HealthPDF(path string, report healthcheck.RunReport) error {
	pdf := newPDF()
	writeHeader(pdf, "ArcGIS Health Check Report")

	total := len(report.Endpoints)
	successes := 0
	var latencySum time.Duration
	for _, ep := range report.Endpoints {
		if ep.Status == healthcheck.StatusSuccess {
			successes++
			latencySum += ep.Latency
		}
	}
	avgLatency := time.Duration(0)
	if successes > 0 {
		avgLatency = latencySum / time.Duration(successes)
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Summary Statistics:", "", 1, "L", false, 0, "")

	summary := []string{
		fmt.Sprintf("Run ID: %s", report.ID),
		fmt.Sprintf("Generated: %s", report.When.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Total Endpoints Checked: %d", total),
		fmt.Sprintf("Successful Checks: %d", successes),
		fmt.Sprintf("Failed Checks: %d", total-successes),
		fmt.Sprintf("Average Response Time (successful checks): %.2f seconds", avgLatency.Seconds()),
		fmt.Sprintf("ArcGIS Publishing Test: %s", report.Probe.Status),
		fmt.Sprintf("ArcGIS Publishing Test Response Time: %.2f seconds", report.Probe.Elapsed.Seconds()),
	}
	if report.Probe.Err != "" {
		summary = append(summary, "ArcGIS Publishing Test Error: "+report.Probe.Err)
	}
	writeLines(pdf, 12, summary)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Detailed Endpoint Check Results:", "", 1, "L", false, 0, "")

	var details []string
	for _, ep := range report.Endpoints {
		line := fmt.Sprintf("URL: %s, Type: %s, Status: %s, Response Time: %.2f sec",
			ep.URL, ep.Kind, ep.Status, ep.Latency.Seconds())
		if ep.Err != "" {
			line += ", Error: " + ep.Err
		}
		details = append(details, line)
	}
	writeLines(pdf, 10, details)

	return outputPDF(pdf, path)
}

// UserPDF writes the user audit report: the summary text block followed by
// the charts, each centered and scaled to a uniform width. Nil chart
// buffers are skipped.
func UserPDF(path, summary string, charts ...*bytes.Buffer) error {
	pdf := newPDF()
	writeHeader(pdf, "ArcGIS User Management Report")

	writeLines(pdf, 10, strings.Split(summary, "\n"))
	pdf.Ln(8)

	pageW, pageH := pdf.GetPageSize()
	displayW := 140.0 // mm

	for i, chartBuf := range charts {
		if chartBuf == nil {
			continue
		}

		name := fmt.Sprintf("chart-%d", i)
		info := pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, chartBuf)
		if pdf.Err() {
			return fmt.Errorf("%w: %s", errors.ErrReportWrite, pdf.Error().Error())
		}

		displayH := displayW * info.Height() / info.Width()
		if pdf.GetY()+displayH > pageH-pageMargin {
			pdf.AddPage()
		}
		x := (pageW - displayW) / 2
		pdf.ImageOptions(name, x, pdf.GetY(), displayW, displayH, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.SetY(pdf.GetY() + displayH + 8)
	}

	return outputPDF(pdf, path)
}

func outputPDF(pdf *fpdf.Fpdf, path string) error {
	if err := fsutil.CreateDirIfNotExists(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrReportWrite, err.Error())
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrReportWrite, err.Error())
	}
	return nil
}
