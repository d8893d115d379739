package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
)

// PDFExporter renders findings reports as PDF.
type PDFExporter struct{}

var _ ports.ReportExporter = (*PDFExporter)(nil)

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportFindings writes the report as a single PDF document to w.
func (e *PDFExporter) ExportFindings(report *domain.FindingsReport, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf, report)
	e.addRiskScore(pdf, report)
	e.addStatistics(pdf, report)
	e.addTopRisks(pdf, report)
	e.addRecommendations(pdf, report)
	e.addFooter(pdf, report)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, report *domain.FindingsReport) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 15, report.Metadata.Title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, "Generated: "+report.Metadata.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")

	scope := "Scope: all assets"
	if report.Metadata.AssetID != nil {
		scope = fmt.Sprintf("Scope: asset %d", *report.Metadata.AssetID)
	}
	pdf.CellFormat(0, 6, scope, "", 1, "L", false, 0, "")
	pdf.Ln(8)
}

func (e *PDFExporter) addRiskScore(pdf *gofpdf.Fpdf, report *domain.FindingsReport) {
	r, g, b := riskColor(report.RiskScore)
	pdf.SetFillColor(r, g, b)
	pdf.Rect(20, pdf.GetY(), 170, 30, "F")

	y := pdf.GetY()
	pdf.SetFont("Arial", "B", 36)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(25, y+5)
	pdf.CellFormat(80, 20, fmt.Sprintf("%.1f/10", report.RiskScore), "", 0, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 18)
	pdf.SetXY(110, y+8)
	pdf.CellFormat(80, 14, report.RiskLevel+" Risk", "", 0, "L", false, 0, "")

	pdf.SetY(y + 35)
	pdf.Ln(5)
}

func (e *PDFExporter) addStatistics(pdf *gofpdf.Fpdf, report *domain.FindingsReport) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Exposure Overview", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	s := report.Stats
	stats := []struct {
		label string
		value int
		color [3]int
	}{
		{"Affected Assets", report.Assets, [3]int{0, 102, 204}},
		{"Total Findings", s.Total, [3]int{0, 102, 204}},
		{"Critical", s.Critical, [3]int{220, 53, 69}},
		{"High", s.High, [3]int{255, 149, 0}},
		{"Medium", s.Medium, [3]int{255, 204, 0}},
		{"Low", s.Low, [3]int{52, 199, 89}},
		{"Known Exploited", s.KEV, [3]int{220, 53, 69}},
		{"Unscored", s.Unknown, [3]int{150, 150, 150}},
	}

	colWidth := 85.0
	for i, stat := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, stat.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(stat.color[0], stat.color[1], stat.color[2])
		pdf.CellFormat(colWidth-50, 7, fmt.Sprintf("%d", stat.value), "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}
	pdf.Ln(10)
}

func (e *PDFExporter) addTopRisks(pdf *gofpdf.Fpdf, report *domain.FindingsReport) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Top Vulnerabilities", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(report.TopRisks) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No findings", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(15, 8, "Rank", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 8, "CVE", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Severity", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 8, "CVSS", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 8, "KEV", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Assets", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, risk := range report.TopRisks {
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		r, g, b := severityColor(risk.Severity)

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", risk.Rank), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 7, risk.CVEID, "1", 0, "L", false, 0, "")

		pdf.SetTextColor(r, g, b)
		severity := risk.Severity
		if severity == "" {
			severity = "-"
		}
		pdf.CellFormat(30, 7, severity, "1", 0, "C", false, 0, "")

		pdf.SetTextColor(60, 60, 60)
		cvss := "-"
		if risk.CVSS > 0 {
			cvss = fmt.Sprintf("%.1f", risk.CVSS)
		}
		pdf.CellFormat(20, 7, cvss, "1", 0, "C", false, 0, "")

		kev := ""
		if risk.KEV {
			kev = "Yes"
		}
		pdf.CellFormat(20, 7, kev, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("%d", risk.AffectedAssets), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(8)
}

func (e *PDFExporter) addRecommendations(pdf *gofpdf.Fpdf, report *domain.FindingsReport) {
	if len(report.Recommendations) == 0 {
		return
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Priority Recommendations", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, rec := range report.Recommendations {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		r, g, b := severityColor(rec.Priority)
		pdf.SetFillColor(r, g, b)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(25, 6, rec.Priority, "", 0, "C", true, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 51, 102)
		pdf.CellFormat(0, 6, "  "+rec.Title, "", 1, "L", false, 0, "")
		pdf.Ln(1)

		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(60, 60, 60)
		pdf.MultiCell(0, 5, rec.Description, "", "L", false)
		pdf.Ln(1)

		for _, action := range rec.Actions {
			if len(action) > 100 {
				action = action[:97] + "..."
			}
			pdf.CellFormat(5, 5, "", "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 5, "- "+action, "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, report *domain.FindingsReport) {
	pdf.SetY(-20)
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)

	id := report.Metadata.ID
	if len(id) > 8 {
		id = id[:8]
	}
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated by %s | Report ID: %s", report.Metadata.GeneratedBy, id), "", 1, "C", false, 0, "")
}

func riskColor(score float64) (r, g, b int) {
	switch {
	case score >= 9.0:
		return 220, 53, 69
	case score >= 7.0:
		return 255, 149, 0
	case score >= 4.0:
		return 255, 204, 0
	default:
		return 52, 199, 89
	}
}

func severityColor(severity string) (r, g, b int) {
	switch strings.ToUpper(severity) {
	case "CRITICAL":
		return 220, 53, 69
	case "HIGH":
		return 255, 149, 0
	case "MEDIUM":
		return 204, 153, 0
	case "LOW":
		return 52, 199, 89
	default:
		return 120, 120, 120
	}
}
