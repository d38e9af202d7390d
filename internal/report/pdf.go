package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

// score cell colors per score value
var scoreColors = map[int][3]int{
	0: {231, 76, 60},
	1: {241, 196, 15},
	2: {46, 204, 113},
}

var scoreLabels = map[int]string{
	0: "Not mentioned",
	1: "Mentioned",
	2: "Primary recommendation",
}

// BuildPDF renders the report as a PDF and writes it to path, creating the
// parent directory if needed.
func BuildPDF(d *Data, path string) error {
	pdf := newReportPDF(d.BusinessName)

	addCoverPage(pdf, d)
	addSummarySection(pdf, d)
	addQueryDetails(pdf, d)
	addCompetitorSection(pdf, d)
	addRecommendations(pdf, d)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func newReportPDF(businessName string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")

	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() == 1 {
			return
		}
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, sanitizeText("EkkoScope Report - "+businessName), "", 1, "L", false, 0, "")
	})

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(95, 10, "EkkoScope - AI GEO Visibility Scanner", "", 0, "L", false, 0, "")
		pdf.CellFormat(95, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	return pdf
}

func addCoverPage(pdf *fpdf.Fpdf, d *Data) {
	pdf.AddPage()
	pdf.SetY(60)

	pdf.SetFont("Helvetica", "B", 32)
	pdf.SetTextColor(33, 33, 33)
	pdf.CellFormat(0, 20, "EkkoScope", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 16)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 10, "AI GEO Visibility Report", "", 1, "C", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(33, 33, 33)
	pdf.MultiCell(0, 12, sanitizeText(d.BusinessName), "", "C", false)

	pdf.Ln(20)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 8, "Generated: "+d.GeneratedAt.UTC().Format("January 2, 2006"), "", 1, "C", false, 0, "")
	if d.Domain != "" {
		pdf.CellFormat(0, 8, sanitizeText(normalizeDomain(d.Domain)), "", 1, "C", false, 0, "")
	}
}

func addSummarySection(pdf *fpdf.Fpdf, d *Data) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(33, 33, 33)
	pdf.CellFormat(0, 12, "AI Visibility Summary", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	rows := [][2]string{
		{"Visibility Score:", fmt.Sprintf("%.1f%%", d.TrueScore.CalculatedScore)},
		{"Risk Level:", d.TrueScore.RiskLevel},
		{"Queries Analyzed:", fmt.Sprintf("%d", d.TrueScore.TotalQueries)},
		{"Mentioned:", fmt.Sprintf("%d", d.MentionedCount())},
		{"Primary:", fmt.Sprintf("%d", d.PrimaryCount())},
	}
	for _, row := range rows {
		pdf.CellFormat(90, 10, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 10, row[1], "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Score Distribution", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)

	dist := d.ScoreDistribution()
	total := d.TrueScore.TotalQueries
	for _, score := range []int{2, 1, 0} {
		count := dist[score]
		percent := 0.0
		if total > 0 {
			percent = float64(count) / float64(total) * 100
		}
		c := scoreColors[score]
		pdf.SetFillColor(c[0], c[1], c[2])
		pdf.CellFormat(30, 8, fmt.Sprintf("Score %d", score), "", 0, "C", true, 0, "")
		pdf.CellFormat(60, 8, "  "+scoreLabels[score], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, fmt.Sprintf("%d queries (%.0f%%)", count, percent), "", 1, "L", false, 0, "")
	}

	if d.Content.ExecutiveSummary != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 10, "Key Insights", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, sanitizeText(d.Content.ExecutiveSummary), "", "L", false)
	}
}

func addQueryDetails(pdf *fpdf.Fpdf, d *Data) {
	if len(d.Queries) == 0 {
		return
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(33, 33, 33)
	pdf.CellFormat(0, 12, "Per-Query Analysis", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{120, 25, 45}
	headers := []string{"Query", "Score", "Status"}

	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range headers {
			pdf.CellFormat(widths[i], 10, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	drawHeader()

	for _, q := range d.Queries {
		if pdf.GetY() > 260 {
			pdf.AddPage()
			drawHeader()
		}
		c := scoreColors[q.Score]
		pdf.SetFillColor(c[0], c[1], c[2])

		text := q.Query
		if len(text) > 70 {
			text = text[:67] + "..."
		}
		pdf.CellFormat(widths[0], 10, sanitizeText(text), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 10, fmt.Sprintf("%d", q.Score), "1", 0, "C", true, 0, "")
		pdf.CellFormat(widths[2], 10, scoreLabels[q.Score], "1", 1, "C", false, 0, "")
	}
}

func addCompetitorSection(pdf *fpdf.Fpdf, d *Data) {
	if len(d.Competitors) == 0 {
		return
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(33, 33, 33)
	pdf.CellFormat(0, 12, "Competitor Overview", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, "These businesses were mentioned in AI responses across your analyzed queries. "+
		"Understanding your competition helps identify opportunities for improvement.", "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(110, 10, "Competitor", "1", 0, "L", true, 0, "")
	pdf.CellFormat(80, 10, "Mentioned In", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	fill := false
	for _, c := range d.Competitors {
		pdf.SetFillColor(245, 245, 245)
		pdf.CellFormat(110, 10, sanitizeText(c.Name), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(80, 10, fmt.Sprintf("%d of %d queries", c.Count, d.TrueScore.TotalQueries), "1", 1, "C", fill, 0, "")
		fill = !fill
	}
}

func addRecommendations(pdf *fpdf.Fpdf, d *Data) {
	if len(d.Content.Suggestions) == 0 {
		return
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(33, 33, 33)
	pdf.CellFormat(0, 12, "Recommended Actions", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, s := range d.Content.Suggestions {
		pdf.SetFont("Helvetica", "B", 11)
		title := s.Title
		if s.Priority != "" {
			title = "[" + s.Priority + "] " + title
		}
		pdf.CellFormat(5, 6, "-", "", 0, "L", false, 0, "")
		pdf.MultiCell(0, 6, sanitizeText(title), "", "L", false)

		if s.Details != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(80, 80, 80)
			pdf.MultiCell(180, 5, sanitizeText(s.Details), "", "L", false)
			pdf.SetTextColor(33, 33, 33)
		}
		pdf.Ln(3)
	}
}

// sanitizeText strips characters outside the PDF core font's codepage.
func sanitizeText(text string) string {
	var sb strings.Builder
	for _, r := range text {
		if r < 128 {
			sb.WriteRune(r)
		} else {
			switch r {
			case '‘', '’':
				sb.WriteByte('\'')
			case '“', '”':
				sb.WriteByte('"')
			case '–', '—':
				sb.WriteByte('-')
			default:
				sb.WriteByte(' ')
			}
		}
	}
	return sb.String()
}
