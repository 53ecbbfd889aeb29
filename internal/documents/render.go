package documents

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/elec-mate/elecmate-engine/internal/forms"
	"github.com/elec-mate/elecmate-engine/internal/models"
)

const (
	labelWidth = 62.0
	rowHeight  = 7.0
)

// renderPDF lays out one row per field. With values == nil the rows are
// left empty for completion by hand.
func renderPDF(tmpl *models.DocumentTemplate, values map[string]string, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tmpl.Name, true)
	pdf.SetCreator("Elec-Mate", true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s | %s | Page %d", tmpl.ID, generatedAt.Format("02/01/2006 15:04"), pdf.PageNo()),
			"", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(tmpl.Name), "", 1, "L", false, 0, "")

	if tmpl.Description != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(tmpl.Description), "", "L", false)
	}

	if badges := badgeLine(tmpl); badges != "" {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetTextColor(0, 82, 147)
		pdf.CellFormat(0, 7, tr(badges), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	for _, f := range tmpl.Fields {
		label := f.Label
		if f.Required {
			label += " *"
		}

		y := pdf.GetY()
		pdf.SetFont("Arial", "B", 10)
		pdf.MultiCell(labelWidth, rowHeight, tr(label), "", "L", false)
		labelBottom := pdf.GetY()

		pdf.SetXY(pdf.GetX()+labelWidth, y)
		pdf.SetFont("Arial", "", 10)
		if values == nil {
			pdf.CellFormat(0, rowHeight, "", "B", 1, "L", false, 0, "")
		} else {
			pdf.MultiCell(0, rowHeight, tr(displayValue(f, values[f.Name])), "", "L", false)
		}
		if pdf.GetY() < labelBottom {
			pdf.SetY(labelBottom)
		}
		pdf.Ln(1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func badgeLine(tmpl *models.DocumentTemplate) string {
	var parts []string
	if tmpl.UKSpecific {
		parts = append(parts, "UK Specific")
	}
	parts = append(parts, tmpl.RegulationCompliant...)
	return strings.Join(parts, "  |  ")
}

func displayValue(f forms.Field, v string) string {
	if v == "" {
		return "-"
	}
	if prefix := f.Kind.Input().Prefix; prefix != "" && !strings.HasPrefix(v, prefix) {
		return prefix + v
	}
	return v
}
