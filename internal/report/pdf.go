package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"oticagest/backend/internal/domain"
)

// Document is a fully rendered export artifact plus the totals computed from
// the exact record set written into its body.
type Document struct {
	PDF             []byte
	FileName        string
	TotalSales      int
	TotalValueCents int64
}

var paperSizes = map[string]string{
	PaperA4:     "A4",
	PaperLetter: "Letter",
	PaperLegal:  "Legal",
}

var orientations = map[string]string{
	OrientationPortrait:  "P",
	OrientationLandscape: "L",
}

// Render produces the paginated PDF for the given record set. The title and
// header block appear on the first page only; the footer (with page numbers)
// repeats on every page. Rendering an empty record set yields a document
// with headers, zeroed totals and an empty table body.
func Render(records []domain.SaleRecord, period Period, opts FormatOptions, now time.Time) (*Document, error) {
	paper, ok := paperSizes[strings.ToLower(strings.TrimSpace(opts.PaperSize))]
	if !ok {
		return nil, ValidationError(fmt.Sprintf("unknown paper size %q", opts.PaperSize))
	}
	orientation, ok := orientations[strings.ToLower(strings.TrimSpace(opts.Orientation))]
	if !ok {
		return nil, ValidationError(fmt.Sprintf("unknown orientation %q", opts.Orientation))
	}
	columns, err := NormalizeColumns(opts.Columns)
	if err != nil {
		return nil, err
	}

	totalSales := len(records)
	var totalValueCents int64
	for _, rec := range records {
		totalValueCents += rec.TotalCents
	}

	pdf := gofpdf.New(orientation, "mm", paper, "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AliasNbPages("")
	pdf.SetAutoPageBreak(true, 20)

	pageWidth, _ := pdf.GetPageSize()
	marginLeft, _, marginRight, _ := pdf.GetMargins()
	usableWidth := pageWidth - marginLeft - marginRight

	widths := make([]float64, len(columns))
	var weightSum float64
	for _, col := range columns {
		weightSum += columnWeights[col]
	}
	for i, col := range columns {
		widths[i] = usableWidth * columnWeights[col] / weightSum
	}

	drawTableHead := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(40, 40, 40)
		pdf.SetTextColor(255, 255, 255)
		for i, col := range columns {
			pdf.CellFormat(widths[i], 8, tr(col.Header()), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(50, 50, 50)
	}

	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() == 1 {
			pdf.SetFont("Arial", "", 10)
			pdf.SetTextColor(100, 100, 100)
			pdf.CellFormat(0, 6, tr(ExpandTemplate(opts.HeaderText, FormatDate(now))), "", 1, "L", false, 0, "")
			pdf.Ln(2)

			pdf.SetFont("Arial", "B", 16)
			pdf.SetTextColor(0, 0, 0)
			pdf.CellFormat(0, 10, tr(opts.Title), "", 1, "L", false, 0, "")

			pdf.SetFont("Arial", "", 10)
			pdf.SetTextColor(50, 50, 50)
			periodLine := fmt.Sprintf("Período: %s a %s", FormatDate(period.From), FormatDate(period.To))
			pdf.CellFormat(0, 6, tr(periodLine), "", 1, "L", false, 0, "")
			pdf.CellFormat(0, 6, tr(fmt.Sprintf("Total de vendas: %d", totalSales)), "", 1, "L", false, 0, "")
			pdf.CellFormat(0, 6, tr(fmt.Sprintf("Valor total: %s", FormatBRL(totalValueCents))), "", 1, "L", false, 0, "")
			pdf.Ln(4)
		}
		drawTableHead()
	})

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		footer := fmt.Sprintf("%s - Página %d de {nb}",
			ExpandTemplate(opts.FooterText, FormatDateTime(now)), pdf.PageNo())
		pdf.CellFormat(0, 10, tr(footer), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()

	fill := false
	pdf.SetFillColor(245, 245, 245)
	for _, rec := range records {
		for i, col := range columns {
			pdf.CellFormat(widths[i], 7, tr(cellValue(rec, col)), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
		fill = !fill
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering sales report: %w", err)
	}

	return &Document{
		PDF:             buf.Bytes(),
		FileName:        FileName(now),
		TotalSales:      totalSales,
		TotalValueCents: totalValueCents,
	}, nil
}

func cellValue(rec domain.SaleRecord, col Column) string {
	switch col {
	case ColumnCustomerName:
		if strings.TrimSpace(rec.CustomerName) == "" {
			return missingCustomerName
		}
		return rec.CustomerName
	case ColumnDate:
		return FormatDate(rec.Date)
	case ColumnPaymentMethod:
		return PaymentLabel(rec.PaymentMethod)
	case ColumnStatus:
		return StatusLabel(rec.Status)
	case ColumnTotal:
		return FormatBRL(rec.TotalCents)
	default:
		return ""
	}
}
