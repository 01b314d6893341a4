// Package report implements the sales report export pipeline pieces that do
// not touch the data store: period resolution, column selection and the PDF
// document renderer.
package report

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError marks an export request that is rejected before any I/O
// happens (missing period bound, unknown column, malformed month).
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Selection is the user's period choice as it arrives from the client.
type Selection struct {
	Preset string `json:"preset"`
	Month  string `json:"month,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

// Period is a concrete inclusive date interval. From <= To always holds for
// periods produced by ResolvePeriod.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

const (
	PresetLast7Days  = "7days"
	PresetLast15Days = "15days"
	PresetLast30Days = "30days"
	PresetLast90Days = "90days"
	PresetMonth      = "month"
	PresetCustom     = "custom"
)

var presetDays = map[string]int{
	PresetLast7Days:  7,
	PresetLast15Days: 15,
	PresetLast30Days: 30,
	PresetLast90Days: 90,
}

// ResolvePeriod maps a period selection onto a concrete inclusive interval.
// Relative presets count back from today; a month selection covers the first
// through the last calendar day of that month; custom takes the bounds
// verbatim, defaulting the end to the start when only the start was picked.
func ResolvePeriod(sel Selection, today time.Time) (Period, error) {
	today = dateOnly(today)

	if days, ok := presetDays[sel.Preset]; ok {
		return Period{From: today.AddDate(0, 0, -days), To: today}, nil
	}

	switch sel.Preset {
	case PresetMonth:
		month, err := time.Parse("2006-01", strings.TrimSpace(sel.Month))
		if err != nil {
			return Period{}, ValidationError("invalid month, expected yyyy-mm")
		}
		from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
		// Day zero of the following month is the last day of this one.
		to := time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, time.UTC)
		return Period{From: from, To: to}, nil
	case PresetCustom:
		fromRaw := strings.TrimSpace(sel.From)
		if fromRaw == "" {
			return Period{}, ValidationError("period start is required")
		}
		from, err := time.Parse("2006-01-02", fromRaw)
		if err != nil {
			return Period{}, ValidationError("invalid period start, expected yyyy-mm-dd")
		}
		toRaw := strings.TrimSpace(sel.To)
		if toRaw == "" {
			return Period{From: from, To: from}, nil
		}
		to, err := time.Parse("2006-01-02", toRaw)
		if err != nil {
			return Period{}, ValidationError("invalid period end, expected yyyy-mm-dd")
		}
		if from.After(to) {
			return Period{}, ValidationError("period start must not be after period end")
		}
		return Period{From: from, To: to}, nil
	default:
		return Period{}, ValidationError(fmt.Sprintf("unknown period preset %q", sel.Preset))
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Column identifies one exportable table column.
type Column string

const (
	ColumnCustomerName  Column = "customerName"
	ColumnDate          Column = "date"
	ColumnPaymentMethod Column = "paymentMethod"
	ColumnStatus        Column = "status"
	ColumnTotal         Column = "total"
)

// columnOrder is the canonical column order. Selected columns always render
// in this relative order regardless of the order they were requested in.
var columnOrder = []Column{
	ColumnCustomerName,
	ColumnDate,
	ColumnPaymentMethod,
	ColumnStatus,
	ColumnTotal,
}

var columnHeaders = map[Column]string{
	ColumnCustomerName:  "Cliente",
	ColumnDate:          "Data",
	ColumnPaymentMethod: "Método de Pagamento",
	ColumnStatus:        "Status",
	ColumnTotal:         "Valor",
}

// relative widths used when laying out the table; normalized per selection
var columnWeights = map[Column]float64{
	ColumnCustomerName:  0.30,
	ColumnDate:          0.15,
	ColumnPaymentMethod: 0.25,
	ColumnStatus:        0.13,
	ColumnTotal:         0.17,
}

// NormalizeColumns filters the canonical column order down to the requested
// set. Duplicates collapse, unknown names are rejected, and an empty
// selection is invalid.
func NormalizeColumns(requested []Column) ([]Column, error) {
	selected := make(map[Column]bool, len(requested))
	for _, col := range requested {
		if _, ok := columnHeaders[col]; !ok {
			return nil, ValidationError(fmt.Sprintf("unknown column %q", col))
		}
		selected[col] = true
	}
	if len(selected) == 0 {
		return nil, ValidationError("at least one column must be selected")
	}

	columns := make([]Column, 0, len(selected))
	for _, col := range columnOrder {
		if selected[col] {
			columns = append(columns, col)
		}
	}
	return columns, nil
}

// AllColumns returns the full canonical column set.
func AllColumns() []Column {
	columns := make([]Column, len(columnOrder))
	copy(columns, columnOrder)
	return columns
}

// Header returns the printed table header for a column.
func (c Column) Header() string { return columnHeaders[c] }

const (
	PaperA4     = "a4"
	PaperLetter = "letter"
	PaperLegal  = "legal"

	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// FormatOptions is the user-configurable styling for one export. Templates
// support a single {{date}} token replaced at render time.
type FormatOptions struct {
	Title       string   `json:"title"`
	PaperSize   string   `json:"paper_size"`
	Orientation string   `json:"orientation"`
	Columns     []Column `json:"columns"`
	HeaderText  string   `json:"header_text"`
	FooterText  string   `json:"footer_text"`
}

// DefaultOptions returns the options used when the client sends none.
func DefaultOptions() FormatOptions {
	return FormatOptions{
		Title:       "Relatório de Vendas",
		PaperSize:   PaperA4,
		Orientation: OrientationPortrait,
		Columns:     AllColumns(),
		HeaderText:  "Relatório de Vendas - Ótica",
		FooterText:  "Gerado em {{date}}",
	}
}

var paymentLabels = map[string]string{
	"pix":               "PIX",
	"cartao_de_credito": "Cartão de Crédito",
	"cartao_de_debito":  "Cartão de Débito",
	"dinheiro":          "Dinheiro",
	"boleto":            "Boleto",
}

var statusLabels = map[string]string{
	"completo":  "Completo",
	"pendente":  "Pendente",
	"cancelado": "Cancelado",
}

// PaymentLabel maps a payment method code to its printed label. Unknown
// codes pass through verbatim.
func PaymentLabel(code string) string {
	if label, ok := paymentLabels[code]; ok {
		return label
	}
	return code
}

// StatusLabel maps a sale status code to its printed label. Unknown codes
// pass through verbatim.
func StatusLabel(code string) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return code
}

// missingCustomerName is printed when a sale has no customer attached.
const missingCustomerName = "Cliente não informado"

// FormatBRL renders an amount in cents as Brazilian real with a thousands
// separator and two decimals, e.g. 123456 -> "R$ 1.234,56".
func FormatBRL(cents int64) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}

	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(d)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, grouped.String(), frac)
}

// FormatDate renders a date as dd/MM/yyyy.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatDateTime renders a timestamp as dd/MM/yyyy HH:mm.
func FormatDateTime(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

// ExpandTemplate substitutes the {{date}} token in a header or footer
// template.
func ExpandTemplate(template string, date string) string {
	return strings.ReplaceAll(template, "{{date}}", date)
}

// FileName derives the deterministic export file name from the generation
// timestamp.
func FileName(now time.Time) string {
	return fmt.Sprintf("relatorio_vendas_%s_%s.pdf", now.Format("2006-01-02"), now.Format("15-04"))
}
