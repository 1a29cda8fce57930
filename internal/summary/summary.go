// Package summary reduces ledger rows to a monthly per-category breakdown
// and formats it for chat and charts.
package summary

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/gastos-bot/internal/chart"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
)

// Palette colors chart slices in category order, cycling when exhausted.
var Palette = []string{
	"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0",
	"#9966FF", "#FF9F40", "#8BC34A", "#C9CBCF",
}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthName returns the Spanish name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// CategoryTotal is the subtotal of one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Summary is the monthly breakdown. It is derived from the ledger on every
// request and never cached.
type Summary struct {
	Month      time.Month
	Year       int
	Categories []CategoryTotal
	GrandTotal decimal.Decimal
	Rows       int
	Skipped    int
}

// Empty reports whether the month has nothing to show.
func (s Summary) Empty() bool {
	return s.GrandTotal.IsZero()
}

// TotalsByCategory returns the subtotals keyed by category.
func (s Summary) TotalsByCategory() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(s.Categories))
	for _, c := range s.Categories {
		out[c.Category] = c.Total
	}
	return out
}

// Aggregate sums the rows dated in now's calendar month (in loc) by category.
// Categories keep first-seen order. Rows with a missing or unparseable date
// or amount are skipped.
func Aggregate(rows []models.LedgerRow, now time.Time, loc *time.Location) Summary {
	if loc != nil {
		now = now.In(loc)
	}

	s := Summary{Month: now.Month(), Year: now.Year()}
	index := map[string]int{}

	for _, row := range rows {
		month, year, ok := ParseRowDate(row.Date)
		if !ok {
			s.Skipped++
			continue
		}
		if month != s.Month || year != s.Year {
			continue
		}

		amount, ok := ParseRowAmount(row.Amount)
		if !ok {
			s.Skipped++
			continue
		}

		category := strings.TrimSpace(row.Category)
		if category == "" {
			category = models.UncategorizedLabel
		}

		i, seen := index[category]
		if !seen {
			i = len(s.Categories)
			index[category] = i
			s.Categories = append(s.Categories, CategoryTotal{Category: category})
		}
		s.Categories[i].Total = s.Categories[i].Total.Add(amount)
		s.GrandTotal = s.GrandTotal.Add(amount)
		s.Rows++
	}

	return s
}

// FilterMonth returns the rows dated in now's calendar month (in loc).
func FilterMonth(rows []models.LedgerRow, now time.Time, loc *time.Location) []models.LedgerRow {
	if loc != nil {
		now = now.In(loc)
	}

	var out []models.LedgerRow
	for _, row := range rows {
		month, year, ok := ParseRowDate(row.Date)
		if ok && month == now.Month() && year == now.Year() {
			out = append(out, row)
		}
	}
	return out
}

// ParseRowDate reads the month and year of a "DD/MM/YYYY[ HH:MM:SS]" stamp.
// Single-digit fields and a trailing comma after the date are accepted.
func ParseRowDate(raw string) (time.Month, int, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, 0, false
	}

	parts := strings.Split(strings.TrimSuffix(fields[0], ","), "/")
	if len(parts) != 3 {
		return 0, 0, false
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return 0, 0, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || year < 1 {
		return 0, 0, false
	}

	return time.Month(month), year, true
}

// ParseRowAmount reads a ledger amount. Comma decimals are normalized to dots
// and both 1.500,50 and 1,500.50 groupings are understood.
func ParseRowAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0 && lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0 && strings.Count(s, ",") == 1:
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// FormatMoney renders d in the currency's own notation, e.g. $1.500,50 for ARS.
func FormatMoney(d decimal.Decimal, currency string) string {
	fraction := 2
	if c := money.GetCurrency(currency); c != nil {
		fraction = c.Fraction
	}
	units := d.Shift(int32(fraction)).Round(0).IntPart()
	return money.New(units, currency).Display()
}

const separator = "----------------------------"

// FormatMessage renders the summary as Telegram Markdown.
func FormatMessage(s Summary, currency string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "💰 *Resumen de %s* 💰\n", MonthName(s.Month))
	b.WriteString(separator + "\n")
	for _, c := range s.Categories {
		fmt.Fprintf(&b, "🔹 *%s:* %s\n", EscapeMarkdown(c.Category), FormatMoney(c.Total, currency))
	}
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "TOTAL: *%s*", FormatMoney(s.GrandTotal, currency))

	return b.String()
}

// ChartSpec builds the pie chart series for the summary.
func ChartSpec(s Summary) chart.Spec {
	spec := chart.Spec{
		Title: fmt.Sprintf("Gastos de %s %d", MonthName(s.Month), s.Year),
	}
	for i, c := range s.Categories {
		spec.Labels = append(spec.Labels, c.Category)
		spec.Values = append(spec.Values, c.Total.InexactFloat64())
		spec.Colors = append(spec.Colors, Palette[i%len(Palette)])
	}
	return spec
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// EscapeMarkdown escapes the characters legacy Telegram Markdown treats as markup.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
