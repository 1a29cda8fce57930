// Package models defines the domain entities for the expense bot.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the textual layout of ledger timestamps (DD/MM/YYYY HH:MM:SS).
const TimestampLayout = "02/01/2006 15:04:05"

// Source reference sentinels stored in the ledger's receipt link column.
const (
	SourceManual      = "manual"
	SourceNone        = "none"
	SourceUnavailable = "no disponible"
	SourcePending     = "pendiente"
)

// UncategorizedLabel groups ledger rows stored without a category.
const UncategorizedLabel = "Sin categoría"

// ExpenseRecord is one committed expense as written to the ledger.
type ExpenseRecord struct {
	Timestamp       time.Time
	Amount          decimal.Decimal
	Description     string
	Category        string
	SourceReference string
}

// LedgerRow is a ledger row as read back, with every column kept as text.
// The csv tags double as the column headers of the spreadsheet and exports.
type LedgerRow struct {
	Date        string `csv:"Fecha"`
	Amount      string `csv:"Monto"`
	Description string `csv:"Concepto"`
	Category    string `csv:"Categoria"`
	ReceiptLink string `csv:"Link_Foto"`
}

// LedgerColumns lists the ledger headers in write order.
var LedgerColumns = []string{"Fecha", "Monto", "Concepto", "Categoria", "Link_Foto"}

// ToRow renders a record in the ledger's textual form for the given location.
func (r ExpenseRecord) ToRow(loc *time.Location) LedgerRow {
	ts := r.Timestamp
	if loc != nil {
		ts = ts.In(loc)
	}
	return LedgerRow{
		Date:        ts.Format(TimestampLayout),
		Amount:      r.Amount.StringFixed(2),
		Description: r.Description,
		Category:    r.Category,
		ReceiptLink: r.SourceReference,
	}
}

// Values returns the row's cells in LedgerColumns order.
func (r LedgerRow) Values() []string {
	return []string{r.Date, r.Amount, r.Description, r.Category, r.ReceiptLink}
}

// Category is one selectable expense category.
type Category struct {
	Code  string
	Label string
}

// Category set names.
const (
	CategorySetV1 = "v1"
	CategorySetV2 = "v2"
)

// CancelCode is the reserved pseudo-category that aborts a pending expense.
const CancelCode = "cancel"

var categoriesV1 = []Category{
	{Code: "Supermercado", Label: "🛒 Super"},
	{Code: "Comida", Label: "🍔 Comida"},
	{Code: "Hogar", Label: "🏠 Hogar"},
	{Code: "Servicios", Label: "💡 Servicios"},
	{Code: "Ocio", Label: "🎉 Ocio"},
	{Code: "Otros", Label: "❓ Otros"},
}

var categoriesV2 = []Category{
	{Code: "Supermercado", Label: "🛒 Super"},
	{Code: "Comida", Label: "🍔 Comida"},
	{Code: "Hogar", Label: "🏠 Hogar"},
	{Code: "Servicios", Label: "💡 Servicios"},
	{Code: "Transporte", Label: "🚌 Transporte"},
	{Code: "Salud", Label: "💊 Salud"},
	{Code: "Ocio", Label: "🎉 Ocio"},
	{Code: "Otros", Label: "❓ Otros"},
}

// CategorySetByName returns a copy of a versioned category set.
func CategorySetByName(name string) ([]Category, bool) {
	switch strings.ToLower(name) {
	case CategorySetV1:
		return append([]Category(nil), categoriesV1...), true
	case CategorySetV2:
		return append([]Category(nil), categoriesV2...), true
	default:
		return nil, false
	}
}

// MaxCategoryCodeLength keeps "cat_<code>_<version>" callback data inside
// Telegram's 64 byte limit.
const MaxCategoryCodeLength = 32

// ParseCategories reads a "Code:Label,Code:Label" list. A missing label
// defaults to the code.
func ParseCategories(raw string) ([]Category, error) {
	var (
		cats []Category
		seen = map[string]bool{}
	)
	for item := range strings.SplitSeq(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		code, label, _ := strings.Cut(item, ":")
		code = strings.TrimSpace(code)
		label = strings.TrimSpace(label)
		if code == "" {
			return nil, fmt.Errorf("entry %q has no code", item)
		}
		if strings.ContainsAny(code, " _") {
			return nil, fmt.Errorf("code %q must not contain spaces or underscores", code)
		}
		if strings.EqualFold(code, CancelCode) {
			return nil, fmt.Errorf("code %q is reserved", code)
		}
		if len(code) > MaxCategoryCodeLength {
			return nil, fmt.Errorf("code %q is longer than %d bytes", code, MaxCategoryCodeLength)
		}
		if seen[code] {
			return nil, fmt.Errorf("code %q is duplicated", code)
		}
		seen[code] = true
		if label == "" {
			label = code
		}
		cats = append(cats, Category{Code: code, Label: label})
	}
	if len(cats) == 0 {
		return nil, errors.New("no categories defined")
	}
	return cats, nil
}
