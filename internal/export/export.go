// Package export renders a month of ledger rows as a downloadable file.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"gitlab.com/yelinaung/gastos-bot/internal/models"
	"gitlab.com/yelinaung/gastos-bot/internal/summary"
)

// Formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrUnknownFormat is returned for a format other than csv or xlsx.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat normalizes a user supplied format, defaulting to csv.
func ParseFormat(arg string) (string, error) {
	switch f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(arg), ".")); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, arg)
	}
}

// Filename names the export of now's month.
func Filename(format string, now time.Time) string {
	return fmt.Sprintf("gastos_%s.%s", now.Format("2006-01"), format)
}

// Render encodes rows in format.
func Render(format string, rows []models.LedgerRow, sheetTitle string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return CSV(rows)
	case FormatXLSX:
		return XLSX(rows, sheetTitle)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// CSV encodes rows with the ledger headers.
func CSV(rows []models.LedgerRow) ([]byte, error) {
	if rows == nil {
		rows = []models.LedgerRow{}
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return out, nil
}

// XLSX builds a one-sheet workbook. Amounts are written as numbers so the
// spreadsheet can sum them.
func XLSX(rows []models.LedgerRow, sheetTitle string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetName(sheetTitle)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(models.LedgerColumns))
	for i, c := range models.LedgerColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "E1", bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		cells := []any{row.Date, row.Amount, row.Description, row.Category, row.ReceiptLink}
		if amount, ok := summary.ParseRowAmount(row.Amount); ok {
			cells[1] = amount.InexactFloat64()
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 20); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "C", "C", 32); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName trims title to the 31 characters Excel allows, dropping the
// characters it forbids.
func sheetName(title string) string {
	title = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	if title == "" {
		return "Gastos"
	}
	if r := []rune(title); len(r) > 31 {
		title = string(r[:31])
	}
	return title
}
