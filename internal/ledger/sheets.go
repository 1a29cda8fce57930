package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"gitlab.com/yelinaung/gastos-bot/internal/models"
)

var requiredColumns = []string{"Fecha", "Monto", "Concepto", "Categoria"}

// Sheets stores the ledger in one tab of a Google spreadsheet. The first row
// holds the headers; columns are matched by header name, not position.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	loc           *time.Location

	mu      sync.Mutex
	title   string
	columns map[string]int
	width   int
}

// NewSheets wraps an existing Sheets service. An empty sheetName selects the
// first tab of the spreadsheet.
func NewSheets(svc *sheets.Service, spreadsheetID, sheetName string, loc *time.Location) *Sheets {
	return &Sheets{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		loc:           location(loc),
	}
}

// NewSheetsFromClient creates the Sheets service on top of an authorized client.
func NewSheetsFromClient(ctx context.Context, client *http.Client, spreadsheetID, sheetName string, loc *time.Location, opts ...option.ClientOption) (*Sheets, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return NewSheets(svc, spreadsheetID, sheetName, loc), nil
}

// LoadSchema resolves the tab and its header row, writing the headers when
// the tab is empty.
func (s *Sheets) LoadSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spreadsheet, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("loading spreadsheet: %w", err)
	}

	title, err := s.pickSheet(spreadsheet)
	if err != nil {
		return err
	}

	header, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, quoteSheet(title)+"!1:1").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("reading header row: %w", err)
	}

	var cells []any
	if len(header.Values) > 0 {
		cells = header.Values[0]
	}

	if len(cells) == 0 {
		row := make([]any, len(models.LedgerColumns))
		for i, c := range models.LedgerColumns {
			row[i] = c
		}
		_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, quoteSheet(title)+"!A1", &sheets.ValueRange{
			Values: [][]any{row},
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing header row: %w", err)
		}
		cells = row
	}

	columns := make(map[string]int, len(cells))
	for i, cell := range cells {
		name := strings.ToLower(strings.TrimSpace(cellString(cell)))
		if _, dup := columns[name]; name != "" && !dup {
			columns[name] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := columns[strings.ToLower(c)]; !ok {
			return fmt.Errorf("sheet %q is missing the %q column", title, c)
		}
	}

	s.title = title
	s.columns = columns
	s.width = len(cells)
	return nil
}

func (s *Sheets) pickSheet(spreadsheet *sheets.Spreadsheet) (string, error) {
	if len(spreadsheet.Sheets) == 0 {
		return "", errors.New("spreadsheet has no sheets")
	}
	if s.sheetName == "" {
		return spreadsheet.Sheets[0].Properties.Title, nil
	}
	for _, sh := range spreadsheet.Sheets {
		if sh.Properties != nil && strings.EqualFold(sh.Properties.Title, s.sheetName) {
			return sh.Properties.Title, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found", s.sheetName)
}

// AppendRow adds the record below the last row of the tab.
func (s *Sheets) AppendRow(ctx context.Context, record models.ExpenseRecord) error {
	title, columns, width, err := s.schema(ctx)
	if err != nil {
		return err
	}

	row := record.ToRow(s.loc)
	cells := make([]any, width)
	for i := range cells {
		cells[i] = ""
	}
	for i, value := range row.Values() {
		if idx, ok := columns[strings.ToLower(models.LedgerColumns[i])]; ok {
			cells[idx] = value
		}
	}

	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, quoteSheet(title)+"!A1", &sheets.ValueRange{
		Values: [][]any{cells},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("appending row: %w", err)
	}
	return nil
}

// ReadAllRows returns every data row below the header.
func (s *Sheets) ReadAllRows(ctx context.Context) ([]models.LedgerRow, error) {
	title, columns, _, err := s.schema(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, quoteSheet(title)+"!A2:Z").
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	get := func(cells []any, name string) string {
		idx, ok := columns[strings.ToLower(name)]
		if !ok || idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cellString(cells[idx]))
	}

	date := func(cells []any) string {
		idx, ok := columns["fecha"]
		if ok && idx < len(cells) {
			if serial, isNumber := cells[idx].(float64); isNumber {
				return serialDate(serial)
			}
		}
		return get(cells, "Fecha")
	}

	rows := make([]models.LedgerRow, 0, len(resp.Values))
	for _, cells := range resp.Values {
		rows = append(rows, models.LedgerRow{
			Date:        date(cells),
			Amount:      get(cells, "Monto"),
			Description: get(cells, "Concepto"),
			Category:    get(cells, "Categoria"),
			ReceiptLink: get(cells, "Link_Foto"),
		})
	}
	return rows, nil
}

func (s *Sheets) schema(ctx context.Context) (string, map[string]int, int, error) {
	s.mu.Lock()
	loaded := s.columns != nil
	s.mu.Unlock()

	if !loaded {
		if err := s.LoadSchema(ctx); err != nil {
			return "", nil, 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title, s.columns, s.width, nil
}

// sheetsEpoch is day zero of spreadsheet date serials.
var sheetsEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// serialDate renders a date cell, which Sheets keeps as days since
// sheetsEpoch, in the ledger timestamp layout. Dates typed by hand into the
// spreadsheet arrive this way.
func serialDate(serial float64) string {
	seconds := int64(math.Round(serial * 86400))
	return sheetsEpoch.Add(time.Duration(seconds) * time.Second).Format(models.TimestampLayout)
}

// quoteSheet renders a tab title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		return fmt.Sprint(c)
	}
}
