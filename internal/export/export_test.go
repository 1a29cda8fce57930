package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gitlab.com/yelinaung/gastos-bot/internal/models"
)

var sampleRows = []models.LedgerRow{
	{Date: "01/03/2024 10:00:00", Amount: "1500.50", Description: "Super, semanal", Category: "Supermercado", ReceiptLink: "manual"},
	{Date: "02/03/2024 21:15:00", Amount: "1.200,00", Description: "Pizza", Category: "Comida"},
	{Date: "03/03/2024 09:00:00", Amount: "n/a", Description: "Raro", Category: ""},
}

func TestCSV(t *testing.T) {
	t.Parallel()

	out, err := CSV(sampleRows)
	require.NoError(t, err)

	want := "Fecha,Monto,Concepto,Categoria,Link_Foto\n" +
		"01/03/2024 10:00:00,1500.50,\"Super, semanal\",Supermercado,manual\n" +
		"02/03/2024 21:15:00,\"1.200,00\",Pizza,Comida,\n" +
		"03/03/2024 09:00:00,n/a,Raro,,\n"
	require.Equal(t, want, string(out))
}

func TestCSVEmpty(t *testing.T) {
	t.Parallel()

	out, err := CSV(nil)
	require.NoError(t, err)
	require.Equal(t, "Fecha,Monto,Concepto,Categoria,Link_Foto\n", string(out))
}

func TestXLSX(t *testing.T) {
	t.Parallel()

	out, err := XLSX(sampleRows, "Gastos de marzo 2024")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	require.Equal(t, []string{"Gastos de marzo 2024"}, f.GetSheetList())

	rows, err := f.GetRows("Gastos de marzo 2024")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, models.LedgerColumns, rows[0])
	require.Equal(t, "Super, semanal", rows[1][2])

	raw, err := f.GetCellValue("Gastos de marzo 2024", "B3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "1200", raw, "parsable amounts are stored as numbers")

	text, err := f.GetCellValue("Gastos de marzo 2024", "B4")
	require.NoError(t, err)
	require.Equal(t, "n/a", text)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{" xlsx ", FormatXLSX, false},
		{".xlsx", FormatXLSX, false},
		{"excel", FormatXLSX, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.True(t, errors.Is(err, ErrUnknownFormat))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := Render("pdf", sampleRows, "x")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFilename(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "gastos_2024-03.csv", Filename(FormatCSV, now))
	require.Equal(t, "gastos_2024-03.xlsx", Filename(FormatXLSX, now))
}

func TestSheetName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Gastos", sheetName("  "))
	require.Equal(t, "Gastos 2024", sheetName("Gastos [2024]"))
	require.Len(t, []rune(sheetName("Un título larguísimo que excede el límite de Excel")), 31)
}
