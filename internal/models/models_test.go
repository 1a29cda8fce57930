package models

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestExpenseRecordToRow(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)

	rec := ExpenseRecord{
		Timestamp:       time.Date(2024, 3, 5, 13, 4, 9, 0, time.UTC),
		Amount:          decimal.RequireFromString("1500.5"),
		Description:     "Almuerzo",
		Category:        "Comida",
		SourceReference: SourceManual,
	}

	row := rec.ToRow(loc)
	require.Equal(t, "05/03/2024 10:04:09", row.Date)
	require.Equal(t, "1500.50", row.Amount)
	require.Equal(t, []string{"05/03/2024 10:04:09", "1500.50", "Almuerzo", "Comida", "manual"}, row.Values())
	require.Len(t, LedgerColumns, len(row.Values()))
}

func TestCategorySetByName(t *testing.T) {
	t.Parallel()

	v1, ok := CategorySetByName("v1")
	require.True(t, ok)
	require.Len(t, v1, 6)

	v2, ok := CategorySetByName("V2")
	require.True(t, ok)
	require.Len(t, v2, 8)
	require.Contains(t, v2, Category{Code: "Transporte", Label: "🚌 Transporte"})

	v1[0].Code = "mutated"
	again, _ := CategorySetByName("v1")
	require.Equal(t, "Supermercado", again[0].Code)

	_, ok = CategorySetByName("v3")
	require.False(t, ok)
}

func TestParseCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    []Category
		wantErr string
	}{
		{
			name: "codes and labels",
			raw:  "Nafta:⛽ Nafta, Regalos:🎁 Regalos",
			want: []Category{{Code: "Nafta", Label: "⛽ Nafta"}, {Code: "Regalos", Label: "🎁 Regalos"}},
		},
		{
			name: "label defaults to code",
			raw:  "Mascotas,,",
			want: []Category{{Code: "Mascotas", Label: "Mascotas"}},
		},
		{name: "empty", raw: " , ", wantErr: "no categories"},
		{name: "missing code", raw: ":Label", wantErr: "no code"},
		{name: "reserved cancel", raw: "Cancel:X", wantErr: "reserved"},
		{name: "spaces in code", raw: "Dos Palabras", wantErr: "spaces"},
		{name: "duplicate", raw: "A,A", wantErr: "duplicated"},
		{name: "code too long", raw: strings.Repeat("x", MaxCategoryCodeLength+1), wantErr: "longer than"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseCategories(tt.raw)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
