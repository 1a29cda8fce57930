//go:build ignore
// +build ignore

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"gitlab.com/yelinaung/gastos-bot/internal/chart"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
	"gitlab.com/yelinaung/gastos-bot/internal/summary"
)

func main() {
	rows := []models.LedgerRow{
		{Date: "03/01/2026 09:12:00", Amount: "15050.50", Description: "Super", Category: "Supermercado"},
		{Date: "05/01/2026 13:30:00", Amount: "13050.50", Description: "Almuerzo", Category: "Comida"},
		{Date: "08/01/2026 08:00:00", Amount: "6000", Description: "SUBE", Category: "Transporte"},
		{Date: "12/01/2026 22:10:00", Amount: "2500", Description: "Cine", Category: "Ocio"},
		{Date: "20/01/2026 10:00:00", Amount: "12000", Description: "Luz", Category: "Servicios"},
	}

	s := summary.Aggregate(rows, time.Date(2026, time.January, 31, 12, 0, 0, 0, time.UTC), time.UTC)
	fmt.Println(summary.FormatMessage(s, "ARS"))

	img, err := chart.NewLocalRenderer("resumen.png").Render(context.Background(), summary.ChartSpec(s))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(img.Filename, img.PNG, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	url, err := chart.NewQuickChartRenderer("").URL(summary.ChartSpec(s))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Chart saved to %s\nQuickChart: %s\n", img.Filename, url)
}
