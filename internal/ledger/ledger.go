// Package ledger persists committed expenses and reads them back for the
// monthly summary.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/yelinaung/gastos-bot/internal/config"
	"gitlab.com/yelinaung/gastos-bot/internal/database"
	"gitlab.com/yelinaung/gastos-bot/internal/googleauth"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
)

// ErrWriteFailed marks an append that did not reach the ledger.
var ErrWriteFailed = errors.New("ledger write failed")

// Ledger is an append-only record of committed expenses.
//
// LoadSchema is idempotent and is called before each read or write cycle.
type Ledger interface {
	LoadSchema(ctx context.Context) error
	AppendRow(ctx context.Context, record models.ExpenseRecord) error
	ReadAllRows(ctx context.Context) ([]models.LedgerRow, error)
}

// New builds the backend selected by cfg, wrapped with the bounded retry.
// The returned close function releases backend resources.
func New(ctx context.Context, cfg *config.Config) (Ledger, func(), error) {
	switch cfg.LedgerBackend {
	case config.LedgerPostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		return WithRetry(NewPostgres(pool, cfg.Location)), pool.Close, nil

	case config.LedgerSheets:
		client, err := googleauth.HTTPClient(ctx, cfg.GoogleJSONKey, googleauth.SheetsScope)
		if err != nil {
			return nil, nil, err
		}
		sheet, err := NewSheetsFromClient(ctx, client, cfg.SheetID, cfg.SheetName, cfg.Location)
		if err != nil {
			return nil, nil, err
		}
		return WithRetry(sheet), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
