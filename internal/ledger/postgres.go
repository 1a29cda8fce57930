package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitlab.com/yelinaung/gastos-bot/internal/database"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
)

// Postgres stores the ledger in the ledger_entries table.
type Postgres struct {
	db  database.PGXDB
	loc *time.Location

	mu       sync.Mutex
	migrated bool
}

// NewPostgres creates a ledger over db.
func NewPostgres(db database.PGXDB, loc *time.Location) *Postgres {
	return &Postgres{db: db, loc: location(loc)}
}

// LoadSchema runs the migrations once per process.
func (p *Postgres) LoadSchema(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.migrated {
		return nil
	}
	if err := database.RunMigrations(ctx, p.db); err != nil {
		return err
	}
	p.migrated = true
	return nil
}

// AppendRow inserts the record.
func (p *Postgres) AppendRow(ctx context.Context, record models.ExpenseRecord) error {
	if err := p.LoadSchema(ctx); err != nil {
		return err
	}

	_, err := p.db.Exec(ctx, `
		INSERT INTO ledger_entries (recorded_at, amount, description, category, receipt_link)
		VALUES ($1, $2, $3, $4, $5)`,
		record.Timestamp, record.Amount, record.Description, record.Category, record.SourceReference)
	if err != nil {
		return fmt.Errorf("inserting ledger entry: %w", err)
	}
	return nil
}

// ReadAllRows returns every entry in insertion order, rendered like spreadsheet rows.
func (p *Postgres) ReadAllRows(ctx context.Context) ([]models.LedgerRow, error) {
	if err := p.LoadSchema(ctx); err != nil {
		return nil, err
	}

	rows, err := p.db.Query(ctx, `
		SELECT recorded_at, amount, description, category, receipt_link
		FROM ledger_entries
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying ledger entries: %w", err)
	}
	defer rows.Close()

	var out []models.LedgerRow
	for rows.Next() {
		var record models.ExpenseRecord
		if err := rows.Scan(&record.Timestamp, &record.Amount, &record.Description, &record.Category, &record.SourceReference); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		out = append(out, record.ToRow(p.loc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger entries: %w", err)
	}
	return out, nil
}

