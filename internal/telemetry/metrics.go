package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "gitlab.com/yelinaung/gastos-bot"

// Tracer returns the bot's tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Metrics holds the bot's counters. A nil *Metrics records nothing.
type Metrics struct {
	commits           metric.Int64Counter
	ledgerFailures    metric.Int64Counter
	ocrFailures       metric.Int64Counter
	archiveFailures   metric.Int64Counter
	expired           metric.Int64Counter
	receiptsProcessed metric.Int64Counter
}

// NewMetrics registers the counters on mp, or on the global provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.commits, "gastos.expenses.committed", "Expenses written to the ledger"},
		{&m.ledgerFailures, "gastos.ledger.failures", "Failed ledger operations"},
		{&m.ocrFailures, "gastos.ocr.failures", "Receipt photos that could not be read"},
		{&m.archiveFailures, "gastos.archive.failures", "Receipt images that could not be archived"},
		{&m.expired, "gastos.pending.expired", "Pending expenses evicted after their ttl"},
		{&m.receiptsProcessed, "gastos.receipts.processed", "Receipt photos received"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}
	return m, nil
}

// ExpenseCommitted counts a ledger write, tagged by category and origin.
func (m *Metrics) ExpenseCommitted(ctx context.Context, category string, fromReceipt bool) {
	if m == nil {
		return
	}
	m.commits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.Bool("receipt", fromReceipt),
	))
}

// LedgerFailure counts a failed ledger operation ("append" or "read").
func (m *Metrics) LedgerFailure(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.ledgerFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// OCRFailure counts a receipt that produced no usable text or amount.
func (m *Metrics) OCRFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.ocrFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// ArchiveFailure counts a failed receipt upload.
func (m *Metrics) ArchiveFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.archiveFailures.Add(ctx, 1)
}

// PendingExpired counts entries evicted by the sweep.
func (m *Metrics) PendingExpired(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expired.Add(ctx, int64(n))
}

// ReceiptProcessed counts a received receipt photo.
func (m *Metrics) ReceiptProcessed(ctx context.Context) {
	if m == nil {
		return
	}
	m.receiptsProcessed.Add(ctx, 1)
}
