package ledger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/jackc/pgx/v5/pgconn"
	"google.golang.org/api/googleapi"

	"gitlab.com/yelinaung/gastos-bot/internal/logger"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
)

// Retry policy for appends: one extra attempt after a transient failure.
const (
	DefaultAttempts   = 2
	DefaultRetryDelay = 2 * time.Second
)

// Retrying decorates a ledger with a bounded retry on appends. Reads and
// schema loads pass through untouched.
//
// A retry after an ambiguous failure (for example a timeout after the backend
// accepted the row) can duplicate the row. Every retry is logged so operators
// can reconcile.
type Retrying struct {
	Ledger
	attempts uint
	delay    time.Duration
}

// RetryOption configures a Retrying ledger.
type RetryOption func(*Retrying)

// WithAttempts overrides the total number of append attempts.
func WithAttempts(n uint) RetryOption {
	return func(r *Retrying) { r.attempts = n }
}

// WithDelay overrides the pause between attempts.
func WithDelay(d time.Duration) RetryOption {
	return func(r *Retrying) { r.delay = d }
}

// WithRetry wraps l with the default append retry policy.
func WithRetry(l Ledger, opts ...RetryOption) *Retrying {
	r := &Retrying{Ledger: l, attempts: DefaultAttempts, delay: DefaultRetryDelay}
	for _, opt := range opts {
		opt(r)
	}
	if r.attempts == 0 {
		r.attempts = 1
	}
	return r
}

// AppendRow appends the record, retrying transient failures. Any final
// failure is reported as ErrWriteFailed.
func (r *Retrying) AppendRow(ctx context.Context, record models.ExpenseRecord) error {
	err := retry.Do(
		func() error {
			return r.Ledger.AppendRow(ctx, record)
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
		retry.OnRetry(func(n uint, err error) {
			if n+1 >= r.attempts {
				return
			}
			logger.Log.Warn().
				Err(err).
				Uint("attempt", n+2).
				Str("component", "ledger").
				Msg("Ledger append failed, retrying; the row may be duplicated if the first attempt landed")
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// IsTransient reports whether err is worth one more attempt: rate limiting,
// server errors and network failures. Cancellation never is.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}
	if pgconn.SafeToRetry(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
