package bot

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/gastos-bot/internal/chart"
	"gitlab.com/yelinaung/gastos-bot/internal/config"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
	"gitlab.com/yelinaung/gastos-bot/internal/session"
)

const (
	testUserID = int64(424242)
	testChatID = int64(424242)
	testMsgID  = 321
)

var buenosAires = func() *time.Location {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		panic(err)
	}
	return loc
}()

// fixedNow is 15/03/2024 10:04:09 in Buenos Aires.
var fixedNow = time.Date(2024, 3, 15, 13, 4, 9, 0, time.UTC)

var errBoom = errors.New("boom")

type fakeLedger struct {
	mu       sync.Mutex
	appended []models.ExpenseRecord
	rows     []models.LedgerRow
	loads    int

	loadErr   error
	appendErr error
	readErr   error
}

func (l *fakeLedger) LoadSchema(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	return l.loadErr
}

func (l *fakeLedger) AppendRow(_ context.Context, rec models.ExpenseRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return l.appendErr
	}
	l.appended = append(l.appended, rec)
	return nil
}

func (l *fakeLedger) ReadAllRows(context.Context) ([]models.LedgerRow, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return nil, l.readErr
	}
	return l.rows, nil
}

func (l *fakeLedger) records() []models.ExpenseRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ExpenseRecord(nil), l.appended...)
}

type fakeRecognizer struct {
	text string
	err  error
	// during runs while recognition is in flight.
	during func()

	mu        sync.Mutex
	urls      []string
	languages []string
}

func (r *fakeRecognizer) RecognizeText(_ context.Context, imageURL string, languages []string) (string, error) {
	r.mu.Lock()
	r.urls = append(r.urls, imageURL)
	r.languages = languages
	r.mu.Unlock()

	if r.during != nil {
		r.during()
	}
	return r.text, r.err
}

type fakeArchiver struct {
	url string
	err error
	// release, when set, blocks Store until it is closed.
	release chan struct{}

	mu           sync.Mutex
	filenames    []string
	contentTypes []string
	bodies       [][]byte
}

func (a *fakeArchiver) Store(_ context.Context, body io.Reader, filename, contentType string) (string, error) {
	if a.release != nil {
		<-a.release
	}

	data, _ := io.ReadAll(body)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.filenames = append(a.filenames, filename)
	a.contentTypes = append(a.contentTypes, contentType)
	a.bodies = append(a.bodies, data)
	return a.url, a.err
}

type fakeRenderer struct {
	img   *chart.Image
	err   error
	specs []chart.Spec
}

func (r *fakeRenderer) Render(_ context.Context, spec chart.Spec) (*chart.Image, error) {
	r.specs = append(r.specs, spec)
	if r.err != nil {
		return nil, r.err
	}
	return r.img, nil
}

func testConfig() *config.Config {
	cats, _ := models.CategorySetByName(models.CategorySetV1)
	return &config.Config{
		LedgerBackend:  config.LedgerSheets,
		OCRLanguages:   []string{"es", "en"},
		OCRTimeout:     5 * time.Second,
		ArchiveTimeout: 5 * time.Second,
		Categories:     cats,
		Location:       buenosAires,
		Currency:       "ARS",
		PendingTTL:     20 * time.Minute,
	}
}

// newTestBot builds a bot around a fake ledger. Deps fields left empty get
// the production defaults.
func newTestBot(t *testing.T, deps Deps) (*Bot, *fakeLedger) {
	t.Helper()

	ledger, ok := deps.Ledger.(*fakeLedger)
	if !ok {
		ledger = &fakeLedger{}
		deps.Ledger = ledger
	}

	b := newBot(testConfig(), deps)
	b.now = func() time.Time { return fixedNow }
	return b, ledger
}

// pngServer serves a one-pixel PNG to stand in for Telegram's file endpoint.
func pngServer(t *testing.T) *httptest.Server {
	t.Helper()

	pixel := []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
		0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(pixel)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setPending(t *testing.T, b *Bot, p session.PendingExpense) session.PendingExpense {
	t.Helper()
	if p.UserID == 0 {
		p.UserID = testUserID
	}
	if p.ChatID == 0 {
		p.ChatID = testChatID
	}
	return b.sessions.Set(p)
}

func requirePending(t *testing.T, b *Bot) session.PendingExpense {
	t.Helper()
	p, ok := b.sessions.Get(testUserID)
	require.True(t, ok, "expected a pending expense")
	return p
}

func requireNoPending(t *testing.T, b *Bot) {
	t.Helper()
	_, ok := b.sessions.Get(testUserID)
	require.False(t, ok, "expected no pending expense")
}
