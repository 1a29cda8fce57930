// Package archive stores receipt images and returns a link to them.
// Archival is best-effort: callers degrade to a sentinel reference on failure.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitlab.com/yelinaung/gastos-bot/internal/config"
	"gitlab.com/yelinaung/gastos-bot/internal/googleauth"
)

// ErrDisabled is returned by the archiver used when no backend is configured.
var ErrDisabled = errors.New("receipt archival is disabled")

// Archiver persists a receipt image and returns its public URL.
type Archiver interface {
	Store(ctx context.Context, body io.Reader, filename, contentType string) (string, error)
}

// Disabled is the archiver for ARCHIVE_BACKEND=none.
type Disabled struct{}

// Store always fails with ErrDisabled.
func (Disabled) Store(context.Context, io.Reader, string, string) (string, error) {
	return "", ErrDisabled
}

// New builds the archiver selected by cfg.
func New(ctx context.Context, cfg *config.Config) (Archiver, error) {
	switch cfg.ArchiveBackend {
	case config.ArchiveNone, "":
		return Disabled{}, nil
	case config.ArchiveAzure:
		return NewAzure(cfg.AzureConnectionString, cfg.AzureContainer)
	case config.ArchiveDrive:
		client, err := googleauth.HTTPClient(ctx, cfg.GoogleJSONKey, googleauth.DriveScope)
		if err != nil {
			return nil, err
		}
		return NewDriveFromClient(ctx, client, cfg.DriveFolderID)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.ArchiveBackend)
	}
}

// objectName returns a unique YYYY/MM/<uuid><ext> key for filename.
func objectName(now time.Time, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%04d/%02d/%s%s", now.Year(), int(now.Month()), uuid.NewString(), ext)
}
