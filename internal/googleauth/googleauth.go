// Package googleauth builds service-account HTTP clients for Google APIs.
package googleauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes used by the ledger and the archive.
const (
	SheetsScope = "https://www.googleapis.com/auth/spreadsheets"
	DriveScope  = "https://www.googleapis.com/auth/drive.file"
)

// ErrMissingKey is returned when no service account key was configured.
var ErrMissingKey = errors.New("google service account key is empty")

// HTTPClient returns a client authorized as the service account in key.
// key holds the JSON document itself or a path to it.
func HTTPClient(ctx context.Context, key string, scopes ...string) (*http.Client, error) {
	raw, err := readKey(key)
	if err != nil {
		return nil, err
	}

	jwt, err := google.JWTConfigFromJSON(raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	base := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	return jwt.Client(ctx), nil
}

func readKey(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrMissingKey
	}
	if strings.HasPrefix(key, "{") {
		return []byte(key), nil
	}

	b, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("reading service account key file: %w", err)
	}
	return b, nil
}
