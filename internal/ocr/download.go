package ocr

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// MaxImageBytes bounds downloaded images.
const MaxImageBytes = 20 << 20

// DefaultHTTPClient is the traced client used for image downloads.
var DefaultHTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

// Download fetches url and sniffs its content type. Bodies larger than
// MaxImageBytes are rejected.
func Download(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if client == nil {
		client = DefaultHTTPClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("image exceeds size limit of %d bytes", MaxImageBytes)
	}

	return data, http.DetectContentType(data), nil
}
