package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	t.Parallel()

	t.Run("success sniffs content type", func(t *testing.T) {
		t.Parallel()

		srv := imageServer(t, pngPixel)
		data, mimeType, err := Download(context.Background(), srv.Client(), srv.URL)
		require.NoError(t, err)
		require.Equal(t, pngPixel, data)
		require.Equal(t, "image/png", mimeType)
	})

	t.Run("non 200 status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		data, _, err := Download(context.Background(), srv.Client(), srv.URL)
		require.Error(t, err)
		require.Nil(t, data)
		require.Contains(t, err.Error(), "download failed with status")
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()

		srv := imageServer(t, make([]byte, MaxImageBytes+1))
		data, _, err := Download(context.Background(), srv.Client(), srv.URL)
		require.Error(t, err)
		require.Nil(t, data)
		require.Contains(t, err.Error(), "exceeds size limit")
	})

	t.Run("bad url", func(t *testing.T) {
		t.Parallel()

		_, _, err := Download(context.Background(), nil, "://nope")
		require.ErrorContains(t, err, "failed to build download request")
	})
}
