package archive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeDrive struct {
	mu          sync.Mutex
	uploadBody  string
	permissions []map[string]any
	shareStatus int
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/permissions"):
		if f.shareStatus != 0 {
			w.WriteHeader(f.shareStatus)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": f.shareStatus, "message": "denied"}})
			return
		}
		var perm map[string]any
		_ = json.NewDecoder(r.Body).Decode(&perm)
		f.permissions = append(f.permissions, perm)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "anyoneWithLink"})

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
		body, _ := io.ReadAll(r.Body)
		f.uploadBody = string(body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "file-1",
			"webViewLink": "https://drive.google.com/file/d/file-1/view",
		})

	default:
		http.NotFound(w, r)
	}
}

func newTestDrive(t *testing.T, fake *fakeDrive) *Drive {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	d, err := NewDriveFromClient(context.Background(), srv.Client(), "folder-9", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	d.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }
	return d
}

func TestDriveStore(t *testing.T) {
	t.Parallel()

	fake := &fakeDrive{}
	d := newTestDrive(t, fake)

	url, err := d.Store(context.Background(), strings.NewReader("png-bytes"), "recibo.png", "image/png")
	require.NoError(t, err)
	require.Equal(t, "https://drive.google.com/file/d/file-1/view", url)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Contains(t, fake.uploadBody, "png-bytes")
	require.Contains(t, fake.uploadBody, "folder-9")
	require.Contains(t, fake.uploadBody, "2024-03-")
	require.Equal(t, []map[string]any{{"type": "anyone", "role": "reader"}}, fake.permissions)
}

func TestDriveStoreShareFailure(t *testing.T) {
	t.Parallel()

	d := newTestDrive(t, &fakeDrive{shareStatus: http.StatusForbidden})

	_, err := d.Store(context.Background(), strings.NewReader("x"), "r.jpg", "image/jpeg")
	require.ErrorContains(t, err, "sharing receipt file-1")
}
