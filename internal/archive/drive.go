package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Drive stores receipts in a Google Drive folder shared by link.
type Drive struct {
	svc      *drive.Service
	folderID string
	now      func() time.Time
}

// NewDrive wraps an existing Drive service.
func NewDrive(svc *drive.Service, folderID string) *Drive {
	return &Drive{svc: svc, folderID: folderID, now: time.Now}
}

// NewDriveFromClient creates the Drive service on top of an authorized client.
func NewDriveFromClient(ctx context.Context, client *http.Client, folderID string, opts ...option.ClientOption) (*Drive, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return NewDrive(svc, folderID), nil
}

// Store uploads body into the folder, opens it to anyone with the link and
// returns the viewer URL.
func (d *Drive) Store(ctx context.Context, body io.Reader, filename, contentType string) (string, error) {
	meta := &drive.File{
		Name:     strings.ReplaceAll(objectName(d.now(), filename), "/", "-"),
		MimeType: contentType,
	}
	if d.folderID != "" {
		meta.Parents = []string{d.folderID}
	}

	var media []googleapi.MediaOption
	if contentType != "" {
		media = append(media, googleapi.ContentType(contentType))
	}

	file, err := d.svc.Files.Create(meta).
		Media(body, media...).
		Fields("id", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("uploading receipt to drive: %w", err)
	}

	_, err = d.svc.Permissions.Create(file.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("sharing receipt %s: %w", file.Id, err)
	}

	return file.WebViewLink, nil
}
