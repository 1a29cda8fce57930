package archive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

// Azure stores receipts as block blobs in one container.
type Azure struct {
	client    *azblob.Client
	container string
	now       func() time.Time
}

// NewAzure creates an archiver from a storage connection string.
func NewAzure(connectionString, container string) (*Azure, error) {
	if container == "" {
		return nil, fmt.Errorf("azure container name is required")
	}

	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("creating azure blob client: %w", err)
	}

	return &Azure{client: client, container: container, now: time.Now}, nil
}

// Store uploads body and returns the blob URL.
func (a *Azure) Store(ctx context.Context, body io.Reader, filename, contentType string) (string, error) {
	name := objectName(a.now(), filename)

	opts := &azblob.UploadStreamOptions{
		Metadata: map[string]*string{"filename": to.Ptr(filename)},
	}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)}
	}

	if _, err := a.client.UploadStream(ctx, a.container, name, body, opts); err != nil {
		return "", fmt.Errorf("uploading receipt to azure: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(a.client.URL(), "/"), a.container, name), nil
}
