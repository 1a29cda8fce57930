package archive

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/gastos-bot/internal/config"
)

func TestObjectName(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^2024/03/[0-9a-f-]{36}\.(jpg|png)$`)

	require.Regexp(t, pattern, objectName(now, "recibo.JPG"))
	require.Regexp(t, pattern, objectName(now, "recibo.png"))
	require.True(t, strings.HasSuffix(objectName(now, "sin-extension"), ".jpg"))
	require.NotEqual(t, objectName(now, "a.jpg"), objectName(now, "a.jpg"))
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	url, err := Disabled{}.Store(context.Background(), strings.NewReader("x"), "r.jpg", "image/jpeg")
	require.ErrorIs(t, err, ErrDisabled)
	require.Empty(t, url)
}

func TestNew(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	a, err := New(ctx, &config.Config{ArchiveBackend: config.ArchiveNone})
	require.NoError(t, err)
	require.IsType(t, Disabled{}, a)

	_, err = New(ctx, &config.Config{ArchiveBackend: "s3"})
	require.ErrorContains(t, err, `unknown archive backend "s3"`)

	_, err = New(ctx, &config.Config{ArchiveBackend: config.ArchiveDrive})
	require.Error(t, err)

	_, err = New(ctx, &config.Config{ArchiveBackend: config.ArchiveAzure, AzureConnectionString: "garbage", AzureContainer: "recibos"})
	require.Error(t, err)
}
