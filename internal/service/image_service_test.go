package service

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cityevents/internal/config"
	"cityevents/internal/models"
	"cityevents/internal/repository"
	"cityevents/internal/storage"
	"cityevents/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/webp"
)

func TestResizeToFit(t *testing.T) {
	t.Parallel()
	src := image.NewRGBA(image.Rect(0, 0, 3200, 800))
	out := resizeToFit(src, 1600, 1600)
	assert.Equal(t, 1600, out.Bounds().Dx())
	assert.Equal(t, 400, out.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 20, 10))
	assert.Same(t, small, resizeToFit(small, 1600, 1600))
}

func TestIsMatchingContentType(t *testing.T) {
	t.Parallel()
	assert.True(t, isMatchingContentType("image/jpg", "image/jpeg"))
	assert.True(t, isMatchingContentType("image/PNG; charset=binary", "image/png"))
	assert.False(t, isMatchingContentType("image/gif", "image/png"))
}

func TestImageService_Upload(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenTestDB(t)
	author := testutil.CreateUser(t, db, models.RoleUser)
	other := testutil.CreateUser(t, db, models.RoleUser)
	cat := testutil.CreateCategory(t, db, "Parodos")
	event := testutil.CreateEvent(t, db, author, cat, models.EventStatusApproved)

	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir, storage.LocalMediaPrefix)
	require.NoError(t, err)
	events := NewEventService(repository.NewEventRepository(db), repository.NewCategoryRepository(db))
	svc := NewImageService(events, store, &config.Config{ImageMaxUploadSizeMB: 1})

	t.Run("stores a scaled webp", func(t *testing.T) {
		updated, err := svc.Upload(ctx, author.Identity(), UploadImageInput{
			EventID:     event.ID,
			Filename:    "poster.png",
			ContentType: "image/png",
			Content:     testutil.TinyPNG(t, 2000, 1000),
		})
		require.NoError(t, err)
		require.NotNil(t, updated.Image)
		assert.True(t, strings.HasPrefix(*updated.Image, "/media/events/"), *updated.Image)
		assert.True(t, strings.HasSuffix(*updated.Image, ".webp"))

		rel := strings.TrimPrefix(*updated.Image, storage.LocalMediaPrefix+"/")
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "webp", format)
		assert.Equal(t, 1600, cfg.Width)
		assert.Equal(t, 800, cfg.Height)
	})

	t.Run("rejects non-images", func(t *testing.T) {
		_, err := svc.Upload(ctx, author.Identity(), UploadImageInput{
			EventID: event.ID, ContentType: "text/plain", Content: []byte("definitely not an image"),
		})
		assertAppError(t, err, models.CodeValidation)
	})

	t.Run("rejects mismatched content type", func(t *testing.T) {
		_, err := svc.Upload(ctx, author.Identity(), UploadImageInput{
			EventID: event.ID, ContentType: "image/gif", Content: testutil.TinyPNG(t, 4, 4),
		})
		assertAppError(t, err, models.CodeValidation)
	})

	t.Run("rejects empty and oversized files", func(t *testing.T) {
		_, err := svc.Upload(ctx, author.Identity(), UploadImageInput{EventID: event.ID})
		assertAppError(t, err, models.CodeValidation)

		_, err = svc.Upload(ctx, author.Identity(), UploadImageInput{
			EventID: event.ID, ContentType: "image/png", Content: make([]byte, svc.MaxUploadBytes()+1),
		})
		assertAppError(t, err, models.CodeValidation)
	})

	t.Run("only the author may upload", func(t *testing.T) {
		_, err := svc.Upload(ctx, other.Identity(), UploadImageInput{
			EventID: event.ID, ContentType: "image/png", Content: testutil.TinyPNG(t, 4, 4),
		})
		assertAppError(t, err, models.CodeForbidden)
	})

	t.Run("missing event", func(t *testing.T) {
		_, err := svc.Upload(ctx, author.Identity(), UploadImageInput{
			EventID: 9999, ContentType: "image/png", Content: testutil.TinyPNG(t, 4, 4),
		})
		assertAppError(t, err, models.CodeNotFound)
	})
}
