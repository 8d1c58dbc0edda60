package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/novel-tts/backend/internal/model"
	"github.com/novel-tts/backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNovelService(t *testing.T, maxBytes int64) (*NovelService, *testutil.MemStore, *testutil.MemFileStore) {
	t.Helper()
	store := testutil.NewMemStore()
	files := testutil.NewMemFileStore()
	return NewNovelService(store, files, maxBytes, zerolog.Nop()), store, files
}

func textUpload(title, filename, body string) Upload {
	return Upload{
		Title:    title,
		Filename: filename,
		Size:     int64(len(body)),
		Body:     strings.NewReader(body),
	}
}

func TestNovelUpload(t *testing.T) {
	svc, _, files := newNovelService(t, 1024)
	up := textUpload("  My Novel ", "story.TXT", "Once upon a time.")
	up.Description = "short"

	novel, err := svc.Upload(context.Background(), 7, up)
	require.NoError(t, err)
	assert.Equal(t, "My Novel", novel.Title)
	assert.Equal(t, int64(7), novel.UserID)
	assert.Equal(t, model.NovelStatusPending, novel.Status)
	require.NotNil(t, novel.Description)
	assert.Equal(t, "short", *novel.Description)
	assert.True(t, strings.HasPrefix(novel.FilePath, "mem://7/"))

	require.Len(t, files.Files, 1)
	for key, body := range files.Files {
		assert.True(t, strings.HasSuffix(key, ".txt"))
		assert.Equal(t, "Once upon a time.", body)
	}
}

func TestNovelUpload_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		upload  Upload
		wantErr error
	}{
		{name: "missing title", upload: textUpload(" ", "a.txt", "x"), wantErr: ErrInvalidInput},
		{name: "wrong extension", upload: textUpload("t", "a.pdf", "x"), wantErr: ErrInvalidInput},
		{name: "no extension", upload: textUpload("t", "txt", "x"), wantErr: ErrInvalidInput},
		{name: "empty file", upload: textUpload("t", "a.txt", ""), wantErr: ErrInvalidInput},
		{name: "too large", upload: textUpload("t", "a.txt", strings.Repeat("x", 17)), wantErr: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, files := newNovelService(t, 16)
			_, err := svc.Upload(context.Background(), 1, tt.upload)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, files.Files)

			list, err := store.ListNovelsByUser(context.Background(), 1)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestNovelUpload_StorageFailure(t *testing.T) {
	svc, store, files := newNovelService(t, 1024)
	files.Err = errors.New("disk full")

	_, err := svc.Upload(context.Background(), 1, textUpload("t", "a.txt", "body"))
	assert.ErrorContains(t, err, "disk full")

	list, err := store.ListNovelsByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNovelUpload_DatabaseFailureRemovesFile(t *testing.T) {
	svc, store, files := newNovelService(t, 1024)
	store.SetErr(errors.New("db down"))

	_, err := svc.Upload(context.Background(), 1, textUpload("T", "a.txt", "body"))
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, files.Files)
}

func TestNovelUpload_CleanupFailureKeepsOriginalError(t *testing.T) {
	svc, store, files := newNovelService(t, 1024)
	store.SetErr(errors.New("db down"))
	files.DeleteErr = errors.New("bucket gone")

	_, err := svc.Upload(context.Background(), 1, textUpload("T", "a.txt", "body"))
	assert.ErrorContains(t, err, "create novel: db down")
}

func TestNovelGet_Ownership(t *testing.T) {
	svc, _, _ := newNovelService(t, 1024)
	ctx := context.Background()

	novel, err := svc.Upload(ctx, 1, textUpload("mine", "a.txt", "body"))
	require.NoError(t, err)

	got, err := svc.Get(ctx, 1, novel.ID)
	require.NoError(t, err)
	assert.Equal(t, novel.ID, got.ID)

	_, err = svc.Get(ctx, 2, novel.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, 1, novel.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Sentences(ctx, 2, novel.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNovelList(t *testing.T) {
	svc, _, _ := newNovelService(t, 1024)
	ctx := context.Background()

	empty, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.Upload(ctx, 1, textUpload("first", "a.txt", "a"))
	require.NoError(t, err)
	_, err = svc.Upload(ctx, 1, textUpload("second", "b.txt", "b"))
	require.NoError(t, err)
	_, err = svc.Upload(ctx, 2, textUpload("other", "c.txt", "c"))
	require.NoError(t, err)

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, "first", list[1].Title)
}

func TestNovelSentences_Ordered(t *testing.T) {
	svc, store, _ := newNovelService(t, 1024)
	ctx := context.Background()

	novel, err := svc.Upload(ctx, 1, textUpload("t", "a.txt", "body"))
	require.NoError(t, err)
	store.AddSentence(model.Sentence{NovelID: novel.ID, SentenceIndex: 1, Text: "Second."})
	store.AddSentence(model.Sentence{NovelID: novel.ID, SentenceIndex: 0, Text: "First."})

	list, err := svc.Sentences(ctx, 1, novel.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "First.", list[0].Text)
	assert.Equal(t, "Second.", list[1].Text)
}
