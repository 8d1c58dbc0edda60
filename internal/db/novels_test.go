package db

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/novel-tts/backend/internal/model"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var novelRowColumns = []string{"id", "user_id", "title", "description", "status", "file_path", "full_audio_url", "master_context", "created_at"}

func strPtr(s string) *string { return &s }

func TestCreateNovel(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO novels (user_id, title, description, status, file_path, created_at)`)).
		WithArgs(int64(1), "Title", "Desc", "uploads/1/a.txt").
		WillReturnRows(pgxmock.NewRows(novelRowColumns).
			AddRow(int64(10), int64(1), "Title", strPtr("Desc"), model.NovelStatusPending, "uploads/1/a.txt", strPtr(""), strPtr(""), now))

	n, err := db.CreateNovel(context.Background(), model.NewNovel{
		UserID:      1,
		Title:       "Title",
		Description: "Desc",
		FilePath:    "uploads/1/a.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), n.ID)
	assert.Equal(t, model.NovelStatusPending, n.Status)
	require.NotNil(t, n.Description)
	assert.Equal(t, "Desc", *n.Description)
}

func TestListNovelsByUser(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(`FROM novels WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(novelRowColumns).
			AddRow(int64(2), int64(1), "B", strPtr(""), "pending", "p2", strPtr(""), strPtr(""), now).
			AddRow(int64(1), int64(1), "A", strPtr(""), "done", "p1", strPtr("s3://a"), strPtr("{}"), now))

	list, err := db.ListNovelsByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Title)
	assert.Equal(t, "done", list[1].Status)
}

func TestListNovelsByUser_Empty(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FROM novels WHERE user_id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(novelRowColumns))

	list, err := db.ListNovelsByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestGetNovelForUser_NotOwned(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FROM novels WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(5), int64(2)).
		WillReturnError(pgx.ErrNoRows)

	_, err := db.GetNovelForUser(context.Background(), 5, 2)
	assert.True(t, IsNoRows(err))
}

func TestListSentences(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	cols := []string{"id", "novel_id", "sentence_index", "text", "speaker", "emotion", "instruction", "voice_id", "audio_url", "created_at"}

	mock.ExpectQuery(`FROM sentences\s+WHERE novel_id = \$1\s+ORDER BY sentence_index`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(1), int64(5), 0, "First.", strPtr("narrator"), strPtr("calm"), strPtr(""), strPtr("v1"), strPtr(""), now).
			AddRow(int64(2), int64(5), 1, "Second.", strPtr("hero"), strPtr("angry"), strPtr(""), strPtr("v2"), strPtr(""), now))

	list, err := db.ListSentences(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 0, list[0].SentenceIndex)
	assert.Equal(t, "Second.", list[1].Text)
}
