package db

import (
	"context"

	"github.com/novel-tts/backend/internal/model"
)

const novelColumns = `id, user_id, title, description, status, file_path, full_audio_url, master_context, created_at`

func scanNovel(row interface{ Scan(dest ...any) error }) (*model.Novel, error) {
	var n model.Novel
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Description,
		&n.Status,
		&n.FilePath,
		&n.FullAudioURL,
		&n.MasterContext,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (db *Postgres) CreateNovel(ctx context.Context, in model.NewNovel) (*model.Novel, error) {
	query := `
		INSERT INTO novels (user_id, title, description, status, file_path, created_at)
		VALUES ($1, $2, NULLIF($3, ''), 'pending', $4, NOW())
		RETURNING ` + novelColumns
	return scanNovel(db.Pool.QueryRow(ctx, query, in.UserID, in.Title, in.Description, in.FilePath))
}

func (db *Postgres) ListNovelsByUser(ctx context.Context, userID int64) ([]model.Novel, error) {
	query := `SELECT ` + novelColumns + ` FROM novels WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.Novel{}
	for rows.Next() {
		n, err := scanNovel(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

// GetNovelForUser returns pgx.ErrNoRows when the novel does not exist or
// belongs to someone else.
func (db *Postgres) GetNovelForUser(ctx context.Context, novelID, userID int64) (*model.Novel, error) {
	query := `SELECT ` + novelColumns + ` FROM novels WHERE id = $1 AND user_id = $2`
	return scanNovel(db.Pool.QueryRow(ctx, query, novelID, userID))
}

func (db *Postgres) ListSentences(ctx context.Context, novelID int64) ([]model.Sentence, error) {
	query := `
		SELECT id, novel_id, sentence_index, text, speaker, emotion, instruction, voice_id, audio_url, created_at
		FROM sentences
		WHERE novel_id = $1
		ORDER BY sentence_index
	`
	rows, err := db.Pool.Query(ctx, query, novelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.Sentence{}
	for rows.Next() {
		var s model.Sentence
		if err := rows.Scan(
			&s.ID,
			&s.NovelID,
			&s.SentenceIndex,
			&s.Text,
			&s.Speaker,
			&s.Emotion,
			&s.Instruction,
			&s.VoiceID,
			&s.AudioURL,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
