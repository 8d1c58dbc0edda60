package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/novel-tts/backend/internal/db"
	"github.com/novel-tts/backend/internal/model"
	"github.com/novel-tts/backend/internal/storage"
	"github.com/rs/zerolog"
)

const novelFileExt = ".txt"

type NovelRepo interface {
	CreateNovel(ctx context.Context, in model.NewNovel) (*model.Novel, error)
	ListNovelsByUser(ctx context.Context, userID int64) ([]model.Novel, error)
	GetNovelForUser(ctx context.Context, novelID, userID int64) (*model.Novel, error)
	ListSentences(ctx context.Context, novelID int64) ([]model.Sentence, error)
}

type Upload struct {
	Title       string
	Description string
	Filename    string
	Size        int64
	Body        io.Reader
}

type NovelService struct {
	repo     NovelRepo
	files    storage.FileStore
	maxBytes int64
	log      zerolog.Logger
}

func NewNovelService(repo NovelRepo, files storage.FileStore, maxBytes int64, log zerolog.Logger) *NovelService {
	return &NovelService{
		repo:     repo,
		files:    files,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "novel").Logger(),
	}
}

func (s *NovelService) MaxUploadBytes() int64 {
	return s.maxBytes
}

// Upload stores the text file under the owner's prefix and records a pending
// novel pointing at it.
func (s *NovelService) Upload(ctx context.Context, userID int64, up Upload) (*model.Novel, error) {
	title := strings.TrimSpace(up.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !strings.EqualFold(filepath.Ext(up.Filename), novelFileExt) {
		return nil, fmt.Errorf("%w: only %s files are accepted", ErrInvalidInput, novelFileExt)
	}
	if up.Size <= 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if s.maxBytes > 0 && up.Size > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	key := strconv.FormatInt(userID, 10) + "/" + uuid.NewString() + novelFileExt
	body := up.Body
	if s.maxBytes > 0 {
		body = io.LimitReader(body, s.maxBytes)
	}

	location, err := s.files.Save(ctx, key, body, up.Size)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	novel, err := s.repo.CreateNovel(ctx, model.NewNovel{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(up.Description),
		FilePath:    location,
	})
	if err != nil {
		// 업로드된 파일은 참조하는 row가 없으면 정리한다
		if delErr := s.files.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Error().Err(delErr).Str("key", key).Msg("failed to remove orphaned upload")
		}
		return nil, fmt.Errorf("create novel: %w", err)
	}

	s.log.Info().Int64("user_id", userID).Int64("novel_id", novel.ID).Int64("bytes", up.Size).Msg("novel uploaded")
	return novel, nil
}

func (s *NovelService) List(ctx context.Context, userID int64) ([]model.Novel, error) {
	return s.repo.ListNovelsByUser(ctx, userID)
}

// Get hides other users' novels behind ErrNotFound.
func (s *NovelService) Get(ctx context.Context, userID, novelID int64) (*model.Novel, error) {
	novel, err := s.repo.GetNovelForUser(ctx, novelID, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return novel, nil
}

func (s *NovelService) Sentences(ctx context.Context, userID, novelID int64) ([]model.Sentence, error) {
	if _, err := s.Get(ctx, userID, novelID); err != nil {
		return nil, err
	}
	return s.repo.ListSentences(ctx, novelID)
}
