package model

import "time"

const (
	NovelStatusPending    = "pending"
	NovelStatusProcessing = "processing"
	NovelStatusDone       = "done"
	NovelStatusError      = "error"
)

type NewNovel struct {
	UserID      int64
	Title       string
	Description string
	FilePath    string
}

type Novel struct {
	ID            int64
	UserID        int64
	Title         string
	Description   *string
	Status        string
	FilePath      string
	FullAudioURL  *string
	MasterContext *string
	CreatedAt     time.Time
}

type Sentence struct {
	ID            int64
	NovelID       int64
	SentenceIndex int
	Text          string
	Speaker       *string
	Emotion       *string
	Instruction   *string
	VoiceID       *string
	AudioURL      *string
	CreatedAt     time.Time
}

type NovelResponse struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	Status        string    `json:"status"`
	FullAudioURL  *string   `json:"full_audio_url"`
	MasterContext *string   `json:"master_context"`
	CreatedAt     time.Time `json:"created_at"`
	UserID        int64     `json:"user_id"`
}

func NewNovelResponse(n *Novel) NovelResponse {
	return NovelResponse{
		ID:            n.ID,
		Title:         n.Title,
		Description:   n.Description,
		Status:        n.Status,
		FullAudioURL:  n.FullAudioURL,
		MasterContext: n.MasterContext,
		CreatedAt:     n.CreatedAt,
		UserID:        n.UserID,
	}
}

type SentenceResponse struct {
	ID            int64     `json:"id"`
	NovelID       int64     `json:"novel_id"`
	SentenceIndex int       `json:"sentence_index"`
	Text          string    `json:"text"`
	Speaker       *string   `json:"speaker"`
	Emotion       *string   `json:"emotion"`
	Instruction   *string   `json:"instruction"`
	VoiceID       *string   `json:"voice_id"`
	AudioURL      *string   `json:"audio_url"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewSentenceResponse(s *Sentence) SentenceResponse {
	return SentenceResponse{
		ID:            s.ID,
		NovelID:       s.NovelID,
		SentenceIndex: s.SentenceIndex,
		Text:          s.Text,
		Speaker:       s.Speaker,
		Emotion:       s.Emotion,
		Instruction:   s.Instruction,
		VoiceID:       s.VoiceID,
		AudioURL:      s.AudioURL,
		CreatedAt:     s.CreatedAt,
	}
}
