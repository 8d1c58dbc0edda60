// Package testutil provides in-memory stand-ins for the Postgres repositories.
// They report the same errors pgx does (pgx.ErrNoRows, unique violations) so
// service code takes the same branches as in production.
package testutil

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/novel-tts/backend/internal/model"
)

type MemStore struct {
	mu        sync.Mutex
	users     map[int64]*model.User
	byEmail   map[string]int64
	revoked   map[string]*time.Time
	novels    map[int64]*model.Novel
	sentences map[int64][]model.Sentence
	nextID    int64

	// Err, when set, is returned by every call.
	Err error
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:     make(map[int64]*model.User),
		byEmail:   make(map[string]int64),
		revoked:   make(map[string]*time.Time),
		novels:    make(map[int64]*model.Novel),
		sentences: make(map[int64][]model.Sentence),
	}
}

func (m *MemStore) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

func (m *MemStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemStore) CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if _, ok := m.byEmail[email]; ok {
		return nil, &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"}
	}
	u := &model.User{ID: m.id(), Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	m.users[u.ID] = u
	m.byEmail[email] = u.ID
	cp := *u
	return &cp, nil
}

func (m *MemStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	id, ok := m.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *m.users[id]
	return &cp, nil
}

// DeleteUser exists for tests that need a token whose subject is gone.
func (m *MemStore) DeleteUser(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byEmail[email]; ok {
		delete(m.users, id)
		delete(m.byEmail, email)
	}
}

func (m *MemStore) InsertRevokedToken(ctx context.Context, jti string, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.revoked[jti]; !ok {
		m.revoked[jti] = expiresAt
	}
	return nil
}

func (m *MemStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.revoked[jti]
	return ok, nil
}

func (m *MemStore) DeleteExpiredRevokedTokens(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for jti, exp := range m.revoked {
		if exp != nil && exp.Before(before) {
			delete(m.revoked, jti)
			n++
		}
	}
	return n, nil
}

func (m *MemStore) RevokedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.revoked)
}

func (m *MemStore) CreateNovel(ctx context.Context, in model.NewNovel) (*model.Novel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	n := &model.Novel{
		ID:        m.id(),
		UserID:    in.UserID,
		Title:     in.Title,
		Status:    model.NovelStatusPending,
		FilePath:  in.FilePath,
		CreatedAt: time.Now().UTC(),
	}
	if in.Description != "" {
		d := in.Description
		n.Description = &d
	}
	m.novels[n.ID] = n
	cp := *n
	return &cp, nil
}

func (m *MemStore) ListNovelsByUser(ctx context.Context, userID int64) ([]model.Novel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	list := []model.Novel{}
	for _, n := range m.novels {
		if n.UserID == userID {
			list = append(list, *n)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (m *MemStore) GetNovelForUser(ctx context.Context, novelID, userID int64) (*model.Novel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	n, ok := m.novels[novelID]
	if !ok || n.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	cp := *n
	return &cp, nil
}

func (m *MemStore) AddSentence(s model.Sentence) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	m.sentences[s.NovelID] = append(m.sentences[s.NovelID], s)
}

func (m *MemStore) ListSentences(ctx context.Context, novelID int64) ([]model.Sentence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	list := append([]model.Sentence{}, m.sentences[novelID]...)
	sort.Slice(list, func(i, j int) bool { return list[i].SentenceIndex < list[j].SentenceIndex })
	return list, nil
}

// MemFileStore keeps uploaded bodies in memory.
type MemFileStore struct {
	mu        sync.Mutex
	Files     map[string]string
	Err       error
	DeleteErr error
}

func NewMemFileStore() *MemFileStore {
	return &MemFileStore{Files: make(map[string]string)}
}

func (f *MemFileStore) Save(ctx context.Context, key string, r io.Reader, size int64) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	var b strings.Builder
	if _, err := io.Copy(&b, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Files[key] = b.String()
	return "mem://" + key, nil
}

func (f *MemFileStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.Files, key)
	return nil
}
