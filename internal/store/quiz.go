package store

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"quizforge/internal/model"
)

// mediaIDPrefix marks a question media URL that references a stored blob.
const mediaIDPrefix = "media:"

// PutQuiz stores a quiz, overwriting any quiz with the same id. A missing id
// is assigned; zero timestamps are filled with now. Time fields are
// normalized to UTC so stored documents compare stably across round trips.
func (s *Store) PutQuiz(q *model.Quiz) error {
	if err := s.ensure(); err != nil {
		return err
	}
	if q.ID == "" {
		q.ID = model.NewID()
	}
	now := s.now().UTC()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	if q.UpdatedAt.IsZero() || q.UpdatedAt.Before(q.CreatedAt) {
		q.UpdatedAt = q.CreatedAt
	}
	q.CreatedAt = q.CreatedAt.UTC()
	q.UpdatedAt = q.UpdatedAt.UTC()

	data, err := json.Marshal(q)
	if err != nil {
		return storageErr("putQuiz", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO quizzes (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = ?, updated_at = ?`,
		q.ID, string(data), q.CreatedAt, q.UpdatedAt, string(data), q.UpdatedAt,
	)
	return storageErr("putQuiz", err)
}

// GetQuiz returns the quiz with the given id, or nil if not stored. A corrupt
// row is logged and reported as missing rather than failing the caller.
func (s *Store) GetQuiz(id string) (*model.Quiz, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	var data string
	err := s.db.QueryRow(`SELECT data FROM quizzes WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("getQuiz", err)
	}
	var q model.Quiz
	if err := json.Unmarshal([]byte(data), &q); err != nil {
		slog.Error("corrupt quiz row", "id", id, "error", err)
		s.logError("storage", "corrupt quiz row "+id)
		return nil, nil
	}
	return &q, nil
}

// ListQuizzes returns all quizzes ordered by creation time, newest first.
func (s *Store) ListQuizzes() ([]model.Quiz, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT id, data FROM quizzes ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, storageErr("listQuizzes", err)
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, storageErr("listQuizzes", err)
		}
		var q model.Quiz
		if err := json.Unmarshal([]byte(data), &q); err != nil {
			slog.Error("corrupt quiz row, skipping", "id", id, "error", err)
			continue
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, storageErr("listQuizzes", rows.Err())
}

// QuizPatch holds partial quiz updates. Nil fields are left unchanged.
type QuizPatch struct {
	Title       *string             `json:"title,omitempty"`
	Description *string             `json:"description,omitempty"`
	Questions   []model.Question    `json:"questions,omitempty"`
	Settings    *model.QuizSettings `json:"settings,omitempty"`
}

// PatchQuiz applies partial updates to a stored quiz. The id and createdAt
// are preserved; updatedAt is overwritten with now.
func (s *Store) PatchQuiz(id string, patch QuizPatch) (*model.Quiz, error) {
	q, err := s.GetQuiz(id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, nil
	}

	if patch.Title != nil {
		q.Title = *patch.Title
	}
	if patch.Description != nil {
		q.Description = *patch.Description
	}
	if patch.Questions != nil {
		q.Questions = patch.Questions
	}
	if patch.Settings != nil {
		q.Settings = *patch.Settings
	}
	q.UpdatedAt = s.now().UTC()
	if q.UpdatedAt.Before(q.CreatedAt) {
		q.UpdatedAt = q.CreatedAt
	}

	if err := s.PutQuiz(q); err != nil {
		return nil, err
	}
	return q, nil
}

// DeleteQuiz removes a quiz and every result referencing it in a single
// transaction; either both disappear or neither does. Media blobs referenced
// by the quiz's questions are cleaned up best-effort after the commit.
func (s *Store) DeleteQuiz(id string) error {
	if err := s.ensure(); err != nil {
		return err
	}

	q, err := s.GetQuiz(id)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return storageErr("deleteQuiz", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM results WHERE quiz_id = ?`, id); err != nil {
		return storageErr("deleteQuiz", err)
	}
	if _, err := tx.Exec(`DELETE FROM quizzes WHERE id = ?`, id); err != nil {
		return storageErr("deleteQuiz", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("deleteQuiz", err)
	}

	if q != nil {
		for _, mediaID := range referencedMediaIDs(*q) {
			if err := s.DeleteMedia(mediaID); err != nil {
				slog.Warn("orphan media cleanup failed", "quiz", id, "media", mediaID, "error", err)
			}
		}
	}
	return nil
}

func referencedMediaIDs(q model.Quiz) []string {
	var ids []string
	for _, question := range q.Questions {
		if question.Media == nil {
			continue
		}
		if rest, ok := strings.CutPrefix(question.Media.URL, mediaIDPrefix); ok && rest != "" {
			ids = append(ids, rest)
		}
	}
	return ids
}
