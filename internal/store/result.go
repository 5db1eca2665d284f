package store

import (
	"database/sql"
	"encoding/json"
	"log/slog"

	"quizforge/internal/model"
)

// PutResult stores a result, overwriting any result with the same id.
func (s *Store) PutResult(r *model.Result) error {
	if err := s.ensure(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = model.NewID()
	}
	r.StartedAt = r.StartedAt.UTC()
	r.CompletedAt = r.CompletedAt.UTC()

	data, err := json.Marshal(r)
	if err != nil {
		return storageErr("putResult", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO results (id, quiz_id, user_id, completed_at, data) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET quiz_id = ?, user_id = ?, completed_at = ?, data = ?`,
		r.ID, r.QuizID, r.UserID, r.CompletedAt, string(data),
		r.QuizID, r.UserID, r.CompletedAt, string(data),
	)
	return storageErr("putResult", err)
}

// GetResult returns the result with the given id, or nil if not stored.
func (s *Store) GetResult(id string) (*model.Result, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	var data string
	err := s.db.QueryRow(`SELECT data FROM results WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("getResult", err)
	}
	var r model.Result
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		slog.Error("corrupt result row", "id", id, "error", err)
		s.logError("storage", "corrupt result row "+id)
		return nil, nil
	}
	return &r, nil
}

// ListResultsByQuiz returns all results for a quiz, newest completion first.
func (s *Store) ListResultsByQuiz(quizID string) ([]model.Result, error) {
	return s.listResults(`SELECT id, data FROM results WHERE quiz_id = ? ORDER BY completed_at DESC, id`, quizID)
}

// ListResultsByUser returns all results recorded for a user, newest first.
func (s *Store) ListResultsByUser(userID string) ([]model.Result, error) {
	return s.listResults(`SELECT id, data FROM results WHERE user_id = ? ORDER BY completed_at DESC, id`, userID)
}

// ListResults returns every stored result, newest completion first.
func (s *Store) ListResults() ([]model.Result, error) {
	return s.listResults(`SELECT id, data FROM results ORDER BY completed_at DESC, id`)
}

func (s *Store) listResults(query string, args ...any) ([]model.Result, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("listResults", err)
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, storageErr("listResults", err)
		}
		var r model.Result
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			slog.Error("corrupt result row, skipping", "id", id, "error", err)
			continue
		}
		results = append(results, r)
	}
	return results, storageErr("listResults", rows.Err())
}

// DeleteResult removes a single result.
func (s *Store) DeleteResult(id string) error {
	if err := s.ensure(); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM results WHERE id = ?`, id)
	return storageErr("deleteResult", err)
}
