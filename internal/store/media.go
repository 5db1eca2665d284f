package store

import (
	"database/sql"

	"quizforge/internal/model"
)

// PutMedia stores a media blob. Blobs can reach megabyte scale so they live
// only in the object store, never mirrored to the key-value backend.
func (s *Store) PutMedia(id, dataURL, mimeType string) error {
	if err := s.ensure(); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO media (id, mime_type, data_url, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET mime_type = ?, data_url = ?`,
		id, mimeType, dataURL, s.now().UTC(), mimeType, dataURL,
	)
	return storageErr("putMedia", err)
}

// GetMedia returns the media blob with the given id, or nil if not stored.
func (s *Store) GetMedia(id string) (*model.MediaBlob, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	var m model.MediaBlob
	err := s.db.QueryRow(
		`SELECT id, mime_type, data_url, created_at FROM media WHERE id = ?`, id,
	).Scan(&m.ID, &m.MimeType, &m.DataURL, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("getMedia", err)
	}
	return &m, nil
}

// DeleteMedia removes a media blob.
func (s *Store) DeleteMedia(id string) error {
	if err := s.ensure(); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM media WHERE id = ?`, id)
	return storageErr("deleteMedia", err)
}
