package store

import (
	"fmt"

	"quizforge/internal/model"
)

// Export builds a snapshot of everything in the store.
func (s *Store) Export() (*model.Snapshot, error) {
	quizzes, err := s.ListQuizzes()
	if err != nil {
		return nil, fmt.Errorf("export quizzes: %w", err)
	}
	results, err := s.ListResults()
	if err != nil {
		return nil, fmt.Errorf("export results: %w", err)
	}
	prefs, err := s.GetPreferences()
	if err != nil {
		return nil, fmt.Errorf("export preferences: %w", err)
	}
	userID, err := s.EnsureUserID()
	if err != nil {
		return nil, fmt.Errorf("export user id: %w", err)
	}

	return &model.Snapshot{
		Version:    model.SnapshotVersion,
		ExportedAt: s.now().UTC(),
		UserID:     userID,
		Data: model.SnapshotData{
			Quizzes:     quizzes,
			Results:     results,
			Preferences: prefs,
		},
	}, nil
}

// Import loads a snapshot into the store. Existing entities are kept and
// counted as skipped unless overwrite is set. A snapshot without a version is
// rejected; unknown snapshot fields were already dropped during decoding.
func (s *Store) Import(snap model.Snapshot, overwrite bool) (model.ImportSummary, error) {
	var summary model.ImportSummary
	if snap.Version == "" {
		return summary, fmt.Errorf("snapshot has no version")
	}

	for i := range snap.Data.Quizzes {
		q := snap.Data.Quizzes[i]
		existing, err := s.GetQuiz(q.ID)
		if err != nil {
			return summary, fmt.Errorf("import quiz %s: %w", q.ID, err)
		}
		if existing != nil && !overwrite {
			summary.Quizzes.Skipped++
			continue
		}
		if err := s.PutQuiz(&q); err != nil {
			return summary, fmt.Errorf("import quiz %s: %w", q.ID, err)
		}
		summary.Quizzes.Imported++
	}

	for i := range snap.Data.Results {
		r := snap.Data.Results[i]
		existing, err := s.GetResult(r.ID)
		if err != nil {
			return summary, fmt.Errorf("import result %s: %w", r.ID, err)
		}
		if existing != nil && !overwrite {
			summary.Results.Skipped++
			continue
		}
		if err := s.PutResult(&r); err != nil {
			return summary, fmt.Errorf("import result %s: %w", r.ID, err)
		}
		summary.Results.Imported++
	}

	if snap.Data.Preferences != nil {
		existing, err := s.GetPreferences()
		if err != nil {
			return summary, fmt.Errorf("import preferences: %w", err)
		}
		if existing == nil || overwrite {
			if err := s.PutPreferences(*snap.Data.Preferences); err != nil {
				return summary, fmt.Errorf("import preferences: %w", err)
			}
			summary.Preferences.Imported++
		} else {
			summary.Preferences.Skipped++
		}
	}

	return summary, nil
}
