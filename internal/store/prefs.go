package store

import (
	"encoding/json"
	"log/slog"
	"time"

	"quizforge/internal/model"
)

const (
	kvPrefix       = "quizforge"
	keyPreferences = kvPrefix + "-preferences"
	keyUserID      = kvPrefix + "-user-id"
	keyErrors      = kvPrefix + "-errors"

	// maxLoggedErrors bounds the rolling diagnostic log.
	maxLoggedErrors = 50
)

// GetPreferences returns the stored preferences, or nil when none are stored.
// An unparseable value is logged and reported as missing.
func (s *Store) GetPreferences() (*model.UserPreferences, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	raw, ok, err := s.kv.Get(keyPreferences)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var p model.UserPreferences
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		slog.Warn("unparseable preferences, treating as unset", "error", err)
		return nil, nil
	}
	return &p, nil
}

// PutPreferences replaces the stored preferences.
func (s *Store) PutPreferences(p model.UserPreferences) error {
	if err := s.ensure(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return storageErr("putPreferences", err)
	}
	return s.kv.Set(keyPreferences, string(data))
}

// PreferencesPatch holds partial preference updates; nil fields keep their
// stored value, merging field-by-field over apiKeys and preferences.
type PreferencesPatch struct {
	GeminiKey           *string             `json:"geminiKey,omitempty"`
	Theme               *model.Theme        `json:"theme,omitempty"`
	DefaultQuizSettings *model.QuizSettings `json:"defaultQuizSettings,omitempty"`
}

// PatchPreferences deep-merges updates over the stored preferences, starting
// from the defaults when nothing is stored yet.
func (s *Store) PatchPreferences(patch PreferencesPatch) (*model.UserPreferences, error) {
	current, err := s.GetPreferences()
	if err != nil {
		return nil, err
	}
	if current == nil {
		defaults := model.DefaultPreferences()
		current = &defaults
	}

	if patch.GeminiKey != nil {
		current.APIKeys.GeminiKey = *patch.GeminiKey
	}
	if patch.Theme != nil {
		current.Preferences.Theme = *patch.Theme
	}
	if patch.DefaultQuizSettings != nil {
		current.Preferences.DefaultQuizSettings = *patch.DefaultQuizSettings
	}

	if err := s.PutPreferences(*current); err != nil {
		return nil, err
	}
	return current, nil
}

// EnsureUserID returns the stored local profile id, generating and persisting
// one on first use. If the key-value backend is unavailable an ephemeral id
// is used for the rest of the process lifetime.
func (s *Store) EnsureUserID() (string, error) {
	if err := s.ensure(); err != nil {
		return s.ephemeralUserID(), nil
	}
	id, ok, err := s.kv.Get(keyUserID)
	if err != nil {
		return s.ephemeralUserID(), nil
	}
	if ok && id != "" {
		return id, nil
	}
	id = model.NewID()
	if err := s.kv.Set(keyUserID, id); err != nil {
		slog.Warn("persisting user id failed, using ephemeral id", "error", err)
		return s.ephemeralUserID(), nil
	}
	return id, nil
}

func (s *Store) ephemeralUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ephemeralID == "" {
		s.ephemeralID = model.NewID()
	}
	return s.ephemeralID
}

// LoggedError is one entry of the rolling diagnostic log.
type LoggedError struct {
	At        time.Time `json:"at"`
	Subsystem string    `json:"subsystem"`
	Message   string    `json:"message"`
}

// LogError appends an entry to the rolling error log, keeping the most recent
// entries only. Logging failures are swallowed; diagnostics must never fail
// the operation that produced them.
func (s *Store) LogError(subsystem, message string) {
	if err := s.ensure(); err != nil {
		return
	}
	s.logError(subsystem, message)
}

func (s *Store) logError(subsystem, message string) {
	entries, _ := s.RecentErrors()
	entries = append(entries, LoggedError{At: s.now().UTC(), Subsystem: subsystem, Message: message})
	if len(entries) > maxLoggedErrors {
		entries = entries[len(entries)-maxLoggedErrors:]
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.kv.Set(keyErrors, string(data)); err != nil {
		slog.Debug("error log write failed", "error", err)
	}
}

// RecentErrors returns the rolling error log, oldest first.
func (s *Store) RecentErrors() ([]LoggedError, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	raw, ok, err := s.kv.Get(keyErrors)
	if err != nil || !ok {
		return nil, err
	}
	var entries []LoggedError
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, nil
	}
	return entries, nil
}
