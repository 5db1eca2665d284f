package model

import "time"

// SnapshotVersion is the export format version this build reads and writes.
const SnapshotVersion = "1.0"

// SnapshotData bundles the exported entities.
type SnapshotData struct {
	Quizzes     []Quiz           `json:"quizzes"`
	Results     []Result         `json:"results"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
}

// Snapshot is the top-level export/import document. Unknown extra fields are
// ignored on import for forward compatibility; a missing Version is rejected.
type Snapshot struct {
	Version    string       `json:"version"`
	ExportedAt time.Time    `json:"exportedAt"`
	UserID     string       `json:"userId"`
	Data       SnapshotData `json:"data"`
}

// ImportCounts tallies the outcome for one entity kind.
type ImportCounts struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ImportSummary reports what an import actually did.
type ImportSummary struct {
	Quizzes     ImportCounts `json:"quizzes"`
	Results     ImportCounts `json:"results"`
	Preferences ImportCounts `json:"preferences"`
}
