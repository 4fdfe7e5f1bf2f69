// Package progress tracks per-trainee lab progress and completion history in
// the key-value store. It is a consumer of the auth core, not part of it:
// handlers resolve the identity first and this package only sees user IDs.
//
// Concurrent updates for the same user are not serialized; the store gives
// per-key last-write-wins and that is accepted here, progress is not
// safety-critical.
package progress

import "time"

// LabStatus is the state of a single lab for one trainee
type LabStatus string

const (
	StatusInProgress LabStatus = "in_progress"
	StatusCompleted  LabStatus = "completed"
)

// LabProgress is one lab's entry in a trainee's progress record
type LabProgress struct {
	Status    LabStatus  `json:"status"`
	Score     int        `json:"score,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
}

// Record is a trainee's full progress state
type Record struct {
	UserID    string                 `json:"user_id"`
	Labs      map[string]LabProgress `json:"labs"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// CompletionPercent returns the share of tracked labs that are completed,
// as a whole percentage. A trainee with no tracked labs is at 0.
func (r *Record) CompletionPercent() int {
	if len(r.Labs) == 0 {
		return 0
	}
	completed := 0
	for _, lab := range r.Labs {
		if lab.Status == StatusCompleted {
			completed++
		}
	}
	return completed * 100 / len(r.Labs)
}

// HistoryEntry is one event in a trainee's lab history
type HistoryEntry struct {
	LabID  string    `json:"lab_id"`
	Action string    `json:"action"` // "started" or "completed"
	At     time.Time `json:"at"`
	Score  int       `json:"score,omitempty"`
}
