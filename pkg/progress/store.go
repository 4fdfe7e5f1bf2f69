package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mspacademy/labtrack/pkg/storage"
)

const (
	progressKeyPrefix = "progress:"
	historyKeyPrefix  = "labhistory:"
)

// Store persists progress records and lab history in the key-value store,
// one record per trainee under progress:<userID> and labhistory:<userID>.
type Store struct {
	store storage.Store
	now   func() time.Time
}

// NewStore creates a progress store
func NewStore(store storage.Store) *Store {
	return &Store{
		store: store,
		now:   time.Now,
	}
}

// Get returns the trainee's progress record. A trainee with no record yet
// gets an empty one rather than an error.
func (s *Store) Get(ctx context.Context, userID string) (*Record, error) {
	data, err := s.store.Get(ctx, progressKeyPrefix+userID)
	if err != nil {
		if err == storage.ErrNotFound {
			return &Record{UserID: userID, Labs: map[string]LabProgress{}}, nil
		}
		return nil, fmt.Errorf("progress read: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("corrupt progress record: %w", err)
	}
	if rec.Labs == nil {
		rec.Labs = map[string]LabProgress{}
	}
	return &rec, nil
}

// SetLab upserts one lab's status on the trainee's record and appends the
// matching history entry. Read-modify-write on a single key; concurrent
// updates are last-write-wins.
func (s *Store) SetLab(ctx context.Context, userID, labID string, status LabStatus, score int) (*Record, error) {
	if strings.TrimSpace(labID) == "" {
		return nil, fmt.Errorf("lab id is required")
	}
	if status != StatusInProgress && status != StatusCompleted {
		return nil, fmt.Errorf("unknown lab status %q", status)
	}

	rec, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	lab, exists := rec.Labs[labID]
	if !exists {
		lab = LabProgress{StartedAt: now}
	}
	lab.Status = status
	lab.Score = score
	lab.UpdatedAt = now
	if status == StatusCompleted {
		lab.DoneAt = &now
	}
	rec.Labs[labID] = lab
	rec.UpdatedAt = now

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := s.store.Put(ctx, progressKeyPrefix+userID, data, 0); err != nil {
		return nil, fmt.Errorf("progress write: %w", err)
	}

	action := "started"
	if status == StatusCompleted {
		action = "completed"
	}
	if err := s.appendHistory(ctx, userID, HistoryEntry{
		LabID:  labID,
		Action: action,
		At:     now,
		Score:  score,
	}); err != nil {
		return nil, err
	}

	return rec, nil
}

// History returns the trainee's lab event history, oldest first.
func (s *Store) History(ctx context.Context, userID string) ([]HistoryEntry, error) {
	data, err := s.store.Get(ctx, historyKeyPrefix+userID)
	if err != nil {
		if err == storage.ErrNotFound {
			return []HistoryEntry{}, nil
		}
		return nil, fmt.Errorf("history read: %w", err)
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corrupt history record: %w", err)
	}
	return entries, nil
}

// ListAll returns every trainee's progress record. Admin export surface.
func (s *Store) ListAll(ctx context.Context) ([]*Record, error) {
	keys, err := s.store.List(ctx, progressKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("progress list: %w", err)
	}

	records := make([]*Record, 0, len(keys))
	for _, key := range keys {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}

func (s *Store) appendHistory(ctx context.Context, userID string, entry HistoryEntry) error {
	entries, err := s.History(ctx, userID)
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := s.store.Put(ctx, historyKeyPrefix+userID, data, 0); err != nil {
		return fmt.Errorf("history write: %w", err)
	}
	return nil
}
