package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mspacademy/labtrack/pkg/storage"
)

const (
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "useremail:"
)

// UserStore persists user records in the key-value store. Users are keyed by
// id under user:<id>, with a useremail:<normalized> index mapping each email
// to its user id. Exactly one user per normalized email.
type UserStore struct {
	store storage.Store
	now   func() time.Time
}

// NewUserStore creates a user store
func NewUserStore(store storage.Store) *UserStore {
	return &UserStore{
		store: store,
		now:   time.Now,
	}
}

// NormalizeEmail lowercases and trims an email for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func userEmailKey(email string) string {
	return userEmailKeyPrefix + NormalizeEmail(email)
}

// Create persists a new user. Returns ErrEmailTaken if the normalized email
// is already indexed.
func (us *UserStore) Create(ctx context.Context, name, email, passwordHash string, role Role) (*User, error) {
	email = NormalizeEmail(email)

	rec := &userRecord{
		ID:           NewID(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    us.now().UTC(),
	}

	// The email index is claimed with a conditional write, so concurrent
	// registrations of the same address cannot both succeed.
	claimed, err := us.store.PutIfAbsent(ctx, userEmailKey(email), []byte(rec.ID), 0)
	if err != nil {
		return nil, fmt.Errorf("%w: email index write: %v", ErrStorageUnavailable, err)
	}
	if !claimed {
		return nil, ErrEmailTaken
	}

	if err := us.put(ctx, rec); err != nil {
		// Release the claim so a retry is not locked out by a half write.
		_ = us.store.Delete(ctx, userEmailKey(email))
		return nil, err
	}

	return rec.user(), nil
}

// GetByID fetches a user by id. Returns storage.ErrNotFound when absent.
func (us *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	data, err := us.store.Get(ctx, userKey(id))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("%w: user read: %v", ErrStorageUnavailable, err)
	}

	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: corrupt user record: %v", ErrStorageUnavailable, err)
	}
	return rec.user(), nil
}

// GetByEmail resolves a normalized email through the index, then fetches the
// user. Returns storage.ErrNotFound when either lookup misses.
func (us *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	id, err := us.store.Get(ctx, userEmailKey(email))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("%w: email lookup: %v", ErrStorageUnavailable, err)
	}
	return us.GetByID(ctx, string(id))
}

// SetLastLogin records a login timestamp on the user.
func (us *UserStore) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	data, err := us.store.Get(ctx, userKey(id))
	if err != nil {
		if err == storage.ErrNotFound {
			return storage.ErrNotFound
		}
		return fmt.Errorf("%w: user read: %v", ErrStorageUnavailable, err)
	}

	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("%w: corrupt user record: %v", ErrStorageUnavailable, err)
	}

	at = at.UTC()
	rec.LastLogin = &at
	return us.put(ctx, &rec)
}

// SetPasswordHash replaces the stored password hash.
func (us *UserStore) SetPasswordHash(ctx context.Context, id, passwordHash string) error {
	data, err := us.store.Get(ctx, userKey(id))
	if err != nil {
		if err == storage.ErrNotFound {
			return storage.ErrNotFound
		}
		return fmt.Errorf("%w: user read: %v", ErrStorageUnavailable, err)
	}

	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("%w: corrupt user record: %v", ErrStorageUnavailable, err)
	}

	rec.PasswordHash = passwordHash
	return us.put(ctx, &rec)
}

// List returns all users. Admin-only surface; the trainee population of a
// training lab is small enough for a full scan.
func (us *UserStore) List(ctx context.Context) ([]*User, error) {
	keys, err := us.store.List(ctx, userKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: user list: %v", ErrStorageUnavailable, err)
	}

	users := make([]*User, 0, len(keys))
	for _, key := range keys {
		data, err := us.store.Get(ctx, key)
		if err != nil {
			// Key expired or deleted between List and Get
			continue
		}
		var rec userRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		users = append(users, rec.user())
	}
	return users, nil
}

func (us *UserStore) put(ctx context.Context, rec *userRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := us.store.Put(ctx, userKey(rec.ID), data, 0); err != nil {
		return fmt.Errorf("%w: user write: %v", ErrStorageUnavailable, err)
	}
	return nil
}
