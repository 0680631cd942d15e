package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"seatwatch-backend/internal/model"
)

// MemoryStore keeps watches in process memory. go-cache's Add is the
// conditional write: it fails when the key is already present, which is
// what enforces one active watch per triple and one transition per watch.
type MemoryStore struct {
	watches     *cache.Cache // id -> model.Watch
	active      *cache.Cache // activeKey -> id
	transitions *cache.Cache // id -> time of deactivation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		watches:     cache.New(cache.NoExpiration, 0),
		active:      cache.New(cache.NoExpiration, 0),
		transitions: cache.New(cache.NoExpiration, 0),
	}
}

func activeKey(email string, crn, term int) string {
	return email + "|" + strconv.Itoa(crn) + "|" + strconv.Itoa(term)
}

func (s *MemoryStore) FindActiveDuplicate(_ context.Context, email string, crn, term int) (*model.Watch, error) {
	id, ok := s.active.Get(activeKey(email, crn, term))
	if !ok {
		return nil, nil
	}
	w, ok := s.get(id.(string))
	if !ok || !w.IsActive {
		return nil, nil
	}
	return &w, nil
}

func (s *MemoryStore) Create(_ context.Context, w *model.Watch) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	if w.IsActive {
		if err := s.active.Add(activeKey(w.Email, w.CRN, w.Term), w.ID, cache.NoExpiration); err != nil {
			return fmt.Errorf("watch %s/%d/%d: %w", w.Email, w.Term, w.CRN, ErrConflict)
		}
	}
	s.watches.Set(w.ID, *w, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) FindAllActiveFor(_ context.Context, identity model.Identity) ([]model.Watch, error) {
	if identity.IsZero() {
		return nil, nil
	}
	return s.filter(func(w model.Watch) bool {
		if !w.IsActive {
			return false
		}
		if identity.Email != "" && w.Email == identity.Email {
			return true
		}
		return identity.UserID != "" && w.UserID != nil && *w.UserID == identity.UserID
	}), nil
}

func (s *MemoryStore) FindAllActive(_ context.Context) ([]model.Watch, error) {
	return s.filter(func(w model.Watch) bool { return w.IsActive }), nil
}

func (s *MemoryStore) MarkFulfilled(_ context.Context, id string, at time.Time) error {
	return s.deactivate(id, at, func(w *model.Watch) { w.FulfilledAt = &at })
}

func (s *MemoryStore) Cancel(_ context.Context, id string, at time.Time) error {
	return s.deactivate(id, at, func(w *model.Watch) { w.CancelledAt = &at })
}

func (s *MemoryStore) deactivate(id string, at time.Time, stamp func(*model.Watch)) error {
	w, ok := s.get(id)
	if !ok || !w.IsActive {
		return fmt.Errorf("watch %s: %w", id, ErrNotFound)
	}
	if err := s.transitions.Add(id, at, cache.NoExpiration); err != nil {
		return fmt.Errorf("watch %s: %w", id, ErrNotFound)
	}

	// Release the active key before the record reads as inactive, so a
	// caller that sees the watch deactivated can always register again.
	s.active.Delete(activeKey(w.Email, w.CRN, w.Term))
	w.IsActive = false
	w.UpdatedAt = at
	stamp(&w)
	s.watches.Set(id, w, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) get(id string) (model.Watch, bool) {
	v, ok := s.watches.Get(id)
	if !ok {
		return model.Watch{}, false
	}
	return v.(model.Watch), true
}

func (s *MemoryStore) filter(keep func(model.Watch) bool) []model.Watch {
	var out []model.Watch
	for _, item := range s.watches.Items() {
		w := item.Object.(model.Watch)
		if keep(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
