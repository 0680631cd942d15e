package store

import (
	"context"
	"errors"
	"time"

	"seatwatch-backend/internal/model"
)

var (
	// ErrConflict is returned by Create when an active watch already exists
	// for the same email, CRN and term.
	ErrConflict = errors.New("active watch already exists")

	// ErrNotFound is returned when no active watch matches the given id.
	ErrNotFound = errors.New("active watch not found")
)

// Store defines the persistence operations on watches. Implementations
// enforce the one-active-watch-per-(email, crn, term) rule atomically.
type Store interface {
	FindActiveDuplicate(ctx context.Context, email string, crn, term int) (*model.Watch, error)
	Create(ctx context.Context, w *model.Watch) error
	FindAllActiveFor(ctx context.Context, identity model.Identity) ([]model.Watch, error)
	FindAllActive(ctx context.Context) ([]model.Watch, error)
	MarkFulfilled(ctx context.Context, id string, at time.Time) error
	Cancel(ctx context.Context, id string, at time.Time) error
}

// PushStore persists browser push subscriptions keyed by subscriber email.
type PushStore interface {
	UpsertPushSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetPushSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	PushSubscriptionsFor(ctx context.Context, email string) ([]model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}
