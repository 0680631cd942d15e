package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seatwatch-backend/internal/model"
)

// GormStore implements Store and PushStore using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FindActiveDuplicate returns the active watch for the triple, or nil when there is none.
func (s *GormStore) FindActiveDuplicate(ctx context.Context, email string, crn, term int) (*model.Watch, error) {
	var w model.Watch
	err := s.db.WithContext(ctx).
		Where("email = ? AND crn = ? AND term = ? AND is_active = ?", email, crn, term, true).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up active watch: %w", err)
	}
	return &w, nil
}

// Create inserts the watch. A violation of the active-watch unique index is reported as ErrConflict.
func (s *GormStore) Create(ctx context.Context, w *model.Watch) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("watch %s/%d/%d: %w", w.Email, w.Term, w.CRN, ErrConflict)
		}
		return fmt.Errorf("failed to create watch: %w", err)
	}
	return nil
}

// FindAllActiveFor returns the caller's active watches, matched by email or user id.
func (s *GormStore) FindAllActiveFor(ctx context.Context, identity model.Identity) ([]model.Watch, error) {
	if identity.IsZero() {
		return nil, nil
	}

	q := s.db.WithContext(ctx).Where("is_active = ?", true)
	switch {
	case identity.Email != "" && identity.UserID != "":
		q = q.Where(s.db.Where("email = ?", identity.Email).Or("user_id = ?", identity.UserID))
	case identity.Email != "":
		q = q.Where("email = ?", identity.Email)
	default:
		q = q.Where("user_id = ?", identity.UserID)
	}

	var watches []model.Watch
	if err := q.Order("created_at").Find(&watches).Error; err != nil {
		return nil, fmt.Errorf("failed to list watches: %w", err)
	}
	return watches, nil
}

// FindAllActive returns every active watch.
func (s *GormStore) FindAllActive(ctx context.Context) ([]model.Watch, error) {
	var watches []model.Watch
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("created_at").Find(&watches).Error; err != nil {
		return nil, fmt.Errorf("failed to list active watches: %w", err)
	}
	return watches, nil
}

// MarkFulfilled deactivates the watch and records when it was fulfilled.
func (s *GormStore) MarkFulfilled(ctx context.Context, id string, at time.Time) error {
	return s.deactivate(ctx, id, map[string]any{
		"is_active":    false,
		"fulfilled_at": at,
		"updated_at":   at,
	})
}

// Cancel deactivates the watch without fulfilling it.
func (s *GormStore) Cancel(ctx context.Context, id string, at time.Time) error {
	return s.deactivate(ctx, id, map[string]any{
		"is_active":    false,
		"cancelled_at": at,
		"updated_at":   at,
	})
}

// deactivate is a conditional update so only one caller can flip a watch.
func (s *GormStore) deactivate(ctx context.Context, id string, updates map[string]any) error {
	res := s.db.WithContext(ctx).
		Model(&model.Watch{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update watch %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("watch %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertPushSubscription creates the subscription or refreshes its keys.
func (s *GormStore) UpsertPushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "p256dh", "auth"}),
	}).Create(sub).Error
}

// GetPushSubscription returns the subscription for an endpoint, or nil.
func (s *GormStore) GetPushSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// PushSubscriptionsFor lists the push endpoints registered for an email.
func (s *GormStore) PushSubscriptionsFor(ctx context.Context, email string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("email = ?", email).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// DeletePushSubscription removes a push endpoint.
func (s *GormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
