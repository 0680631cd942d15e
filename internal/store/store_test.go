package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"seatwatch-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

func TestGormStore_FindActiveDuplicate(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT * FROM "watches" WHERE email = $1 AND crn = $2 AND term = $3 AND is_active = $4 ORDER BY "watches"."id" LIMIT $5`)

	t.Run("returns the active watch", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		s := NewGormStore(gormDB)

		mock.ExpectQuery(query).
			WithArgs("ada@example.edu", 12345, 202510, true, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "term", "crn", "title", "is_active"}).
				AddRow("w-1", "ada@example.edu", 202510, 12345, "Intro - Lecture - CS1 - 001", true))

		w, err := s.FindActiveDuplicate(context.Background(), "ada@example.edu", 12345, 202510)
		require.NoError(t, err)
		require.NotNil(t, w)
		assert.Equal(t, "w-1", w.ID)
		assert.True(t, w.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil when there is none", func(t *testing.T) {
		gormDB, mock := newTestDB(t)
		s := NewGormStore(gormDB)

		mock.ExpectQuery(query).
			WithArgs("ada@example.edu", 12345, 202510, true, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		w, err := s.FindActiveDuplicate(context.Background(), "ada@example.edu", 12345, 202510)
		assert.NoError(t, err)
		assert.Nil(t, w)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStore_CreateConflict(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "watches"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"idx_active_watch\""})
	mock.ExpectRollback()

	err := s.Create(context.Background(), &model.Watch{Email: "ada@example.edu", Term: 202510, CRN: 12345, IsActive: true})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_MarkFulfilled(t *testing.T) {
	update := regexp.QuoteMeta(`UPDATE "watches" SET`)
	now := time.Now().UTC()

	testCases := []struct {
		name         string
		rowsAffected int64
		expectedErr  error
	}{
		{name: "Active watch is deactivated", rowsAffected: 1},
		{name: "Already inactive watch is not found", rowsAffected: 0, expectedErr: ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			s := NewGormStore(gormDB)

			mock.ExpectBegin()
			mock.ExpectExec(update).
				WithArgs(Any{}, false, Any{}, "w-1", true).
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))
			mock.ExpectCommit()

			err := s.MarkFulfilled(context.Background(), "w-1", now)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
