package repository

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// SQL-level expectations against the postgres dialect, complementing the
// behavioral sqlite tests above.

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestUpdateProfile_SQLOnlyTouchesSuppliedColumns(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "profiles" SET "nickname"=$1,"updated_at"=$2 WHERE id = $3`)).
		WithArgs("Bob", sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateProfile(context.Background(), 7, ProfilePatch{Nickname: ptr("Bob")})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmail_SQLNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2`)).
		WithArgs("ghost@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	user, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}
