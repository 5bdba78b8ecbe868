package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return &DB{DB: sqlDB, logger: zap.NewNop()}, mock
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	user := models.NewUser("staff@example.com", "$2a$10$hash", uuid.New(), authz.RoleStaff)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(user.ID, user.Email, user.PasswordHash, user.StoreID, user.Role, user.CreatedAt, user.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	t.Run("found", func(t *testing.T) {
		id := uuid.New()
		storeID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "store_id", "role", "created_at", "updated_at"}).
			AddRow(id, "admin@example.com", "$2a$10$hash", storeID, "ADMIN", now, now)

		mock.ExpectQuery("SELECT (.+) FROM users").
			WithArgs("admin@example.com").
			WillReturnRows(rows)

		user, err := repo.GetByEmail(context.Background(), "admin@example.com")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, authz.RoleAdmin, user.Role)
		assert.Equal(t, storeID, user.StoreID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users").
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "store_id", "role", "created_at", "updated_at"}))

		user, err := repo.GetByEmail(context.Background(), "nobody@example.com")
		assert.Error(t, err)
		assert.Nil(t, user)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByStoreID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	storeID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "store_id", "role", "created_at", "updated_at"}).
		AddRow(uuid.New(), "a@example.com", "h1", storeID, "ADMIN", now, now).
		AddRow(uuid.New(), "b@example.com", "h2", storeID, "STAFF", now, now)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs(storeID).
		WillReturnRows(rows)

	users, err := repo.GetByStoreID(context.Background(), storeID)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, authz.RoleAdmin, users[0].Role)
	assert.Equal(t, authz.RoleStaff, users[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	user := models.NewUser("gone@example.com", "h", uuid.New(), authz.RoleCustomer)

	mock.ExpectExec("UPDATE users").
		WithArgs(user.ID, user.Email, user.PasswordHash, user.Role, user.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), user)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, zap.NewNop())

	id := uuid.New()

	mock.ExpectExec("DELETE FROM users").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
