package repository

import (
	"context"
	"testing"
	"time"

	"minisocial/internal/database"
	"minisocial/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLiteDB returns a fresh, migrated in-memory database.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db
}

func createUsers(t *testing.T, db *gorm.DB, names ...string) []models.User {
	t.Helper()
	users := make([]models.User, 0, len(names))
	for _, name := range names {
		u := models.User{Username: name, Password: "hash"}
		require.NoError(t, db.Create(&u).Error)
		users = append(users, u)
	}
	return users
}

func createPostAt(t *testing.T, db *gorm.DB, userID uint, text string, at time.Time) models.Post {
	t.Helper()
	p := models.Post{UserID: userID, ContentText: text, CreatedAt: at}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func ctxBG() context.Context { return context.Background() }
