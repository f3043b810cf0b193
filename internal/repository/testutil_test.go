package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odinbook/chat-server/internal/database"
	"github.com/odinbook/chat-server/internal/model"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(url)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func createTestUser(t *testing.T, db *database.DB, firstName string) string {
	t.Helper()
	var id string
	err := db.GetContext(context.Background(), &id, `
		INSERT INTO users (first_name, last_name) VALUES ($1, 'Test') RETURNING id
	`, firstName)
	require.NoError(t, err)
	return id
}

func createTestPair(t *testing.T, db *database.DB) model.Pair {
	t.Helper()
	a := createTestUser(t, db, "alice")
	b := createTestUser(t, db, "bob")
	if b < a {
		a, b = b, a
	}
	return model.Pair{A: a, B: b}
}
