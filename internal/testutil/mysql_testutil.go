package testutil

import (
	"os"
	"testing"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/db"
)

// SetupMySQLTestDB initializes a MySQL-backed DB for integration tests.
// It skips tests when MYSQL_TEST_DSN is not set.
func SetupMySQLTestDB(t *testing.T) *db.DB {
	t.Helper()

	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set; skipping MySQL integration tests")
	}

	database, err := db.New(dsn)
	if err != nil {
		t.Fatalf("failed to init mysql test db: %v", err)
	}

	t.Cleanup(func() {
		_ = database.Close()
	})

	resetMySQLTables(t, database)
	return database
}

func resetMySQLTables(t *testing.T, database *db.DB) {
	t.Helper()

	stmts := []string{
		"SET FOREIGN_KEY_CHECKS=0",
		"TRUNCATE TABLE comment_votes",
		"TRUNCATE TABLE comments",
		"TRUNCATE TABLE profile_lists",
		"TRUNCATE TABLE episodes",
		"TRUNCATE TABLE seasons",
		"TRUNCATE TABLE content_categories",
		"TRUNCATE TABLE content",
		"TRUNCATE TABLE categories",
		"TRUNCATE TABLE sessions",
		"TRUNCATE TABLE profiles",
		"TRUNCATE TABLE users",
		"SET FOREIGN_KEY_CHECKS=1",
	}

	for _, stmt := range stmts {
		if _, err := database.Exec(stmt); err != nil {
			t.Fatalf("mysql reset failed on %q: %v", stmt, err)
		}
	}
}
