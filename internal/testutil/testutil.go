package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/db"
	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

// SetupTestDB creates a file-backed SQLite DB with schema in a per-test
// temporary directory. It is closed when the test ends.
func SetupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// MockMailSender captures emails for testing
type MockMailSender struct {
	mu         sync.Mutex
	SentEmails []SentEmail
}

type SentEmail struct {
	To       string
	Subject  string
	TextBody string
	HtmlBody string
}

func (m *MockMailSender) Send(to string, subject string, textBody string, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, SentEmail{to, subject, textBody, htmlBody})
	return nil
}

func (m *MockMailSender) Last() (SentEmail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentEmails) == 0 {
		return SentEmail{}, false
	}
	return m.SentEmails[len(m.SentEmails)-1], true
}

// SeedUser inserts a confirmed account and its profile.
func SeedUser(t *testing.T, database *db.DB, email, name, passwordHash string, admin bool) int64 {
	t.Helper()
	ctx := context.Background()
	var id int64
	confirmed := int64(1)
	err := database.WithTx(ctx, func(tx *db.Tx) error {
		var err error
		id, err = tx.InsertUser(ctx, email, passwordHash, nil, &confirmed)
		if err != nil {
			return err
		}
		return tx.InsertProfile(ctx, id, name, email)
	})
	if err != nil {
		t.Fatalf("Failed to seed user %s: %v", email, err)
	}
	if admin {
		yes := true
		if err := database.UpdateUserFlags(ctx, id, model.UserUpdate{IsAdmin: &yes}); err != nil {
			t.Fatalf("Failed to promote user %s: %v", email, err)
		}
	}
	return id
}

// SeedCategory inserts a category and returns its id.
func SeedCategory(t *testing.T, database *db.DB, name string) int64 {
	t.Helper()
	id, err := database.InsertCategory(context.Background(), name)
	if err != nil {
		t.Fatalf("Failed to seed category %s: %v", name, err)
	}
	return id
}

// SeedContent inserts a content row (with categories and seasons) directly.
func SeedContent(t *testing.T, database *db.DB, in model.ContentInput) int64 {
	t.Helper()
	ctx := context.Background()
	in.Normalize()
	var id int64
	err := database.WithTx(ctx, func(tx *db.Tx) error {
		var err error
		if id, err = tx.InsertContent(ctx, &in, nil); err != nil {
			return err
		}
		if err := tx.ReplaceContentCategories(ctx, id, in.CategoryIDs); err != nil {
			return err
		}
		return tx.ReplaceSeasons(ctx, id, in.Seasons)
	})
	if err != nil {
		t.Fatalf("Failed to seed content %s: %v", in.Title, err)
	}
	return id
}
