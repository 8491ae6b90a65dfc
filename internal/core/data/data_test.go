package data

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setUpDatabase opens a fresh SQLite database in the test's temp dir.
func setUpDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "epchat.db")), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("error initializing test database: %s", err)
	}
	if err := db.AutoMigrate(&Account{}); err != nil {
		t.Fatalf("error auto migrating db: %s", err)
	}
	t.Cleanup(func() { _ = Shutdown(db) })
	return db
}
