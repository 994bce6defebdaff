package services

import (
	"testing"

	"github.com/parkournet/recordsdb/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	// Every pooled connection to :memory: would get its own database, so
	// pin the pool to a single connection.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Map{},
		&models.Completion{},
		&models.MapRating{},
		&models.Playtest{},
		&models.PlaytestVote{},
		&models.MapClick{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// seedUser inserts a user row
func seedUser(t *testing.T, db *gorm.DB, id uint64, name string) {
	t.Helper()
	if err := db.Create(&models.User{ID: id, Name: name}).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
}

// seedMap inserts an official approved map with the given code
func seedMap(t *testing.T, db *gorm.DB, code string, raw float64) *models.Map {
	t.Helper()
	tier, err := Classify(raw)
	if err != nil {
		t.Fatalf("Bad raw difficulty %v: %v", raw, err)
	}
	m := models.Map{
		Code:          code,
		MapName:       "Test " + code,
		Category:      "Classic",
		Checkpoints:   5,
		Official:      true,
		Playtesting:   models.PlaytestingApproved,
		RawDifficulty: &raw,
		Difficulty:    tier,
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("Failed to seed map: %v", err)
	}
	return &m
}

func strPtr(s string) *string    { return &s }
func f64Ptr(f float64) *float64  { return &f }
func boolPtr(b bool) *bool       { return &b }
