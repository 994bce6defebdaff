package helpers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/parkournet/recordsdb/internal/models"
	"gorm.io/gorm"
)

// CreateTestUser creates a user with a fake name
func CreateTestUser(t *testing.T, db *gorm.DB, id uint64) *models.User {
	u := models.User{
		ID:   id,
		Name: gofakeit.Username(),
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return &u
}

// CreateTestMap creates a map with the given code and difficulty
func CreateTestMap(t *testing.T, db *gorm.DB, code string, raw float64, difficulty string) *models.Map {
	m := models.Map{
		Code:          code,
		MapName:       gofakeit.City(),
		Category:      "Classic",
		Checkpoints:   gofakeit.Number(1, 20),
		Official:      true,
		Playtesting:   models.PlaytestingApproved,
		RawDifficulty: &raw,
		Difficulty:    difficulty,
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("Failed to create map: %v", err)
	}
	return &m
}

// CreateTestCompletion creates a completion row directly
func CreateTestCompletion(t *testing.T, db *gorm.DB, mapID, userID uint64, time float64, verified bool) *models.Completion {
	c := models.Completion{
		MapID:          mapID,
		UserID:         userID,
		Time:           time,
		Screenshot:     FakeScreenshotURL(),
		Verified:       verified,
		CompletionFlag: true,
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("Failed to create completion: %v", err)
	}
	return &c
}

// FakeScreenshotURL returns a unique screenshot URL
func FakeScreenshotURL() string {
	return fmt.Sprintf("https://cdn.example.com/screenshots/%s.png", uuid.New().String())
}

// FakeVideoURL returns a unique video URL
func FakeVideoURL() string {
	return fmt.Sprintf("https://video.example.com/watch/%s", uuid.New().String())
}

// FakeSourceHash returns a click source identifier
func FakeSourceHash() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
