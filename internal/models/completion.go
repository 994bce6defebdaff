package models

import "time"

// Legacy medal tiers assigned when a map is converted to legacy.
const (
	MedalGold   = "Gold"
	MedalSilver = "Silver"
	MedalBronze = "Bronze"
)

// Completion is a timed run submission. CompletionFlag marks a full,
// video-backed run on an official approved map; rows without it are lesser
// submissions that a full run always dominates on the leaderboard.
//
// Non-legacy rows for a (user, map) pair are subject to the monotonic
// best-time invariant enforced by the completion service.
type Completion struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	MapID  uint64 `gorm:"not null;index:idx_completion_pair"`
	UserID uint64 `gorm:"not null;index:idx_completion_pair"`

	Time       float64 `gorm:"not null"`
	Screenshot string  `gorm:"size:512;not null"`
	Video      *string `gorm:"size:512"`

	Verified   bool    `gorm:"not null;default:false"`
	VerifiedBy *uint64
	Reason     *string `gorm:"size:512"`

	CompletionFlag bool    `gorm:"column:completion;not null;default:false"`
	Legacy         bool    `gorm:"not null;default:false"`
	LegacyMedal    *string `gorm:"size:8"`

	// External message reference (review queue post). Unique when present.
	MessageID *uint64 `gorm:"uniqueIndex"`

	InsertedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time
}

// User is the minimal identity row referenced by completions, ratings and
// votes. Profile data lives outside this service.
type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"size:128;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Completion) TableName() string { return "completions" }
func (User) TableName() string       { return "users" }
