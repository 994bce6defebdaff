package models

import "time"

// Playtest is the metadata row for a map's playtest thread.
type Playtest struct {
	ID                uint64 `gorm:"primaryKey;autoIncrement"`
	ThreadID          uint64 `gorm:"uniqueIndex;not null"`
	MapID             uint64 `gorm:"not null;index"`
	InitialDifficulty float64
	Completed         bool `gorm:"not null;default:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PlaytestVote is a difficulty opinion cast during a playtest by a user who
// holds a verified, non-legacy completion of the map.
type PlaytestVote struct {
	ID               uint64  `gorm:"primaryKey;autoIncrement"`
	UserID           uint64  `gorm:"not null;index:idx_playtest_vote,unique"`
	MapID            uint64  `gorm:"not null;index:idx_playtest_vote,unique"`
	PlaytestThreadID uint64  `gorm:"not null;index:idx_playtest_vote,unique"`
	Difficulty       float64 `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Playtest) TableName() string     { return "playtests" }
func (PlaytestVote) TableName() string { return "playtest_votes" }
