package models

import "time"

// Playtest status values for a map.
const (
	PlaytestingInProgress = "In Progress"
	PlaytestingApproved   = "Approved"
	PlaytestingRejected   = "Rejected"
)

// Map represents a player-made course identified by its share code.
// Difficulty is derived from RawDifficulty and is never written directly.
type Map struct {
	ID            uint64  `gorm:"primaryKey;autoIncrement"`
	Code          string  `gorm:"type:char(6);uniqueIndex;not null"`
	MapName       string  `gorm:"size:255;not null"`
	Category      string  `gorm:"size:64;not null"`
	Checkpoints   int     `gorm:"not null;default:0"`
	Official      bool    `gorm:"not null;default:false"`
	Playtesting   string  `gorm:"size:16;not null;default:'In Progress'"`
	Hidden        bool    `gorm:"not null;default:false"`
	Archived      bool    `gorm:"not null;default:false"`
	RawDifficulty *float64
	Difficulty    string  `gorm:"size:16"`
	LinkedCode    *string `gorm:"type:char(6);index"`
	Description   string  `gorm:"type:text"`

	// Medal time thresholds in seconds. A run at or under the threshold
	// earns the medal.
	Gold   *float64
	Silver *float64
	Bronze *float64

	Mechanics    JSON `gorm:"type:json"`
	Restrictions JSON `gorm:"type:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MapRating is a per-user quality vote on a map. It becomes verified when
// the voter's completion of the same map is verified.
type MapRating struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	MapID     uint64 `gorm:"not null;index:idx_map_rating,unique"`
	UserID    uint64 `gorm:"not null;index:idx_map_rating,unique"`
	Quality   int    `gorm:"not null"`
	Verified  bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MapClick is an append-only telemetry row. The unique day-bucket index
// collapses repeat clicks from the same source within a UTC day.
type MapClick struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	MapID      uint64 `gorm:"not null;index:idx_click_day,unique"`
	SourceHash string `gorm:"size:64;not null;index:idx_click_day,unique"`
	DayBucket  int64  `gorm:"not null;index:idx_click_day,unique"`
	InsertedAt time.Time `gorm:"autoCreateTime"`
}

func (Map) TableName() string       { return "maps" }
func (MapRating) TableName() string { return "map_ratings" }
func (MapClick) TableName() string  { return "map_clicks" }
