package services

import (
	"time"

	"github.com/parkournet/recordsdb/internal/models"
	"github.com/parkournet/recordsdb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const secondsPerDay = 86400

// DayBucket collapses a timestamp to its UTC day number since the epoch.
// Two clicks from the same source on the same UTC day share a bucket even
// when the source's local date differs.
func DayBucket(ts time.Time) int64 {
	return ts.UTC().Unix() / secondsPerDay
}

// RecordClick counts one map view per source per UTC day. A repeat within
// the same bucket is reported as a *types.DuplicateEventError and leaves
// the stored count untouched.
func RecordClick(db *gorm.DB, code string, sourceHash string, ts time.Time) error {
	if sourceHash == "" {
		return &types.ValidationError{Message: "source hash must not be empty"}
	}

	m, err := GetMap(db, code)
	if err != nil {
		return err
	}
	bucket := DayBucket(ts)

	click := models.MapClick{
		MapID:      m.ID,
		SourceHash: sourceHash,
		DayBucket:  bucket,
	}
	res := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "map_id"}, {Name: "source_hash"}, {Name: "day_bucket"},
		},
		DoNothing: true,
	}).Create(&click)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &types.DuplicateEventError{Code: code, DayBucket: bucket}
	}
	return nil
}

// ClickCount returns the number of distinct (source, day) views of a map.
func ClickCount(db *gorm.DB, code string) (int64, error) {
	m, err := GetMap(db, code)
	if err != nil {
		return 0, err
	}

	var count int64
	err = db.Model(&models.MapClick{}).Where("map_id = ?", m.ID).Count(&count).Error
	return count, err
}
