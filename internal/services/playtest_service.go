package services

import (
	"errors"
	"math"
	"strconv"

	"github.com/parkournet/recordsdb/internal/models"
	"github.com/parkournet/recordsdb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlaytestCreateInput associates a playtest thread with a map under test.
type PlaytestCreateInput struct {
	ThreadID   types.FlexUint64 `json:"thread_id"`
	Code       string           `json:"code"`
	Difficulty string           `json:"initial_difficulty"`
}

// CreatePlaytest opens playtest metadata for a map. The initial difficulty
// is the midpoint of the creator-chosen tier.
func CreatePlaytest(db *gorm.DB, input PlaytestCreateInput) (*models.Playtest, error) {
	m, err := GetMap(db, input.Code)
	if err != nil {
		return nil, err
	}
	mid, ok := Midpoint(input.Difficulty)
	if !ok {
		return nil, &types.ValidationError{Message: "unknown difficulty tier: " + input.Difficulty}
	}

	meta := models.Playtest{
		ThreadID:          input.ThreadID.Uint64(),
		MapID:             m.ID,
		InitialDifficulty: mid,
	}
	if err := db.Create(&meta).Error; err != nil {
		return nil, err
	}
	return &meta, nil
}

// CastVote records or updates a difficulty vote for a playtest thread. The
// voter must hold a verified, non-legacy completion of the map under test.
func CastVote(db *gorm.DB, threadID, userID uint64, difficulty float64) error {
	if difficulty < 0.00 || difficulty > 10.00 {
		return &types.OutOfRangeError{Value: difficulty}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		meta, err := getPlaytest(tx, threadID)
		if err != nil {
			return err
		}

		var qualifying int64
		if err := tx.Model(&models.Completion{}).
			Where("map_id = ? AND user_id = ? AND verified = ? AND legacy = ?",
				meta.MapID, userID, true, false).
			Count(&qualifying).Error; err != nil {
			return err
		}
		if qualifying == 0 {
			var m models.Map
			if err := tx.Where("id = ?", meta.MapID).First(&m).Error; err != nil {
				return err
			}
			return &types.IneligibleVoterError{UserID: userID, Code: m.Code}
		}

		vote := models.PlaytestVote{
			UserID:           userID,
			MapID:            meta.MapID,
			PlaytestThreadID: threadID,
			Difficulty:       difficulty,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "map_id"}, {Name: "playtest_thread_id"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{"difficulty": difficulty}),
		}).Create(&vote).Error
	})
}

// RemoveVote deletes a user's vote for a playtest thread.
func RemoveVote(db *gorm.DB, threadID, userID uint64) error {
	return db.Where("playtest_thread_id = ? AND user_id = ?", threadID, userID).
		Delete(&models.PlaytestVote{}).Error
}

// ResetVotes wipes all votes for a playtest thread (moderator action).
func ResetVotes(db *gorm.DB, threadID uint64) error {
	return db.Where("playtest_thread_id = ?", threadID).
		Delete(&models.PlaytestVote{}).Error
}

// VoteSummary aggregates a playtest's votes.
type VoteSummary struct {
	Votes   []VoteEntry `json:"votes"`
	Average float64     `json:"average"`
}

// VoteEntry is one user's difficulty opinion.
type VoteEntry struct {
	UserID     uint64  `json:"user_id"`
	Name       string  `json:"name"`
	Difficulty float64 `json:"difficulty"`
}

// Votes returns all votes for a playtest thread with their average.
func Votes(db *gorm.DB, threadID uint64) (*VoteSummary, error) {
	if _, err := getPlaytest(db, threadID); err != nil {
		return nil, err
	}

	var entries []VoteEntry
	err := db.Table("playtest_votes").
		Select("playtest_votes.user_id, users.name, playtest_votes.difficulty").
		Joins("JOIN users ON users.id = playtest_votes.user_id").
		Where("playtest_votes.playtest_thread_id = ?", threadID).
		Order("playtest_votes.created_at ASC").
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}

	summary := VoteSummary{Votes: entries}
	if len(entries) > 0 {
		var sum float64
		for _, e := range entries {
			sum += e.Difficulty
		}
		summary.Average = math.Round(sum/float64(len(entries))*100) / 100
	}
	return &summary, nil
}

// ApprovePlaytest finalizes a playtest: the vote average becomes the map's
// raw difficulty (classified to its tier), the map leaves playtesting and
// the metadata row is completed. Without votes the initial difficulty holds.
func ApprovePlaytest(db *gorm.DB, threadID uint64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		meta, err := getPlaytest(tx, threadID)
		if err != nil {
			return err
		}

		var m models.Map
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", meta.MapID).
			First(&m).Error; err != nil {
			return err
		}

		raw := meta.InitialDifficulty
		var votes []models.PlaytestVote
		if err := tx.Where("playtest_thread_id = ?", threadID).Find(&votes).Error; err != nil {
			return err
		}
		if len(votes) > 0 {
			var sum float64
			for _, v := range votes {
				sum += v.Difficulty
			}
			raw = math.Round(sum/float64(len(votes))*100) / 100
		}

		tier, err := Classify(raw)
		if err != nil {
			return err
		}

		if err := tx.Model(&m).Updates(map[string]interface{}{
			"playtesting":    models.PlaytestingApproved,
			"raw_difficulty": raw,
			"difficulty":     tier,
		}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Playtest{}).
			Where("thread_id = ?", threadID).
			Update("completed", true).Error
	})
}

// RejectPlaytest marks the map rejected and completes the metadata row.
func RejectPlaytest(db *gorm.DB, threadID uint64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		meta, err := getPlaytest(tx, threadID)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Map{}).
			Where("id = ?", meta.MapID).
			Update("playtesting", models.PlaytestingRejected).Error; err != nil {
			return err
		}

		return tx.Model(&models.Playtest{}).
			Where("thread_id = ?", threadID).
			Update("completed", true).Error
	})
}

func getPlaytest(db *gorm.DB, threadID uint64) (*models.Playtest, error) {
	var meta models.Playtest
	if err := db.Where("thread_id = ?", threadID).First(&meta).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &types.NotFoundError{Resource: "playtest", Key: strconv.FormatUint(threadID, 10)}
		}
		return nil, err
	}
	return &meta, nil
}
