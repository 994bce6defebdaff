package services

import (
	"errors"
	"strconv"

	"github.com/parkournet/recordsdb/internal/models"
	"github.com/parkournet/recordsdb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

// completionLocks serializes concurrent submissions per (user, map) pair for
// the duration of the read-best + insert sequence.
var completionLocks = newPairLock()

// CompletionInput is the payload for a run submission.
type CompletionInput struct {
	Code       string            `json:"code"`
	UserID     types.FlexUint64  `json:"user_id"`
	Time       float64           `json:"time"`
	Screenshot string            `json:"screenshot"`
	Video      *string           `json:"video,omitempty"`
	Legacy     bool              `json:"legacy"`
	MessageID  *types.FlexUint64 `json:"message_id,omitempty"`
}

// RecordCompletion stores a run submission, enforcing the monotonic
// best-time rule for non-legacy rows. The check and the insert run under a
// per-(user, map) lock plus a row lock on the current best, so racing
// submissions for the same pair are linearized.
func RecordCompletion(db *gorm.DB, input CompletionInput) (*models.Completion, error) {
	if input.Time <= 0 {
		return nil, &types.ValidationError{Message: "time must be positive"}
	}
	if input.Screenshot == "" {
		return nil, &types.ValidationError{Message: "screenshot proof is required"}
	}

	m, err := GetMap(db, input.Code)
	if err != nil {
		return nil, err
	}

	// A full completion is a video-backed run on an official map that is
	// done playtesting; anything else is a lesser submission.
	inPlaytest := m.Playtesting == models.PlaytestingInProgress
	completionFlag := !inPlaytest && input.Video != nil && m.Official

	row := models.Completion{
		MapID:          m.ID,
		UserID:         input.UserID.Uint64(),
		Time:           input.Time,
		Screenshot:     input.Screenshot,
		Video:          input.Video,
		CompletionFlag: completionFlag,
		Legacy:         input.Legacy,
	}
	if input.MessageID != nil {
		v := input.MessageID.Uint64()
		row.MessageID = &v
	}

	// Legacy history is exempt from the best-time rule.
	if row.Legacy {
		if err := db.Create(&row).Error; err != nil {
			return nil, err
		}
		return &row, nil
	}

	unlock := completionLocks.Lock(pairKey(row.UserID, row.MapID))
	defer unlock()

	err = db.Transaction(func(tx *gorm.DB) error {
		var best models.Completion
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("map_id = ? AND user_id = ? AND legacy = ?", row.MapID, row.UserID, false).
			Order("time ASC").
			First(&best).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// No prior record for this pair; always allowed.
		case err != nil:
			return err
		default:
			if reject := bestTimeRule(&row, &best); reject != nil {
				return reject
			}
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// bestTimeRule applies the monotonic best-time decision table against the
// fastest existing non-legacy row for the pair.
func bestTimeRule(incoming, best *models.Completion) error {
	if incoming.CompletionFlag {
		// A full run must strictly beat the current best.
		if incoming.Time >= best.Time {
			return &types.ConstraintViolation{BestTime: best.Time}
		}
		return nil
	}
	if best.CompletionFlag {
		// A full run always dominates a lesser submission, regardless of time.
		return nil
	}
	if incoming.Time >= best.Time {
		return &types.ConstraintViolation{BestTime: best.Time}
	}
	return nil
}

// VerificationInput carries a reviewer's verification decision.
type VerificationInput struct {
	VerifiedBy types.FlexUint64 `json:"verified_by"`
	Reason     *string          `json:"reason,omitempty"`
}

// VerifyCompletion marks a completion verified and, in the same transaction,
// flips the submitter's pending quality rating of the map to verified.
// Verification is one-way and idempotent: a second call is a no-op and a
// verified row never regresses.
func VerifyCompletion(db *gorm.DB, completionID uint64, input VerificationInput) (*models.Completion, error) {
	var c models.Completion

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", completionID).
			First(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &types.NotFoundError{Resource: "completion", Key: strconv.FormatUint(completionID, 10)}
			}
			return err
		}

		if c.Verified {
			return nil
		}

		verifiedBy := input.VerifiedBy.Uint64()
		c.Verified = true
		c.VerifiedBy = &verifiedBy
		c.Reason = input.Reason
		if err := tx.Model(&c).
			Updates(map[string]interface{}{
				"verified":    true,
				"verified_by": verifiedBy,
				"reason":      input.Reason,
			}).Error; err != nil {
			return err
		}

		// Verify the author's pending rating of the same map. One-way; never
		// unverifies.
		return tx.Model(&models.MapRating{}).
			Where("map_id = ? AND user_id = ? AND verified = ?", c.MapID, c.UserID, false).
			Update("verified", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RateMap upserts a user's 1-10 quality vote on a map. A fresh rating starts
// unverified; re-rating keeps the verified state.
func RateMap(db *gorm.DB, code string, userID uint64, quality int) error {
	if quality < 1 || quality > 10 {
		return &types.ValidationError{Message: "quality must be between 1 and 10"}
	}
	m, err := GetMap(db, code)
	if err != nil {
		return err
	}

	rating := models.MapRating{MapID: m.ID, UserID: userID, Quality: quality}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "map_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quality": quality}),
	}).Create(&rating).Error
}

// LeaderboardEntry is one row of a map's ranked results.
type LeaderboardEntry struct {
	UserID uint64  `json:"user_id"`
	Name   string  `json:"name"`
	Time   float64 `json:"time"`
	Medal  string  `json:"medal,omitempty"`
	Rank   int     `json:"rank"`
}

// Leaderboard returns the verified, non-legacy best run per user for a map,
// fastest first, with medal awards evaluated against the map's thresholds.
func Leaderboard(db *gorm.DB, code string, pageNumber, pageSize int) ([]LeaderboardEntry, error) {
	m, err := GetMap(db, code)
	if err != nil {
		return nil, err
	}
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 25
	}

	var rows []struct {
		UserID         uint64
		Name           string
		Time           float64
		CompletionFlag bool
	}
	query := db.Table("completions").
		Select("completions.user_id, users.name, completions.time, completions.completion AS completion_flag").
		Joins("JOIN users ON users.id = completions.user_id").
		Where("completions.map_id = ? AND completions.verified = ? AND completions.legacy = ?", m.ID, true, false).
		Order("completions.time ASC, completions.inserted_at ASC")
	if db.Dialector.Name() == "mysql" {
		query = query.Clauses(hints.UseIndex("idx_completion_pair"))
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	// Reduce to each user's fastest row, preserving time order.
	seen := make(map[uint64]bool, len(rows))
	ranked := make([]LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		if seen[r.UserID] {
			continue
		}
		seen[r.UserID] = true
		entry := LeaderboardEntry{
			UserID: r.UserID,
			Name:   r.Name,
			Time:   r.Time,
			Rank:   len(ranked) + 1,
		}
		if r.CompletionFlag {
			entry.Medal = medalFor(m, r.Time)
		}
		ranked = append(ranked, entry)
	}

	start := (pageNumber - 1) * pageSize
	if start >= len(ranked) {
		return []LeaderboardEntry{}, nil
	}
	end := start + pageSize
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[start:end], nil
}

// PendingVerification is a completion awaiting reviewer action.
type PendingVerification struct {
	ID         uint64  `json:"id"`
	MapID      uint64  `json:"map_id"`
	UserID     uint64  `json:"user_id"`
	Time       float64 `json:"time"`
	Screenshot string  `json:"screenshot"`
	MessageID  *uint64 `json:"message_id,omitempty"`
}

// PendingVerifications lists unverified completions, newest first.
func PendingVerifications(db *gorm.DB) ([]PendingVerification, error) {
	var pending []PendingVerification
	err := db.Model(&models.Completion{}).
		Where("verified = ? AND verified_by IS NULL", false).
		Order("inserted_at DESC").
		Scan(&pending).Error
	return pending, err
}
