package services

import (
	"encoding/json"
	"errors"
	"regexp"

	"github.com/parkournet/recordsdb/internal/models"
	"github.com/parkournet/recordsdb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// codePattern is the share code format: 4-6 uppercase alphanumerics.
var codePattern = regexp.MustCompile(`^[A-Z0-9]{4,6}$`)

// MapCreateInput is the payload for map submission.
type MapCreateInput struct {
	Code         string      `json:"code"`
	MapName      string      `json:"map_name"`
	Category     string      `json:"category"`
	Checkpoints  int         `json:"checkpoints"`
	Official     bool        `json:"official"`
	Playtesting  string      `json:"playtesting,omitempty"`
	Hidden       bool        `json:"hidden"`
	Archived     bool        `json:"archived"`
	Description  string      `json:"description,omitempty"`
	Difficulty   string      `json:"difficulty"`
	Gold         *float64               `json:"gold,omitempty"`
	Silver       *float64               `json:"silver,omitempty"`
	Bronze       *float64               `json:"bronze,omitempty"`
	Mechanics    types.FlexList[string] `json:"mechanics,omitempty"`
	Restrictions types.FlexList[string] `json:"restrictions,omitempty"`
}

// jsonList stores a string list as the JSON column type. Nil lists stay NULL.
func jsonList(items types.FlexList[string]) models.JSON {
	if items == nil {
		return models.JSON{}
	}
	raw, _ := json.Marshal(items.Slice())
	return models.JSON{JSON: raw}
}

// CreateMap validates and stores a new map submission. The raw difficulty is
// seeded from the midpoint of the creator-chosen tier and the stored tier is
// derived back from it, so the tier column never holds a hand-written value.
func CreateMap(db *gorm.DB, input MapCreateInput) (*models.Map, error) {
	if !codePattern.MatchString(input.Code) {
		return nil, &types.ValidationError{Message: "map code must be 4-6 uppercase alphanumeric characters"}
	}
	raw, ok := Midpoint(input.Difficulty)
	if !ok {
		return nil, &types.ValidationError{Message: "unknown difficulty tier: " + input.Difficulty}
	}
	tier, err := Classify(raw)
	if err != nil {
		return nil, err
	}

	playtesting := input.Playtesting
	if playtesting == "" {
		playtesting = models.PlaytestingInProgress
	}
	switch playtesting {
	case models.PlaytestingInProgress, models.PlaytestingApproved, models.PlaytestingRejected:
	default:
		return nil, &types.ValidationError{Message: "unknown playtest status: " + playtesting}
	}

	m := models.Map{
		Code:          input.Code,
		MapName:       input.MapName,
		Category:      input.Category,
		Checkpoints:   input.Checkpoints,
		Official:      input.Official,
		Playtesting:   playtesting,
		Hidden:        input.Hidden,
		Archived:      input.Archived,
		RawDifficulty: &raw,
		Difficulty:    tier,
		Description:   input.Description,
		Gold:          input.Gold,
		Silver:        input.Silver,
		Bronze:        input.Bronze,
		Mechanics:     jsonList(input.Mechanics),
		Restrictions:  jsonList(input.Restrictions),
	}
	if err := db.Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMap fetches a map by share code.
func GetMap(db *gorm.DB, code string) (*models.Map, error) {
	var m models.Map
	if err := db.Where("code = ?", code).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &types.NotFoundError{Resource: "map", Key: code}
		}
		return nil, err
	}
	return &m, nil
}

// SetRawDifficulty updates a map's raw score and recomputes the derived tier
// in the same transaction. A nil raw clears both.
func SetRawDifficulty(db *gorm.DB, code string, raw *float64) (*models.Map, error) {
	tier, err := ClassifyNullable(raw)
	if err != nil {
		return nil, err
	}

	var m models.Map
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &types.NotFoundError{Resource: "map", Key: code}
			}
			return err
		}

		m.RawDifficulty = raw
		m.Difficulty = tier
		return tx.Model(&m).
			Select("raw_difficulty", "difficulty").
			Updates(map[string]interface{}{"raw_difficulty": raw, "difficulty": tier}).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetLinkedCode establishes or clears the symmetric pairing between two map
// codes. Both edges are written inside one transaction; the counterpart
// write updates the column directly and never re-enters this function, which
// is the re-entrancy guard. Passing a nil target clears the pairing.
func SetLinkedCode(db *gorm.DB, code string, target *string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var m models.Map
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &types.NotFoundError{Resource: "map", Key: code}
			}
			return err
		}

		if target == nil {
			if m.LinkedCode == nil {
				return nil
			}
			old := *m.LinkedCode
			if err := tx.Model(&models.Map{}).
				Where("code = ?", code).
				Update("linked_code", nil).Error; err != nil {
				return err
			}
			// One-directional cleanup: drop the back-edge only while it
			// still points here.
			return tx.Model(&models.Map{}).
				Where("code = ? AND linked_code = ?", old, code).
				Update("linked_code", nil).Error
		}

		if *target == m.Code {
			return &types.SelfLinkError{Code: m.Code}
		}
		if m.LinkedCode != nil && *m.LinkedCode != *target {
			return &types.ConflictError{Code: m.Code, LinkedCode: *m.LinkedCode}
		}

		// Lock the target row so two maps cannot claim the same unlinked
		// partner concurrently.
		var tgt models.Map
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", *target).
			First(&tgt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &types.NotFoundError{Resource: "map", Key: *target}
			}
			return err
		}
		if tgt.LinkedCode != nil && *tgt.LinkedCode != m.Code {
			return &types.ConflictError{Code: tgt.Code, LinkedCode: *tgt.LinkedCode}
		}

		if err := tx.Model(&models.Map{}).
			Where("code = ?", m.Code).
			Update("linked_code", tgt.Code).Error; err != nil {
			return err
		}
		return tx.Model(&models.Map{}).
			Where("code = ?", tgt.Code).
			Update("linked_code", m.Code).Error
	})
}

// VisibilityInput carries optional visibility flag updates.
type VisibilityInput struct {
	Hidden   *bool `json:"hidden,omitempty"`
	Archived *bool `json:"archived,omitempty"`
}

// SetVisibility updates the hidden/archived flags of a map.
func SetVisibility(db *gorm.DB, code string, input VisibilityInput) error {
	updates := map[string]interface{}{}
	if input.Hidden != nil {
		updates["hidden"] = *input.Hidden
	}
	if input.Archived != nil {
		updates["archived"] = *input.Archived
	}
	if len(updates) == 0 {
		return &types.ValidationError{Message: "no visibility flags to update"}
	}

	result := db.Model(&models.Map{}).Where("code = ?", code).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &types.NotFoundError{Resource: "map", Key: code}
	}
	return nil
}

// ConvertMapToLegacy marks every non-legacy completion of a map as legacy,
// assigning each full run its medal tier from the map's thresholds. Returns
// the number of converted rows.
func ConvertMapToLegacy(db *gorm.DB, code string) (int64, error) {
	var converted int64

	err := db.Transaction(func(tx *gorm.DB) error {
		var m models.Map
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &types.NotFoundError{Resource: "map", Key: code}
			}
			return err
		}

		var rows []models.Completion
		if err := tx.Where("map_id = ? AND legacy = ?", m.ID, false).
			Find(&rows).Error; err != nil {
			return err
		}

		for i := range rows {
			c := &rows[i]
			updates := map[string]interface{}{"legacy": true}
			if c.CompletionFlag {
				if medal := medalFor(&m, c.Time); medal != "" {
					updates["legacy_medal"] = medal
				}
			}
			if err := tx.Model(c).Updates(updates).Error; err != nil {
				return err
			}
			converted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return converted, nil
}

// medalFor evaluates a run time against a map's medal thresholds.
func medalFor(m *models.Map, t float64) string {
	switch {
	case m.Gold != nil && t <= *m.Gold:
		return models.MedalGold
	case m.Silver != nil && t <= *m.Silver:
		return models.MedalSilver
	case m.Bronze != nil && t <= *m.Bronze:
		return models.MedalBronze
	}
	return ""
}

// DeleteMap removes a map and all dependent rows (completions, ratings,
// playtest metadata, votes, clicks) in one transaction.
func DeleteMap(db *gorm.DB, code string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var m models.Map
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &types.NotFoundError{Resource: "map", Key: code}
			}
			return err
		}

		for _, del := range []error{
			tx.Where("map_id = ?", m.ID).Delete(&models.Completion{}).Error,
			tx.Where("map_id = ?", m.ID).Delete(&models.MapRating{}).Error,
			tx.Where("map_id = ?", m.ID).Delete(&models.PlaytestVote{}).Error,
			tx.Where("map_id = ?", m.ID).Delete(&models.Playtest{}).Error,
			tx.Where("map_id = ?", m.ID).Delete(&models.MapClick{}).Error,
		} {
			if del != nil {
				return del
			}
		}

		// If a partner still points at this map, detach it.
		if err := tx.Model(&models.Map{}).
			Where("linked_code = ?", m.Code).
			Update("linked_code", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&m).Error
	})
}
