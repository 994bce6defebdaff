package services

import (
	"strings"

	"github.com/parkournet/recordsdb/internal/types"
)

// difficultyBand is one row of the tier table. Lower bound inclusive, upper
// bound exclusive; the final band is closed on both ends.
type difficultyBand struct {
	Label string
	Low   float64
	High  float64
}

// difficultyBands is the authoritative tier table. The boundary literals are
// hand-rounded in the production data and must not be re-derived; rounding
// differences would reclassify maps sitting on a boundary.
var difficultyBands = []difficultyBand{
	{"Easy -", 0.00, 1.18},
	{"Easy", 1.18, 1.76},
	{"Easy +", 1.76, 2.35},
	{"Medium -", 2.35, 2.94},
	{"Medium", 2.94, 3.53},
	{"Medium +", 3.53, 4.12},
	{"Hard -", 4.12, 4.71},
	{"Hard", 4.71, 5.29},
	{"Hard +", 5.29, 5.88},
	{"Very Hard -", 5.88, 6.47},
	{"Very Hard", 6.47, 7.06},
	{"Very Hard +", 7.06, 7.65},
	{"Extreme -", 7.65, 8.24},
	{"Extreme", 8.24, 8.82},
	{"Extreme +", 8.82, 9.41},
	{"Hell", 9.41, 10.00},
}

// Classify maps a raw difficulty score in [0.00, 10.00] to its tier label.
func Classify(raw float64) (string, error) {
	if raw < 0.00 || raw > 10.00 {
		return "", &types.OutOfRangeError{Value: raw}
	}
	for _, band := range difficultyBands {
		if raw >= band.Low && raw < band.High {
			return band.Label, nil
		}
	}
	// Only 10.00 falls through; the final band is closed.
	return difficultyBands[len(difficultyBands)-1].Label, nil
}

// ClassifyNullable derives the tier for an optional raw score. A nil score
// has no tier.
func ClassifyNullable(raw *float64) (string, error) {
	if raw == nil {
		return "", nil
	}
	return Classify(*raw)
}

// Midpoint returns the center of a tier's band, used to seed a playtest's
// initial difficulty from a creator-chosen label.
func Midpoint(label string) (float64, bool) {
	for _, band := range difficultyBands {
		if band.Label == label {
			return (band.Low + band.High) / 2, true
		}
	}
	return 0, false
}

// TopTier collapses a sub-tier label ("Hard +") to its base band ("Hard")
// for coarse filtering.
func TopTier(label string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(label, "+"), "-"))
}

// TierRank returns the ordinal position of a tier label, for monotonicity
// checks and sorting. Unknown labels rank below everything.
func TierRank(label string) int {
	for i, band := range difficultyBands {
		if band.Label == label {
			return i
		}
	}
	return -1
}
