package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/parkournet/recordsdb/internal/models"
	"github.com/parkournet/recordsdb/internal/types"
)

func submit(t *testing.T, code string, userID uint64, time float64, video bool) CompletionInput {
	t.Helper()
	input := CompletionInput{
		Code:       code,
		UserID:     types.FlexUint64(userID),
		Time:       time,
		Screenshot: "https://cdn.example.com/proof.png",
	}
	if video {
		input.Video = strPtr("https://video.example.com/run")
	}
	return input
}

func TestRecordCompletionValidation(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, 1, "runner")
	seedMap(t, db, "AAAA01", 3.0)

	var validation *types.ValidationError

	_, err := RecordCompletion(db, submit(t, "AAAA01", 1, 0, true))
	if !errors.As(err, &validation) {
		t.Errorf("zero time: got %v, want ValidationError", err)
	}

	input := submit(t, "AAAA01", 1, 10, true)
	input.Screenshot = ""
	_, err = RecordCompletion(db, input)
	if !errors.As(err, &validation) {
		t.Errorf("missing screenshot: got %v, want ValidationError", err)
	}

	var notFound *types.NotFoundError
	_, err = RecordCompletion(db, submit(t, "ZZZZ99", 1, 10, true))
	if !errors.As(err, &notFound) {
		t.Errorf("unknown map: got %v, want NotFoundError", err)
	}
}

func TestRecordCompletionFlagDerivation(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, 1, "runner")
	seedMap(t, db, "AAAA01", 3.0)

	// Video-backed run on an official, approved map is a full completion.
	c, err := RecordCompletion(db, submit(t, "AAAA01", 1, 30, true))
	if err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	if !c.CompletionFlag {
		t.Error("expected completion flag on video-backed official run")
	}

	// No video: lesser submission.
	c, err = RecordCompletion(db, submit(t, "AAAA01", 1, 25, false))
	if err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	if c.CompletionFlag {
		t.Error("expected no completion flag without video")
	}

	// Unofficial map: lesser submission even with video.
	unofficial := seedMap(t, db, "BBBB02", 3.0)
	db.Model(unofficial).Update("official", false)
	c, err = RecordCompletion(db, submit(t, "BBBB02", 1, 30, true))
	if err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	if c.CompletionFlag {
		t.Error("expected no completion flag on unofficial map")
	}

	// Map still in playtesting: lesser submission.
	testing_ := seedMap(t, db, "CCCC03", 3.0)
	db.Model(testing_).Update("playtesting", models.PlaytestingInProgress)
	c, err = RecordCompletion(db, submit(t, "CCCC03", 1, 30, true))
	if err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	if c.CompletionFlag {
		t.Error("expected no completion flag during playtesting")
	}
}

func TestBestTimeRuleDecisionTable(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, 1, "runner")
	seedMap(t, db, "AAAA01", 3.0)

	var constraint *types.ConstraintViolation

	// Seed a full run at 30s.
	if _, err := RecordCompletion(db, submit(t, "AAAA01", 1, 30, true)); err != nil {
		t.Fatalf("seed submission failed: %v", err)
	}

	// Full run, slower: rejected.
	_, err := RecordCompletion(db, submit(t, "AAAA01", 1, 35, true))
	if !errors.As(err, &constraint) {
		t.Errorf("slower full run: got %v, want ConstraintViolation", err)
	}

	// Full run, equal: rejected (strictly faster required).
	_, err = RecordCompletion(db, submit(t, "AAAA01", 1, 30, true))
	if !errors.As(err, &constraint) {
		t.Errorf("equal full run: got %v, want ConstraintViolation", err)
	}

	// Lesser submission against a full-run best: allowed regardless of time.
	if _, err := RecordCompletion(db, submit(t, "AAAA01", 1, 50, false)); err != nil {
		t.Errorf("lesser submission vs full best: got %v, want nil", err)
	}

	// Full run, faster: allowed.
	if _, err := RecordCompletion(db, submit(t, "AAAA01", 1, 25, true)); err != nil {
		t.Errorf("faster full run: got %v, want nil", err)
	}
}

func TestBestTimeRuleLesserOnly(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, 1, "runner")
	seedMap(t, db, "AAAA01", 3.0)

	// Lesser submission at 40s.
	if _, err := RecordCompletion(db, submit(t, "AAAA01", 1, 40, false)); err != nil {
		t.Fatalf("seed submission failed: %v", err)
	}

	// Slower lesser submission: rejected against lesser best.
	var constraint *types.ConstraintViolation
	_, err := RecordCompletion(db, submit(t, "AAAA01", 1, 45, false))
	if !errors.As(err, &constraint) {
		t.Errorf("slower lesser submission: got %v, want ConstraintViolation", err)
	}

	// Faster lesser submission: allowed.
	if _, err := RecordCompletion(db, submit(t, "AAAA01", 1, 35, false)); err != nil {
		t.Errorf("faster lesser submission: got %v, want nil", err)
	}
}

func TestLegacyBypassesBestTimeRule(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, 1, "runner")
	seedMap(t, db, "AAAA01", 3.0)

	if _, err := RecordCompletion(db, submit(t, "AAAA01", 1, 30, true)); err != nil {
		t.Fatalf("seed submission failed: %v", err)
	}

	// A legacy import slower than the best is accepted.
	legacy := submit(t, "AAAA01", 1, 90, true)
	legacy.Legacy = true
	if _, err := RecordCompletion(db, legacy); err != nil {
		t.Errorf("legacy import: got %v, want nil", err)
	}

	// And it does not become the best for the rule: a 40s full run must
	// still beat the 30s non-legacy best.
	var constraint *types.ConstraintViolation
	_, err := RecordCompletion(db, submit(t, "AAAA01", 1, 40, true))
	if !errors.As(err, &constraint) {
		t.Errorf("full run vs non-legacy best: got %v, want ConstraintViolation", err)
	}
}

func TestRecordCompletionConcurrentPairs(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, 1, "runner")
	seedMap(t, db, "AAAA01", 3.0)

	// Race N submissions for the same pair, all with distinct times. Exactly
	// the fastest-so-far chain survives; every accepted row must be strictly
	// faster than the one accepted before it.
	times := []float64{50, 45, 40, 35, 30}
	var wg sync.WaitGroup
	for _, tm := range times {
		wg.Add(1)
		go func(tm float64) {
			defer wg.Done()
			_, _ = RecordCompletion(db, submit(t, "AAAA01", 1, tm, true))
		}(tm)
	}
	wg.Wait()

	var rows []models.Completion
	if err := db.Where("legacy = ?", false).Order("inserted_at ASC, id ASC").Find(&rows).Error; err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("no rows accepted")
	}
	bestSeen := rows[0].Time
	for _, r := range rows[1:] {
		if r.Time >= bestSeen {
			t.Errorf("accepted row with time %v not faster than prior best %v", r.Time, bestSeen)
		}
		if r.Time < bestSeen {
			bestSeen = r.Time
		}
	}
}

func TestVerifyCompletionIdempotent(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, 1, "runner")
	seedMap(t, db, "AAAA01", 3.0)

	c, err := RecordCompletion(db, submit(t, "AAAA01", 1, 30, true))
	if err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}

	verified, err := VerifyCompletion(db, c.ID, VerificationInput{VerifiedBy: 99})
	if err != nil {
		t.Fatalf("VerifyCompletion failed: %v", err)
	}
	if !verified.Verified || verified.VerifiedBy == nil || *verified.VerifiedBy != 99 {
		t.Errorf("verification not recorded: %+v", verified)
	}

	// Second call is a no-op: the original verifier stays.
	again, err := VerifyCompletion(db, c.ID, VerificationInput{VerifiedBy: 100})
	if err != nil {
		t.Fatalf("second VerifyCompletion failed: %v", err)
	}
	if again.VerifiedBy == nil || *again.VerifiedBy != 99 {
		t.Errorf("re-verification overwrote verifier: %+v", again.VerifiedBy)
	}

	var notFound *types.NotFoundError
	_, err = VerifyCompletion(db, 424242, VerificationInput{VerifiedBy: 99})
	if !errors.As(err, &notFound) {
		t.Errorf("unknown completion: got %v, want NotFoundError", err)
	}
}

func TestVerificationPropagatesToRating(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, 1, "runner")
	m := seedMap(t, db, "AAAA01", 3.0)

	c, err := RecordCompletion(db, submit(t, "AAAA01", 1, 30, true))
	if err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}

	if err := RateMap(db, "AAAA01", 1, 7); err != nil {
		t.Fatalf("RateMap failed: %v", err)
	}

	var rating models.MapRating
	if err := db.Where("map_id = ? AND user_id = ?", m.ID, 1).First(&rating).Error; err != nil {
		t.Fatalf("rating not stored: %v", err)
	}
	if rating.Verified {
		t.Error("fresh rating must start unverified")
	}

	if _, err := VerifyCompletion(db, c.ID, VerificationInput{VerifiedBy: 99}); err != nil {
		t.Fatalf("VerifyCompletion failed: %v", err)
	}

	if err := db.Where("map_id = ? AND user_id = ?", m.ID, 1).First(&rating).Error; err != nil {
		t.Fatalf("rating fetch failed: %v", err)
	}
	if !rating.Verified {
		t.Error("rating must be verified after the author's completion is verified")
	}

	// Re-rating keeps the verified state and updates the score.
	if err := RateMap(db, "AAAA01", 1, 9); err != nil {
		t.Fatalf("re-rate failed: %v", err)
	}
	if err := db.Where("map_id = ? AND user_id = ?", m.ID, 1).First(&rating).Error; err != nil {
		t.Fatalf("rating fetch failed: %v", err)
	}
	if !rating.Verified || rating.Quality != 9 {
		t.Errorf("re-rating lost state: verified=%v quality=%d", rating.Verified, rating.Quality)
	}
}

func TestRateMapBounds(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, 1, "runner")
	seedMap(t, db, "AAAA01", 3.0)

	var validation *types.ValidationError
	for _, q := range []int{0, 11, -3} {
		err := RateMap(db, "AAAA01", 1, q)
		if !errors.As(err, &validation) {
			t.Errorf("RateMap(%d): got %v, want ValidationError", q, err)
		}
	}
}

func TestLeaderboard(t *testing.T) {
	db := setupTestDB(t)
	m := seedMap(t, db, "AAAA01", 3.0)
	db.Model(m).Updates(map[string]interface{}{"gold": 20.0, "silver": 30.0, "bronze": 40.0})

	seedUser(t, db, 1, "alpha")
	seedUser(t, db, 2, "beta")
	seedUser(t, db, 3, "gamma")

	rows := []models.Completion{
		{MapID: m.ID, UserID: 1, Time: 19.5, Screenshot: "s", Verified: true, CompletionFlag: true},
		{MapID: m.ID, UserID: 2, Time: 25.0, Screenshot: "s", Verified: true, CompletionFlag: true},
		{MapID: m.ID, UserID: 2, Time: 35.0, Screenshot: "s", Verified: true, CompletionFlag: true},
		{MapID: m.ID, UserID: 3, Time: 33.0, Screenshot: "s", Verified: true, CompletionFlag: false},
		// Unverified and legacy rows stay off the board.
		{MapID: m.ID, UserID: 3, Time: 10.0, Screenshot: "s", Verified: false, CompletionFlag: true},
		{MapID: m.ID, UserID: 1, Time: 5.0, Screenshot: "s", Verified: true, Legacy: true, CompletionFlag: true},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed completion failed: %v", err)
		}
	}

	entries, err := Leaderboard(db, "AAAA01", 1, 25)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	if entries[0].UserID != 1 || entries[0].Time != 19.5 || entries[0].Medal != models.MedalGold || entries[0].Rank != 1 {
		t.Errorf("rank 1 wrong: %+v", entries[0])
	}
	if entries[1].UserID != 2 || entries[1].Time != 25.0 || entries[1].Medal != models.MedalSilver || entries[1].Rank != 2 {
		t.Errorf("rank 2 wrong: %+v", entries[1])
	}
	// Lesser submissions rank but never medal.
	if entries[2].UserID != 3 || entries[2].Medal != "" || entries[2].Rank != 3 {
		t.Errorf("rank 3 wrong: %+v", entries[2])
	}
}

func TestLeaderboardPagination(t *testing.T) {
	db := setupTestDB(t)
	m := seedMap(t, db, "AAAA01", 3.0)
	for i := uint64(1); i <= 5; i++ {
		seedUser(t, db, i, "user")
		c := models.Completion{MapID: m.ID, UserID: i, Time: float64(10 + i), Screenshot: "s", Verified: true}
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("seed completion failed: %v", err)
		}
	}

	page, err := Leaderboard(db, "AAAA01", 2, 2)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(page) != 2 || page[0].Rank != 3 || page[1].Rank != 4 {
		t.Errorf("page 2 wrong: %+v", page)
	}

	empty, err := Leaderboard(db, "AAAA01", 9, 2)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty page, got %+v", empty)
	}
}

func TestPendingVerifications(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, 1, "runner")
	m := seedMap(t, db, "AAAA01", 3.0)

	c1 := models.Completion{MapID: m.ID, UserID: 1, Time: 30, Screenshot: "s"}
	c2 := models.Completion{MapID: m.ID, UserID: 1, Time: 25, Screenshot: "s", Verified: true}
	for _, c := range []*models.Completion{&c1, &c2} {
		if err := db.Create(c).Error; err != nil {
			t.Fatalf("seed completion failed: %v", err)
		}
	}

	pending, err := PendingVerifications(db)
	if err != nil {
		t.Fatalf("PendingVerifications failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != c1.ID {
		t.Errorf("pending = %+v, want only unverified row %d", pending, c1.ID)
	}
}
