package services

import (
	"errors"
	"testing"
	"time"

	"github.com/parkournet/recordsdb/internal/types"
)

func TestDayBucket(t *testing.T) {
	// Two instants on the same UTC day share a bucket even when local
	// offsets would put them on different dates.
	tz := time.FixedZone("UTC+13", 13*3600)
	a := time.Date(2025, 3, 10, 0, 30, 0, 0, tz)  // 2025-03-09 11:30 UTC
	b := time.Date(2025, 3, 9, 23, 45, 0, 0, time.UTC)
	if DayBucket(a) != DayBucket(b) {
		t.Errorf("buckets differ: %d vs %d", DayBucket(a), DayBucket(b))
	}

	// Midnight UTC starts a new bucket.
	c := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if DayBucket(b) == DayBucket(c) {
		t.Error("midnight UTC did not roll the bucket")
	}
	if DayBucket(c)-DayBucket(b) != 1 {
		t.Errorf("bucket step = %d, want 1", DayBucket(c)-DayBucket(b))
	}
}

func TestRecordClickDedupe(t *testing.T) {
	db := setupTestDB(t)
	seedMap(t, db, "AAAA01", 3.0)

	ts := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

	if err := RecordClick(db, "AAAA01", "source-a", ts); err != nil {
		t.Fatalf("first click failed: %v", err)
	}

	// Same source, same UTC day: duplicate.
	var duplicate *types.DuplicateEventError
	err := RecordClick(db, "AAAA01", "source-a", ts.Add(6*time.Hour))
	if !errors.As(err, &duplicate) {
		t.Errorf("same-day repeat: got %v, want DuplicateEventError", err)
	}

	// Different source, same day: counted.
	if err := RecordClick(db, "AAAA01", "source-b", ts); err != nil {
		t.Errorf("different source failed: %v", err)
	}

	// Same source, next UTC day: counted.
	if err := RecordClick(db, "AAAA01", "source-a", ts.Add(24*time.Hour)); err != nil {
		t.Errorf("next-day click failed: %v", err)
	}

	count, err := ClickCount(db, "AAAA01")
	if err != nil {
		t.Fatalf("ClickCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestRecordClickValidation(t *testing.T) {
	db := setupTestDB(t)
	seedMap(t, db, "AAAA01", 3.0)

	var validation *types.ValidationError
	if err := RecordClick(db, "AAAA01", "", time.Now()); !errors.As(err, &validation) {
		t.Errorf("empty source: got %v, want ValidationError", err)
	}

	var notFound *types.NotFoundError
	if err := RecordClick(db, "ZZZZ99", "source-a", time.Now()); !errors.As(err, &notFound) {
		t.Errorf("unknown map: got %v, want NotFoundError", err)
	}
}
