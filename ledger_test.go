package main

import (
	"path/filepath"
	"testing"
)

func TestLedgerAccumulatesInMemory(t *testing.T) {
	l := NewLedger(nil)

	if got := l.Lookup("fp1"); got != 0 {
		t.Errorf("unknown fingerprint should read 0, got %d", got)
	}
	if got := l.Award("fp1", "Pilot_a1", 100); got != 100 {
		t.Errorf("first award should total 100, got %d", got)
	}
	if got := l.Award("fp1", "Pilot_a1", 50); got != 150 {
		t.Errorf("awards should accumulate to 150, got %d", got)
	}
	if got := l.Lookup("fp2"); got != 0 {
		t.Errorf("fingerprints must be independent, got %d", got)
	}
}

func TestLedgerTopInMemory(t *testing.T) {
	l := NewLedger(nil)
	l.Award("fp1", "a", 30)
	l.Award("fp2", "b", 90)
	l.Award("fp3", "c", 60)

	top := l.Top(2)
	if len(top) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(top))
	}
	if top[0].Points != 90 || top[1].Points != 60 {
		t.Errorf("expected descending 90,60 got %d,%d", top[0].Points, top[1].Points)
	}
}

func TestLedgerPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.db")

	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	l := NewLedger(db)
	l.Award("fp1", "Pilot_a1", 110)
	l.Award("fp1", "Pilot_a1", 60)
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := OpenDB(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	l2 := NewLedger(db2)
	if got := l2.Lookup("fp1"); got != 170 {
		t.Errorf("expected 170 after reopen, got %d", got)
	}
	// read-through result is cached
	if got := l2.Lookup("fp1"); got != 170 {
		t.Errorf("cached lookup drifted to %d", got)
	}
}

func TestTopScoresOrderAndLimit(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	l := NewLedger(db)
	l.Award("fp1", "low", 10)
	l.Award("fp2", "high", 300)
	l.Award("fp3", "mid", 150)

	top := l.Top(2)
	if len(top) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(top))
	}
	if top[0].Callsign != "high" || top[1].Callsign != "mid" {
		t.Errorf("unexpected order: %s, %s", top[0].Callsign, top[1].Callsign)
	}
}

func TestRaceResultRowsRecorded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.db")
	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := db.RecordRaceResult("race-1", "fp1", "Pilot_a1", 1, RaceWinSentinel, true, 110); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := db.RecordRaceResult("race-1", "fp2", "Pilot_b2", 2, 4, false, 60); err != nil {
		t.Fatalf("record: %v", err)
	}

	var n int
	err = db.conn.QueryRow(
		"SELECT COUNT(*) FROM race_results WHERE race_id = ?", "race-1",
	).Scan(&n)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 result rows, got %d", n)
	}
}
