package main

import (
	"log"
	"sort"
)

// Ledger maps a weak client fingerprint to an accumulated point
// total. It survives individual disconnects: a same-looking client
// reconnecting resumes its score. In-memory first, write-through to
// SQLite when a database is configured. Only the hub reactor calls
// into it, so no locking.
type Ledger struct {
	db     *DB // may be nil
	scores map[string]int
}

// NewLedger creates a ledger over an optional database
func NewLedger(db *DB) *Ledger {
	return &Ledger{
		db:     db,
		scores: make(map[string]int),
	}
}

// Lookup returns the accumulated total for a fingerprint, consulting
// the database on a memory miss
func (l *Ledger) Lookup(fingerprint string) int {
	if total, ok := l.scores[fingerprint]; ok {
		return total
	}
	if l.db != nil {
		total, err := l.db.GetScore(fingerprint)
		if err != nil {
			log.Printf("ledger read error: %v", err)
			return 0
		}
		l.scores[fingerprint] = total
		return total
	}
	return 0
}

// Award adds points to a fingerprint and returns the new total.
// Persistence failures are logged, never surfaced to gameplay.
func (l *Ledger) Award(fingerprint, callsign string, points int) int {
	total := l.Lookup(fingerprint) + points
	l.scores[fingerprint] = total
	if l.db != nil {
		if err := l.db.UpsertScore(fingerprint, callsign, total); err != nil {
			log.Printf("ledger write error: %v", err)
		}
	}
	return total
}

// Top returns the highest entries, preferring the persisted table
// when available
func (l *Ledger) Top(n int) []ScoreRow {
	if l.db != nil {
		rows, err := l.db.TopScores(n)
		if err == nil {
			return rows
		}
		log.Printf("ledger top error: %v", err)
	}
	rows := make([]ScoreRow, 0, len(l.scores))
	for fp, pts := range l.scores {
		rows = append(rows, ScoreRow{Fingerprint: fp, Points: pts})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Points > rows[j].Points })
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}
