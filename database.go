package main

import (
	"database/sql"
	"log"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection. The ledger treats it as
// best-effort write-through storage; a nil *DB is tolerated everywhere.
type DB struct {
	conn *sql.DB
}

// ScoreRow is one persisted ledger entry
type ScoreRow struct {
	Fingerprint string `json:"-"`
	Callsign    string `json:"n"`
	Points      int    `json:"points"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL for concurrent readers on the side-channel endpoints
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scores (
		fingerprint TEXT PRIMARY KEY,
		callsign TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS race_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		race_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		callsign TEXT NOT NULL DEFAULT '',
		rank INTEGER NOT NULL,
		checkpoints INTEGER NOT NULL DEFAULT 0,
		finished INTEGER NOT NULL DEFAULT 0,
		points INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_race_results_race ON race_results(race_id);
	CREATE INDEX IF NOT EXISTS idx_race_results_fp ON race_results(fingerprint);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// GetScore returns the persisted point total for a fingerprint, or 0
func (db *DB) GetScore(fingerprint string) (int, error) {
	var points int
	err := db.conn.QueryRow(
		"SELECT points FROM scores WHERE fingerprint = ?", fingerprint,
	).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return points, err
}

// UpsertScore writes the current point total for a fingerprint
func (db *DB) UpsertScore(fingerprint, callsign string, points int) error {
	_, err := db.conn.Exec(`
		INSERT INTO scores (fingerprint, callsign, points, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(fingerprint) DO UPDATE SET
			callsign = excluded.callsign,
			points = excluded.points,
			updated_at = CURRENT_TIMESTAMP`,
		fingerprint, callsign, points,
	)
	return err
}

// TopScores returns the highest persisted ledger entries
func (db *DB) TopScores(limit int) ([]ScoreRow, error) {
	rows, err := db.conn.Query(
		"SELECT fingerprint, callsign, points FROM scores ORDER BY points DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScoreRow
	for rows.Next() {
		var r ScoreRow
		if err := rows.Scan(&r.Fingerprint, &r.Callsign, &r.Points); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// RecordRaceResult appends one ranked row of a finished race
func (db *DB) RecordRaceResult(raceID, fingerprint, callsign string, rank, checkpoints int, finished bool, points int) error {
	fin := 0
	if finished {
		fin = 1
	}
	_, err := db.conn.Exec(`
		INSERT INTO race_results (race_id, fingerprint, callsign, rank, checkpoints, finished, points)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		raceID, fingerprint, callsign, rank, checkpoints, fin, points,
	)
	return err
}
