package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PlayerRow represents a player account record
type PlayerRow struct {
	ID        int64
	Username  string
	PassHash  string
	IsGuest   bool
	Credits   int
	CreatedAt time.Time
}

// RunRow aggregates a player's record on one level
type RunRow struct {
	PlayerID    int64
	LevelID     int64
	Attempts    int
	Completions int
	BestPercent float64
	BestTime    float64 // seconds, 0 until the first completion
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
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
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		is_guest INTEGER NOT NULL DEFAULT 0,
		credits INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS levels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		difficulty TEXT NOT NULL DEFAULT 'normal',
		objects BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS runs (
		player_id INTEGER NOT NULL REFERENCES players(id),
		level_id INTEGER NOT NULL REFERENCES levels(id),
		attempts INTEGER NOT NULL DEFAULT 0,
		completions INTEGER NOT NULL DEFAULT 0,
		best_percent REAL NOT NULL DEFAULT 0,
		best_time REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (player_id, level_id)
	);

	CREATE TABLE IF NOT EXISTS achievements (
		player_id INTEGER NOT NULL REFERENCES players(id),
		achievement_id TEXT NOT NULL,
		unlocked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (player_id, achievement_id)
	);

	CREATE TABLE IF NOT EXISTS unlocks (
		player_id INTEGER NOT NULL REFERENCES players(id),
		item_id TEXT NOT NULL,
		PRIMARY KEY (player_id, item_id)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		player_id INTEGER NOT NULL DEFAULT 0,
		label TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_level ON runs(level_id);
	CREATE INDEX IF NOT EXISTS idx_players_username ON players(username);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// SeedLevels inserts the built-in levels into an empty library
func (db *DB) SeedLevels() error {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM levels").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, lvl := range BuiltinLevels() {
		blob, err := EncodeLevelObjects(lvl.Objects)
		if err != nil {
			return err
		}
		if _, err := db.conn.Exec(
			"INSERT INTO levels (name, difficulty, objects) VALUES (?, ?, ?)",
			lvl.Name, lvl.Difficulty, blob,
		); err != nil {
			return err
		}
	}
	return nil
}

// ListLevels returns the level library
func (db *DB) ListLevels() ([]LevelInfo, error) {
	rows, err := db.conn.Query("SELECT id, name, difficulty, objects FROM levels ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LevelInfo
	for rows.Next() {
		var info LevelInfo
		var blob []byte
		if err := rows.Scan(&info.ID, &info.Name, &info.Difficulty, &blob); err != nil {
			return nil, err
		}
		if objs, err := DecodeLevelObjects(blob); err == nil {
			info.Objects = len(objs)
		}
		result = append(result, info)
	}
	return result, rows.Err()
}

// GetLevel loads and compiles one library level
func (db *DB) GetLevel(id int64) (*Level, error) {
	row := db.conn.QueryRow("SELECT id, name, difficulty, objects FROM levels WHERE id = ?", id)
	var (
		name, difficulty string
		blob             []byte
	)
	if err := row.Scan(&id, &name, &difficulty, &blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	objs, err := DecodeLevelObjects(blob)
	if err != nil {
		return nil, err
	}
	return CompileLevel(id, name, difficulty, objs), nil
}

// CreatePlayer creates a new player account (returns player ID)
func (db *DB) CreatePlayer(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO players (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPlayerByUsername returns a player by username
func (db *DB) GetPlayerByUsername(username string) (*PlayerRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, is_guest, credits, created_at FROM players WHERE username = ?",
		username,
	)
	return scanPlayer(row)
}

// GetPlayerByID returns a player by ID
func (db *DB) GetPlayerByID(id int64) (*PlayerRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, is_guest, credits, created_at FROM players WHERE id = ?",
		id,
	)
	return scanPlayer(row)
}

func scanPlayer(row *sql.Row) (*PlayerRow, error) {
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.IsGuest, &p.Credits, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM players WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// RecordRunResult folds one finished run into the player's record for the
// level: attempts always increment, completions and best time only on a win,
// best percent is monotonic.
func (db *DB) RecordRunResult(playerID, levelID int64, percent, elapsed float64, won bool) error {
	compInc := 0
	if won {
		compInc = 1
	}
	_, err := db.conn.Exec(`
		INSERT INTO runs (player_id, level_id, attempts, completions, best_percent, best_time)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(player_id, level_id) DO UPDATE SET
			attempts = attempts + 1,
			completions = completions + excluded.completions,
			best_percent = MAX(best_percent, excluded.best_percent),
			best_time = CASE
				WHEN excluded.completions > 0 AND (best_time = 0 OR excluded.best_time < best_time)
				THEN excluded.best_time ELSE best_time
			END`,
		playerID, levelID, compInc, percent, winTime(elapsed, won),
	)
	return err
}

func winTime(elapsed float64, won bool) float64 {
	if won {
		return elapsed
	}
	return 0
}

// GetRun returns a player's record on one level
func (db *DB) GetRun(playerID, levelID int64) (*RunRow, error) {
	row := db.conn.QueryRow(
		"SELECT player_id, level_id, attempts, completions, best_percent, best_time FROM runs WHERE player_id = ? AND level_id = ?",
		playerID, levelID,
	)
	r := &RunRow{}
	err := row.Scan(&r.PlayerID, &r.LevelID, &r.Attempts, &r.Completions, &r.BestPercent, &r.BestTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetRunTotals aggregates a player's record across all levels
func (db *DB) GetRunTotals(playerID int64) (attempts, completions int, bestPercent float64, err error) {
	row := db.conn.QueryRow(
		"SELECT COALESCE(SUM(attempts),0), COALESCE(SUM(completions),0), COALESCE(MAX(best_percent),0) FROM runs WHERE player_id = ?",
		playerID,
	)
	err = row.Scan(&attempts, &completions, &bestPercent)
	return
}

// CompletedLevels returns how many distinct levels the player has completed
func (db *DB) CompletedLevels(playerID int64) (int, error) {
	var n int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM runs WHERE player_id = ? AND completions > 0",
		playerID,
	).Scan(&n)
	return n, err
}

// GetLevelBoard returns the per-level leaderboard ordered by best percent,
// ties broken by fastest completion
func (db *DB) GetLevelBoard(levelID int64, limit int) ([]BoardEntry, error) {
	rows, err := db.conn.Query(`
		SELECT p.username, r.best_percent, r.best_time, r.completions
		FROM runs r JOIN players p ON p.id = r.player_id
		WHERE r.level_id = ? AND p.is_guest = 0
		ORDER BY r.best_percent DESC, CASE WHEN r.best_time = 0 THEN 1e18 ELSE r.best_time END ASC
		LIMIT ?`,
		levelID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BoardEntry
	rank := 1
	for rows.Next() {
		var e BoardEntry
		if err := rows.Scan(&e.Username, &e.BestPercent, &e.BestTime, &e.Completions); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// AdjustCredits adds delta to a player's credit balance
func (db *DB) AdjustCredits(playerID int64, delta int) error {
	_, err := db.conn.Exec("UPDATE players SET credits = credits + ? WHERE id = ?", delta, playerID)
	return err
}

// GetCredits returns a player's credit balance
func (db *DB) GetCredits(playerID int64) (int, error) {
	var credits int
	err := db.conn.QueryRow("SELECT credits FROM players WHERE id = ?", playerID).Scan(&credits)
	return credits, err
}

// UnlockAchievement records an unlock; returns true if it was new
func (db *DB) UnlockAchievement(playerID int64, achievementID string) (bool, error) {
	res, err := db.conn.Exec(
		"INSERT OR IGNORE INTO achievements (player_id, achievement_id) VALUES (?, ?)",
		playerID, achievementID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetAchievements returns the IDs of a player's unlocked achievements
func (db *DB) GetAchievements(playerID int64) ([]string, error) {
	rows, err := db.conn.Query("SELECT achievement_id FROM achievements WHERE player_id = ?", playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddUnlock records a purchased cosmetic item
func (db *DB) AddUnlock(playerID int64, itemID string) error {
	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO unlocks (player_id, item_id) VALUES (?, ?)",
		playerID, itemID,
	)
	return err
}

// GetUnlocks returns the item IDs a player owns
func (db *DB) GetUnlocks(playerID int64) ([]string, error) {
	rows, err := db.conn.Query("SELECT item_id FROM unlocks WHERE player_id = ?", playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetSetting returns a settings value, or "" if unset
func (db *DB) GetSetting(key string) string {
	var value string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value); err != nil {
		return ""
	}
	return value
}

// SetSetting stores a settings value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// InsertEvents writes one analytics batch inside a transaction
func (db *DB) InsertEvents(batch []AnalyticsEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO events (type, player_id, label, data, created_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, evt := range batch {
		if _, err := stmt.Exec(evt.Type, evt.PlayerID, evt.Label, evt.Data, evt.Timestamp); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
