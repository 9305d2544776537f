package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// UserRow represents a user record in the database
type UserRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; also keeps an in-memory database on a single
	// connection.
	conn.SetMaxOpenConns(1)

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
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS invites (
		id TEXT PRIMARY KEY,
		sender_id INTEGER NOT NULL REFERENCES users(id),
		receiver_id INTEGER NOT NULL REFERENCES users(id),
		type TEXT NOT NULL DEFAULT 'GAME',
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL UNIQUE,
		player1_id INTEGER NOT NULL REFERENCES users(id),
		player2_id INTEGER NOT NULL REFERENCES users(id),
		score1 INTEGER NOT NULL DEFAULT 0,
		score2 INTEGER NOT NULL DEFAULT 0,
		winner_id INTEGER,
		has_middle_wall INTEGER NOT NULL DEFAULT 0,
		forfeit INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		duration REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_invites_pair ON invites(sender_id, receiver_id, status);
	CREATE INDEX IF NOT EXISTS idx_matches_player1 ON matches(player1_id);
	CREATE INDEX IF NOT EXISTS idx_matches_player2 ON matches(player2_id);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// GetSetting returns a stored setting, or "" if unset
func (db *DB) GetSetting(key string) string {
	var v string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v); err != nil {
		return ""
	}
	return v
}

// SetSetting stores a setting, replacing any previous value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// CreateUser creates a new account (returns user ID)
func (db *DB) CreateUser(ctx context.Context, username, passHash string) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetUserByUsername returns a user by username, or nil if there is none
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*UserRow, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, username, pass_hash, created_at FROM users WHERE username = ?",
		username,
	)
	u := &UserRow{}
	err := row.Scan(&u.ID, &u.Username, &u.PassHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// FindUserByUsername resolves a username to an identity
func (db *DB) FindUserByUsername(ctx context.Context, username string) (Identity, error) {
	var id Identity
	err := db.conn.QueryRowContext(ctx,
		"SELECT id, username FROM users WHERE username = ?", username,
	).Scan(&id.ID, &id.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, ErrUserNotFound
	}
	return id, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// SaveInvite stores a new invite
func (db *DB) SaveInvite(ctx context.Context, inv Invite) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO invites (id, sender_id, receiver_id, type, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.SenderID, inv.ReceiverID, inv.Type, string(inv.Status), inv.CreatedAt, inv.CreatedAt,
	)
	return err
}

// UpdateInviteStatus moves a stored invite to status
func (db *DB) UpdateInviteStatus(ctx context.Context, id string, status InviteStatus) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE invites SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		string(status), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInviteNotFound
	}
	return nil
}

// InviteStatusOf returns the stored status of an invite
func (db *DB) InviteStatusOf(ctx context.Context, id string) (InviteStatus, error) {
	var s string
	err := db.conn.QueryRowContext(ctx, "SELECT status FROM invites WHERE id = ?", id).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInviteNotFound
	}
	return InviteStatus(s), err
}

// RecordMatches stores finished matches in one transaction
func (db *DB) RecordMatches(ctx context.Context, results []MatchResult) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO matches (room_id, player1_id, player2_id, score1, score2, winner_id,
			has_middle_wall, forfeit, outcome, duration, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(room_id) DO NOTHING`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		var winner sql.NullInt64
		if r.WinnerID != 0 {
			winner = sql.NullInt64{Int64: r.WinnerID, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			r.RoomID, r.Player1.ID, r.Player2.ID, r.Score1, r.Score2, winner,
			r.HasMiddleWall, r.Forfeit(), string(r.Outcome), r.Duration.Seconds(), r.EndedAt,
		); err != nil {
			return fmt.Errorf("insert match %s: %w", r.RoomID, err)
		}
	}
	return tx.Commit()
}

// MatchRow is one stored match
type MatchRow struct {
	RoomID        string  `json:"roomID"`
	Player1ID     int64   `json:"player1ID"`
	Player2ID     int64   `json:"player2ID"`
	Score1        int     `json:"score1"`
	Score2        int     `json:"score2"`
	WinnerID      int64   `json:"winnerID"` // 0 when there was no winner
	HasMiddleWall bool    `json:"hasMiddleWall"`
	Forfeit       bool    `json:"forfeit"`
	Outcome       string  `json:"outcome"`
	Duration      float64 `json:"duration"` // seconds
}

// GetMatchHistory returns a user's most recent matches
func (db *DB) GetMatchHistory(ctx context.Context, userID int64, limit int) ([]MatchRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT room_id, player1_id, player2_id, score1, score2, COALESCE(winner_id, 0),
			has_middle_wall, forfeit, outcome, duration
		FROM matches
		WHERE player1_id = ? OR player2_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		userID, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MatchRow
	for rows.Next() {
		var r MatchRow
		if err := rows.Scan(&r.RoomID, &r.Player1ID, &r.Player2ID, &r.Score1, &r.Score2, &r.WinnerID,
			&r.HasMiddleWall, &r.Forfeit, &r.Outcome, &r.Duration); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
